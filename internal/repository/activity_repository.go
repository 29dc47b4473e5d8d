package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stepstunner/api/internal/models"
)

type ActivityLogRepository struct {
	pool *pgxpool.Pool
}

func NewActivityLogRepository(pool *pgxpool.Pool) *ActivityLogRepository {
	return &ActivityLogRepository{pool: pool}
}

func (r *ActivityLogRepository) Insert(ctx context.Context, entry models.ActivityLog) error {
	const query = `
		INSERT INTO activity_logs (
			id, user_id, action, method, path, details, ip_address, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW()
		)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Action,
		entry.Method,
		entry.Path,
		entry.Details,
		entry.IPAddress,
		entry.Status,
	)
	return err
}

// Search matches the action tag or path, newest first.
func (r *ActivityLogRepository) Search(ctx context.Context, q string, limit int, offset int) ([]models.ActivityLog, int, error) {
	const query = `
		SELECT id, user_id, action, method, path, details, ip_address, status, created_at
		FROM activity_logs
		WHERE ($1 = '' OR action ILIKE '%' || $1 || '%' OR path ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []models.ActivityLog
	for rows.Next() {
		var entry models.ActivityLog
		if err := scanActivity(rows, &entry); err != nil {
			return nil, 0, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	const countQuery = `
		SELECT COUNT(*) FROM activity_logs
		WHERE ($1 = '' OR action ILIKE '%' || $1 || '%' OR path ILIKE '%' || $1 || '%')
	`
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, q).Scan(&total); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// PruneOlderThan enforces the retention policy.
func (r *ActivityLogRepository) PruneOlderThan(ctx context.Context, cutoffDays int) (int64, error) {
	const query = `DELETE FROM activity_logs WHERE created_at < NOW() - ($1 || ' days')::interval`
	cmd, err := r.pool.Exec(ctx, query, cutoffDays)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanActivity(row pgx.Row, entry *models.ActivityLog) error {
	return row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Action,
		&entry.Method,
		&entry.Path,
		&entry.Details,
		&entry.IPAddress,
		&entry.Status,
		&entry.CreatedAt,
	)
}
