package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stepstunner/api/internal/models"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `
	id, user_id, items, total, address, payment_method, payment_status, status,
	review_rating, review_text, reviewed_at, created_at, updated_at
`

func scanOrder(row pgx.Row) (models.Order, error) {
	var (
		o          models.Order
		rating     *int
		reviewText *string
		reviewedAt *time.Time
	)

	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Items,
		&o.Total,
		&o.Address,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.Status,
		&rating,
		&reviewText,
		&reviewedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, err
	}

	if rating != nil {
		o.Review = &models.Review{Rating: *rating}
		if reviewText != nil {
			o.Review.Text = *reviewText
		}
		if reviewedAt != nil {
			o.Review.ReviewedAt = *reviewedAt
		}
	}
	return o, nil
}

func (r *OrderRepository) Create(ctx context.Context, order models.Order) error {
	const query = `
		INSERT INTO orders (
			id, user_id, items, total, address, payment_method, payment_status, status,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
	`
	_, err := r.pool.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.Items,
		order.Total,
		order.Address,
		order.PaymentMethod,
		order.PaymentStatus,
		order.Status,
	)
	return err
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (models.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.pool.QueryRow(ctx, query, id))
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit int, offset int) ([]models.Order, int, error) {
	const query = `
		SELECT ` + orderColumns + `
		FROM orders WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Search matches address, status or exact id; empty q lists everything.
func (r *OrderRepository) Search(ctx context.Context, q string, limit int, offset int) ([]models.Order, int, error) {
	const query = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = '' OR address ILIKE '%' || $1 || '%' OR status ILIKE '%' || $1 || '%' OR id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	const countQuery = `
		SELECT COUNT(*) FROM orders
		WHERE ($1 = '' OR address ILIKE '%' || $1 || '%' OR status ILIKE '%' || $1 || '%' OR id = $1)
	`
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, q).Scan(&total); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	const query = `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM orders WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// SetReview stores the review (last write wins) and recomputes the aggregate
// rating of every referenced product inside one transaction. Each product row
// is locked before its aggregate is read, so a concurrent submission waits
// for the lock and then aggregates over the committed review.
func (r *OrderRepository) SetReview(ctx context.Context, orderID string, review models.Review, productIDs []string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const reviewQuery = `
		UPDATE orders
		SET review_rating = $2, review_text = $3, reviewed_at = $4, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := tx.Exec(ctx, reviewQuery, orderID, review.Rating, review.Text, review.ReviewedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	// Locking first matters: at read committed the aggregate subquery takes
	// its snapshot before the UPDATE blocks on the row, so an unlocked
	// recompute could miss a review committed while waiting.
	const lockQuery = `SELECT 1 FROM products WHERE id = $1 FOR UPDATE`

	const recomputeQuery = `
		UPDATE products p SET
			rating = agg.avg_rating,
			review_count = agg.cnt,
			updated_at = NOW()
		FROM (
			SELECT COALESCE(AVG(o.review_rating), 0) AS avg_rating, COUNT(*) AS cnt
			FROM orders o
			WHERE o.review_rating IS NOT NULL
				AND EXISTS (
					SELECT 1 FROM jsonb_array_elements(o.items) it
					WHERE it->>'productId' = $1
				)
		) agg
		WHERE p.id = $1
	`
	for _, productID := range productIDs {
		if _, err := tx.Exec(ctx, lockQuery, productID); err != nil {
			return fmt.Errorf("lock product %s: %w", productID, err)
		}
		if _, err := tx.Exec(ctx, recomputeQuery, productID); err != nil {
			return fmt.Errorf("recompute rating for %s: %w", productID, err)
		}
	}

	return tx.Commit(ctx)
}

func collectOrders(rows pgx.Rows) ([]models.Order, error) {
	defer rows.Close()
	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
