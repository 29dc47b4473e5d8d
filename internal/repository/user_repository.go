package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stepstunner/api/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `
	id, name, email, phone, password_hash, role, active,
	mfa_enabled, mfa_method, mfa_secret, mfa_verified, backup_code_hashes,
	avatar_url, failed_logins, lock_until, password_history, created_at, updated_at
`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.Role,
		&user.Active,
		&user.MFAEnabled,
		&user.MFAMethod,
		&user.MFASecret,
		&user.MFAVerified,
		&user.BackupCodeHashes,
		&user.AvatarURL,
		&user.FailedLogins,
		&user.LockUntil,
		&user.PasswordHistory,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, name, email, phone, password_hash, role, active,
			mfa_enabled, mfa_method, mfa_secret, mfa_verified, backup_code_hashes,
			avatar_url, failed_logins, lock_until, password_history, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, NOW(), NOW()
		)
		ON CONFLICT (email) DO NOTHING
	`

	cmd, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.Active,
		user.MFAEnabled,
		user.MFAMethod,
		user.MFASecret,
		user.MFAVerified,
		user.BackupCodeHashes,
		user.AvatarURL,
		user.FailedLogins,
		user.LockUntil,
		user.PasswordHistory,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateEmail
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// Update persists the mutable account fields.
func (r *UserRepository) Update(ctx context.Context, user models.User) error {
	const query = `
		UPDATE users SET
			name = $2, phone = $3, password_hash = $4, role = $5, active = $6,
			mfa_enabled = $7, mfa_method = $8, mfa_secret = $9, mfa_verified = $10,
			backup_code_hashes = $11, avatar_url = $12, password_history = $13,
			updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.Active,
		user.MFAEnabled,
		user.MFAMethod,
		user.MFASecret,
		user.MFAVerified,
		user.BackupCodeHashes,
		user.AvatarURL,
		user.PasswordHistory,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) RecordLoginFailure(ctx context.Context, id string, failed int, lockUntil *time.Time) error {
	const query = `
		UPDATE users SET failed_logins = $2, lock_until = $3, updated_at = NOW() WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, failed, lockUntil)
	return err
}

func (r *UserRepository) ResetLoginFailures(ctx context.Context, id string) error {
	const query = `
		UPDATE users SET failed_logins = 0, lock_until = NULL, updated_at = NOW() WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Search matches name or email, newest first.
func (r *UserRepository) Search(ctx context.Context, q string, limit int, offset int) ([]models.User, int, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	const countQuery = `
		SELECT COUNT(*) FROM users
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
	`
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, q).Scan(&total); err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// ClearElapsedLockouts resets counters on accounts whose lock timer passed.
func (r *UserRepository) ClearElapsedLockouts(ctx context.Context) (int64, error) {
	const query = `
		UPDATE users SET failed_logins = 0, lock_until = NULL, updated_at = NOW()
		WHERE lock_until IS NOT NULL AND lock_until < NOW()
	`
	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
