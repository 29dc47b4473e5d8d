package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stepstunner/api/internal/models"
)

var ErrProductNotFound = errors.New("product not found")

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = `
	id, name, category, brand, price, description, image_url,
	rating, review_count, stock, deleted_at, created_at, updated_at
`

func scanProduct(row pgx.Row) (models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Category,
		&p.Brand,
		&p.Price,
		&p.Description,
		&p.ImageURL,
		&p.Rating,
		&p.ReviewCount,
		&p.Stock,
		&p.DeletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Product{}, ErrProductNotFound
		}
		return models.Product{}, err
	}
	return p, nil
}

func (r *ProductRepository) Create(ctx context.Context, p models.Product) error {
	const query = `
		INSERT INTO products (
			id, name, category, brand, price, description, image_url,
			rating, review_count, stock, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW()
		)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Category, p.Brand, p.Price, p.Description, p.ImageURL,
		p.Rating, p.ReviewCount, p.Stock,
	)
	return err
}

// GetByID returns live products only.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (models.Product, error) {
	const query = `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND deleted_at IS NULL`
	return scanProduct(r.pool.QueryRow(ctx, query, id))
}

// GetByIDs includes soft-deleted products so order views can tell "deleted"
// apart from "never existed".
func (r *ProductRepository) GetByIDs(ctx context.Context, idList []string) (map[string]models.Product, error) {
	if len(idList) == 0 {
		return map[string]models.Product{}, nil
	}
	const query = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, idList)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]models.Product, len(idList))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

type ProductFilter struct {
	Category string
	Brand    string
	Search   string
	Limit    int
	Offset   int
}

func (r *ProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, int, error) {
	const query = `
		SELECT ` + productColumns + `
		FROM products
		WHERE deleted_at IS NULL
			AND ($1 = '' OR category = $1)
			AND ($2 = '' OR brand = $2)
			AND ($3 = '' OR name ILIKE '%' || $3 || '%' OR description ILIKE '%' || $3 || '%')
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.pool.Query(ctx, query, filter.Category, filter.Brand, filter.Search, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	const countQuery = `
		SELECT COUNT(*) FROM products
		WHERE deleted_at IS NULL
			AND ($1 = '' OR category = $1)
			AND ($2 = '' OR brand = $2)
			AND ($3 = '' OR name ILIKE '%' || $3 || '%' OR description ILIKE '%' || $3 || '%')
	`
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, filter.Category, filter.Brand, filter.Search).Scan(&total); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepository) Update(ctx context.Context, p models.Product) error {
	const query = `
		UPDATE products SET
			name = $2, category = $3, brand = $4, price = $5, description = $6,
			image_url = $7, stock = $8, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Category, p.Brand, p.Price, p.Description, p.ImageURL, p.Stock,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// SoftDelete hides the product from the catalog. Past order snapshots stay
// intact and degrade to a placeholder on population.
func (r *ProductRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `
		UPDATE products SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
