package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/luxemarket/storefront/internal/domain"
	"github.com/luxemarket/storefront/pkg/database"
	apperrors "github.com/luxemarket/storefront/pkg/errors"
)

const productColumns = `id, name, description, price::text, original_price::text, image_url, category, created_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns products ordered by created_at DESC. An empty category matches
// every product.
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) (products []domain.Product, total int, err error) {
	query := `
		SELECT ` + productColumns + `,
		       count(*) OVER() AS total_count
		FROM products
		WHERE ($1 = '' OR category = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	ctx, end := database.TraceQuery(ctx, "products.list", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, filter.Category, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products = make([]domain.Product, 0)
	for rows.Next() {
		var (
			p        domain.Product
			price    string
			original *string
		)
		if err = rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&price,
			&original,
			&p.ImageURL,
			&p.Category,
			&p.CreatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		if err = setPrices(&p, price, original); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	// A page past the end has no rows to carry the window count.
	if len(products) == 0 && filter.Offset > 0 {
		total, err = r.count(ctx, filter.Category)
		if err != nil {
			return nil, 0, err
		}
	}

	return products, total, nil
}

func (r *ProductRepository) count(ctx context.Context, category string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE ($1 = '' OR category = $1)`, category).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (p *domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "products.get", query)
	defer func() { end(err) }()

	var (
		product  domain.Product
		price    string
		original *string
	)
	err = r.pool.QueryRow(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&price,
		&original,
		&product.ImageURL,
		&product.Category,
		&product.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	if err = setPrices(&product, price, original); err != nil {
		return nil, err
	}
	return &product, nil
}

func setPrices(p *domain.Product, price string, original *string) error {
	var err error
	if p.Price, err = parseMoney("price", price); err != nil {
		return err
	}
	if p.OriginalPrice, err = parseOptionalMoney("original_price", original); err != nil {
		return err
	}
	return nil
}
