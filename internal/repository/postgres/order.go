package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/luxemarket/storefront/internal/domain"
	"github.com/luxemarket/storefront/pkg/database"
	apperrors "github.com/luxemarket/storefront/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const (
	insertOrderSQL = `
		INSERT INTO orders (id, customer_name, customer_email, customer_phone, shipping_address, total_amount, payment_method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	insertOrderItemSQL = `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)`
)

// Create inserts the order and its items in one transaction, so an order is
// never left without its items.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := database.TraceQuery(ctx, "orders.create", insertOrderSQL)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID,
		o.Customer.Name,
		o.Customer.Email,
		o.Customer.Phone,
		o.Customer.Address,
		o.TotalAmount,
		o.PaymentMethod,
		o.Status,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, insertOrderItemSQL,
			o.ID,
			item.ProductID,
			item.Quantity,
			item.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves an order with its items in one round trip. Item names
// come from the live catalog; prices are the stored snapshot.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (order *domain.Order, err error) {
	query := `
		SELECT
			o.id, o.customer_name, o.customer_email, o.customer_phone, o.shipping_address,
			o.total_amount::text, o.payment_method, o.status, o.created_at,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'order_id', oi.order_id,
						'product_id', oi.product_id,
						'name', COALESCE(p.name, ''),
						'quantity', oi.quantity,
						'unit_price', oi.unit_price::text
					) ORDER BY oi.id
				) FILTER (WHERE oi.id IS NOT NULL),
				'[]'::jsonb
			) AS items
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE o.id = $1
		GROUP BY o.id`

	ctx, end := database.TraceQuery(ctx, "orders.get", query)
	defer func() { end(err) }()

	var (
		o         domain.Order
		total     string
		itemsJSON []byte
	)
	err = r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.Customer.Name,
		&o.Customer.Email,
		&o.Customer.Phone,
		&o.Customer.Address,
		&total,
		&o.PaymentMethod,
		&o.Status,
		&o.CreatedAt,
		&itemsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}

	if o.TotalAmount, err = parseMoney("total_amount", total); err != nil {
		return nil, err
	}

	o.Items = make([]domain.OrderItem, 0)
	if err = json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}

	return &o, nil
}
