package repository

import (
	"context"

	"github.com/luxemarket/storefront/internal/domain"
)

// ProductRepository reads the product catalog.
type ProductRepository interface {
	// List returns one page of products, newest first, and the total number
	// of products matching the filter.
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)

	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// OrderRepository persists orders.
type OrderRepository interface {
	// Create inserts the order and all of its items atomically.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID returns the order with its items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

// CartRepository stores one cart container per shopper session.
type CartRepository interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)

	// SaveIfVersion writes cart only if the stored version still equals
	// expectedVersion. It returns false when another writer got there first.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)

	Delete(ctx context.Context, sessionID string) error
}
