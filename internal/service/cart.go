package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/luxemarket/storefront/internal/domain"
	"github.com/luxemarket/storefront/internal/repository"
	apperrors "github.com/luxemarket/storefront/pkg/errors"
)

// AddItemInput holds the parameters for adding a product to the cart.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// UpdateQuantityInput holds the parameters for setting a line quantity.
type UpdateQuantityInput struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CartService is the per-session cart state manager. Every mutation is a
// read-modify-write guarded by the cart version, so two concurrent requests
// for one session cannot lose an update; the loser gets a conflict.
type CartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, products repository.ProductRepository, logger *slog.Logger) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetCart returns the session's cart, or an empty one if none is stored.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	cart, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCart(sessionID, s.now()), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	return cart, nil
}

// AddItem adds one unit of a catalog product. Name, price and image are
// copied from the catalog at this moment.
func (s *CartService) AddItem(ctx context.Context, sessionID, productID string) (*domain.Cart, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.mutate(ctx, sessionID, func(c *domain.Cart) bool {
		c.Add(product)
		return true
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("product_id", productID),
		slog.Int("cart_count", cart.Count()),
	)
	return cart, nil
}

// UpdateQuantity sets a line's quantity; zero or less removes the line and
// an unknown product leaves the cart unchanged.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *domain.Cart) bool {
		return c.UpdateQuantity(productID, quantity)
	})
}

// RemoveItem deletes a line if present.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *domain.Cart) bool {
		return c.Remove(productID)
	})
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *domain.Cart) bool {
		if c.IsEmpty() {
			return false
		}
		c.Clear()
		return true
	})
}

// OpenDrawer marks the cart panel visible.
func (s *CartService) OpenDrawer(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return s.setDrawer(ctx, sessionID, true)
}

// CloseDrawer marks the cart panel hidden.
func (s *CartService) CloseDrawer(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return s.setDrawer(ctx, sessionID, false)
}

func (s *CartService) setDrawer(ctx context.Context, sessionID string, open bool) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *domain.Cart) bool {
		if c.DrawerOpen == open {
			return false
		}
		if open {
			c.OpenDrawer()
		} else {
			c.CloseDrawer()
		}
		return true
	})
}

const completeCheckoutAttempts = 3

// CompleteCheckout removes the ordered items and closes the drawer after an
// order is placed. Lines the shopper added while the order was being placed
// are kept. A concurrent write is retried against the fresh cart.
func (s *CartService) CompleteCheckout(ctx context.Context, sessionID string, ordered []domain.OrderItem) (*domain.Cart, error) {
	var err error
	for attempt := 0; attempt < completeCheckoutAttempts; attempt++ {
		var cart *domain.Cart
		cart, err = s.mutate(ctx, sessionID, func(c *domain.Cart) bool {
			changed := c.RemoveOrdered(ordered)
			if c.DrawerOpen {
				c.CloseDrawer()
				changed = true
			}
			return changed
		})
		if !errors.Is(err, apperrors.ErrConflict) {
			return cart, err
		}
	}
	return nil, err
}

// EndSession discards the session's cart container.
func (s *CartService) EndSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperrors.InvalidInput("session id is required")
	}
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	s.logger.InfoContext(ctx, "cart session ended")
	return nil
}

// mutate loads the cart, applies fn and saves the result if fn reports a
// change. The save only succeeds if nobody else wrote the cart in between.
func (s *CartService) mutate(ctx context.Context, sessionID string, fn func(*domain.Cart) bool) (*domain.Cart, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	expectedVersion := cart.Version
	if !fn(cart) {
		return cart, nil
	}
	cart.UpdatedAt = s.now()

	ok, err := s.repo.SaveIfVersion(ctx, cart, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	if !ok {
		return nil, apperrors.Conflict("cart was modified concurrently, please retry")
	}
	return cart, nil
}
