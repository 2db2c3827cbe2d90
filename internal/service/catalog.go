package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/luxemarket/storefront/internal/domain"
	"github.com/luxemarket/storefront/internal/repository"
	"github.com/luxemarket/storefront/pkg/pagination"
)

// storefrontSize bounds the home page grid.
const storefrontSize = 24

// Storefront is the home page: the newest product featured above the rest.
type Storefront struct {
	Featured *domain.Product
	Products []domain.Product
}

// CatalogService implements read access to the product catalog.
type CatalogService struct {
	repo   repository.ProductRepository
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.ProductRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{repo: repo, logger: logger}
}

// ListProducts returns one page of products, newest first.
func (s *CatalogService) ListProducts(ctx context.Context, category string, params pagination.Params) (pagination.Result[domain.Product], error) {
	products, total, err := s.repo.List(ctx, domain.ProductFilter{
		Category: category,
		Limit:    params.PerPage,
		Offset:   params.Offset,
	})
	if err != nil {
		return pagination.Result[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return pagination.NewResult(products, total, params), nil
}

// GetProduct retrieves a product by ID.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Storefront returns the featured product and the grid below it.
func (s *CatalogService) Storefront(ctx context.Context) (*Storefront, error) {
	products, _, err := s.repo.List(ctx, domain.ProductFilter{Limit: storefrontSize + 1})
	if err != nil {
		return nil, fmt.Errorf("load storefront: %w", err)
	}

	sf := &Storefront{Products: []domain.Product{}}
	if len(products) == 0 {
		return sf, nil
	}
	sf.Featured = &products[0]
	sf.Products = products[1:]
	return sf, nil
}
