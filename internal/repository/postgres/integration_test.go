//go:build integration

package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/luxemarket/storefront/internal/domain"
	"github.com/luxemarket/storefront/internal/seed"
	"github.com/luxemarket/storefront/migrations"
	"github.com/luxemarket/storefront/pkg/database"
	apperrors "github.com/luxemarket/storefront/pkg/errors"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("storefront"),
		tcpostgres.WithUsername("storefront"),
		tcpostgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.RunMigrations(ctx, dsn, migrations.FS, logger))

	pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{URL: dsn}, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestIntegration_CatalogAndOrders(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()

	products := NewProductRepository(pool)
	orders := NewOrderRepository(pool)

	// Seeded catalog, newest first.
	list, total, err := products.List(ctx, domain.ProductFilter{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, list, 3)
	assert.Equal(t, "Light Jumpsuit", list[0].Name)
	require.NotNil(t, list[0].OriginalPrice)
	assert.Equal(t, "1199.00", list[0].OriginalPrice.StringFixed(2))

	apparel, total, err := products.List(ctx, domain.ProductFilter{Category: "apparel", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, apparel, 3)

	empty, total, err := products.List(ctx, domain.ProductFilter{Limit: 10, Offset: 100})
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 6, total)

	scarf, err := products.GetByID(ctx, "5b1f0a52-2d4e-4c1a-9d0b-0a1e4f6c7d03")
	require.NoError(t, err)
	assert.Equal(t, "65.00", scarf.Price.StringFixed(2))

	_, err = products.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Place an order from a two-line cart and read it back.
	cart := domain.NewCart("sess-1", time.Now())
	cart.Add(scarf)
	cart.Add(scarf)
	cart.Add(&list[0])

	order := domain.NewOrderFromCart(uuid.NewString(), domain.Customer{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Phone:   "+44 7700 900123",
		Address: "12 St James's Square, London",
	}, domain.PaymentCashOnDelivery, cart, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, orders.Create(ctx, order))

	got, err := orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "1029.00", got.TotalAmount.StringFixed(2))
	assert.Equal(t, domain.PaymentCashOnDelivery, got.PaymentMethod)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Silk Scarf", got.Items[0].Name)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, "65.00", got.Items[0].UnitPrice.StringFixed(2))

	_, err = orders.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestIntegration_OrderRollsBackOnItemFailure(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	orders := NewOrderRepository(pool)

	cart := domain.NewCart("sess-2", time.Now())
	cart.Lines = append(cart.Lines, domain.CartLine{ProductID: "not-a-uuid", Name: "Broken", Quantity: 1})

	order := domain.NewOrderFromCart(uuid.NewString(), domain.Customer{
		Name: "Ada", Email: "ada@example.com", Phone: "1", Address: "London",
	}, domain.PaymentWhatsApp, cart, time.Now().UTC())
	require.Error(t, orders.Create(ctx, order))

	_, err := orders.GetByID(ctx, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestIntegration_SeedLoadIsIdempotent(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()

	generated := seed.Generate(120, 3, time.Now().UTC().Add(-24*time.Hour))

	n, err := seed.Load(ctx, pool, generated, 50)
	require.NoError(t, err)
	assert.Equal(t, 120, n)

	n, err = seed.Load(ctx, pool, generated, 50)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, total, err := NewProductRepository(pool).List(ctx, domain.ProductFilter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 126, total)
}
