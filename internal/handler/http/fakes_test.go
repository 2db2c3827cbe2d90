package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/luxemarket/storefront/internal/domain"
	"github.com/luxemarket/storefront/internal/event"
	"github.com/luxemarket/storefront/internal/notifier"
	"github.com/luxemarket/storefront/internal/service"
	apperrors "github.com/luxemarket/storefront/pkg/errors"
	"github.com/luxemarket/storefront/pkg/health"
	pkgkafka "github.com/luxemarket/storefront/pkg/kafka"
	"github.com/luxemarket/storefront/pkg/middleware"
)

const (
	scarfID = "0b8f3c1e-5d2a-4c7e-9f10-2a6b8d4e1c01"
	watchID = "0b8f3c1e-5d2a-4c7e-9f10-2a6b8d4e1c02"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ============================================================================
// In-memory repositories
// ============================================================================

type memProducts struct {
	products []domain.Product
}

func (m *memProducts) List(_ context.Context, f domain.ProductFilter) ([]domain.Product, int, error) {
	var matched []domain.Product
	for _, p := range m.products {
		if f.Category == "" || p.Category == f.Category {
			matched = append(matched, p)
		}
	}
	total := len(matched)
	if f.Offset >= total {
		return []domain.Product{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			p := m.products[i]
			return &p, nil
		}
	}
	return nil, apperrors.NotFound("product", id)
}

type memCarts struct {
	mu    sync.Mutex
	carts map[string]domain.Cart
}

func newMemCarts() *memCarts {
	return &memCarts{carts: make(map[string]domain.Cart)}
}

func (m *memCarts) Get(_ context.Context, sessionID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[sessionID]
	if !ok {
		return nil, apperrors.NotFound("cart", sessionID)
	}
	c.Lines = append([]domain.CartLine(nil), c.Lines...)
	return &c, nil
}

func (m *memCarts) SaveIfVersion(_ context.Context, cart *domain.Cart, expected int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.carts[cart.SessionID].Version != expected {
		return false, nil
	}
	cart.Version = expected + 1
	stored := *cart
	stored.Lines = append([]domain.CartLine(nil), cart.Lines...)
	m.carts[cart.SessionID] = stored
	return true, nil
}

func (m *memCarts) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}

func (m *memCarts) sessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.carts))
	for id := range m.carts {
		ids = append(ids, id)
	}
	return ids
}

type memOrders struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	err    error
	// onCreate runs before the order is stored, outside the lock.
	onCreate func(ctx context.Context)
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[string]*domain.Order)}
}

func (m *memOrders) Create(ctx context.Context, order *domain.Order) error {
	if m.onCreate != nil {
		m.onCreate(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.orders[order.ID] = order
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	return o, nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// ============================================================================
// Test server
// ============================================================================

func catalogFixture() []domain.Product {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	was := decimal.RequireFromString("180.00")
	return []domain.Product{
		{
			ID:            watchID,
			Name:          "Heritage Watch",
			Price:         decimal.RequireFromString("149.99"),
			OriginalPrice: &was,
			ImageURL:      "https://cdn.example.com/watch.jpg",
			Category:      "accessories",
			CreatedAt:     created,
		},
		{
			ID:        scarfID,
			Name:      "Silk Scarf",
			Price:     decimal.RequireFromString("25.50"),
			ImageURL:  "https://cdn.example.com/scarf.jpg",
			Category:  "scarves",
			CreatedAt: created.Add(-time.Hour),
		},
	}
}

type testEnv struct {
	handler http.Handler
	carts   *memCarts
	orders  *memOrders
	cart    *service.CartService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

func newTestEnvWith(t *testing.T, configure func(*RouterConfig)) *testEnv {
	t.Helper()
	logger := testLogger()

	products := &memProducts{products: catalogFixture()}
	carts := newMemCarts()
	orders := newMemOrders()

	dispatcher := notifier.NewDispatcher(nil, notifier.Config{
		Phone:        "+447448071922",
		DeepLinkBase: "https://wa.me",
	}, nil, logger)
	events := event.NewProducer(pkgkafka.NewNopPublisher(logger), logger)

	cartSvc := service.NewCartService(carts, products, logger)
	cfg := RouterConfig{
		Catalog:    service.NewCatalogService(products, logger),
		Cart:       cartSvc,
		Checkout:   service.NewCheckoutService(cartSvc, orders, dispatcher, events, logger),
		Dispatcher: dispatcher,
		Sessions:   NewSessionManager(SessionConfig{Key: []byte("test-session-key-0123456789abcdef"), MaxAge: time.Hour}),
		Health:     health.NewHandler(),
		Logger:     logger,
		CORS:       middleware.DefaultCORSConfig(),
		PprofCIDRs: []string{"127.0.0.1/32"},
	}
	if configure != nil {
		configure(&cfg)
	}
	h := NewRouter(cfg)
	return &testEnv{handler: h, carts: carts, orders: orders, cart: cartSvc}
}

// browser replays cookies between requests the way a shopper's browser does.
type browser struct {
	t       *testing.T
	env     *testEnv
	cookies map[string]*http.Cookie
	headers map[string]string
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, env: e, cookies: map[string]*http.Cookie{}, headers: map[string]string{}}
}

func (b *browser) do(method, path, body string) *httptest.ResponseRecorder {
	b.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	b.env.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}
