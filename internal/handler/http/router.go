package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luxemarket/storefront/internal/service"
	"github.com/luxemarket/storefront/pkg/health"
	"github.com/luxemarket/storefront/pkg/httputil"
	"github.com/luxemarket/storefront/pkg/middleware"
)

const serviceName = "storefront"

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	Catalog    *service.CatalogService
	Cart       *service.CartService
	Checkout   *service.CheckoutService
	Dispatcher Dispatcher
	Sessions   *SessionManager
	Health     *health.Handler
	Logger     *slog.Logger

	CORS       middleware.CORSConfig
	PprofCIDRs []string

	// CSRFKey enables CSRF protection on mutating /api/v1 routes when set.
	CSRFKey    []byte
	CSRFSecure bool

	// RateLimit throttles order placement and notification per client.
	// Nil disables it.
	RateLimit *middleware.RateLimitConfig
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(cfg.Sessions.Middleware)
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	catalogHandler := NewCatalogHandler(cfg.Catalog, logger)
	cartHandler := NewCartHandler(cfg.Cart, cfg.Sessions, logger)
	checkoutHandler := NewCheckoutHandler(cfg.Checkout, logger)
	notifyHandler := NewNotifyHandler(cfg.Dispatcher)

	throttle := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimit != nil {
		throttle = middleware.RateLimit(*cfg.RateLimit, logger)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		if len(cfg.CSRFKey) > 0 {
			r.Use(csrfProtect(cfg.CSRFKey, cfg.CSRFSecure, logger))
			r.Get("/csrf", csrfToken)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(60))
			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/products/{id}", catalogHandler.GetProduct)
			r.Get("/storefront", catalogHandler.Storefront)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)

			r.Get("/cart", cartHandler.GetCart)
			r.Delete("/cart", cartHandler.ClearCart)
			r.Post("/cart/lines", cartHandler.AddItem)
			r.Put("/cart/lines/{productId}", cartHandler.UpdateQuantity)
			r.Delete("/cart/lines/{productId}", cartHandler.RemoveItem)
			r.Post("/cart/drawer/open", cartHandler.OpenDrawer)
			r.Post("/cart/drawer/close", cartHandler.CloseDrawer)
			r.Delete("/session", cartHandler.EndSession)

			r.With(throttle).Post("/checkout", checkoutHandler.PlaceOrder)
			r.Get("/orders/{id}", checkoutHandler.GetOrder)
		})
	})

	// Outside /api/v1 so the notification contract stays free of CSRF and
	// the data envelope. No content type check: any body that is not a valid
	// payload still gets the 200 manual shape.
	r.With(throttle).Post("/api/notify-whatsapp", notifyHandler.Notify)

	return r
}

func csrfProtect(key []byte, secure bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reason := csrf.FailureReason(r)
			logger.WarnContext(r.Context(), "csrf check failed",
				slog.String("path", r.URL.Path),
				slog.Any("reason", reason),
			)
			httputil.WriteJSON(w, http.StatusForbidden, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "CSRF_INVALID", Message: "invalid or missing CSRF token"},
			})
		})),
	)
}

// csrfToken handles GET /api/v1/csrf. The token is also echoed in the
// X-CSRF-Token header for clients that read headers only.
func csrfToken(w http.ResponseWriter, r *http.Request) {
	token := csrf.Token(r)
	w.Header().Set("X-CSRF-Token", token)
	httputil.WriteData(w, http.StatusOK, map[string]string{"token": token})
}
