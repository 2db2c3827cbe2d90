package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/luxemarket/storefront/internal/config"
	"github.com/luxemarket/storefront/internal/event"
	handler "github.com/luxemarket/storefront/internal/handler/http"
	"github.com/luxemarket/storefront/internal/notifier"
	"github.com/luxemarket/storefront/internal/repository/postgres"
	redisrepo "github.com/luxemarket/storefront/internal/repository/redis"
	"github.com/luxemarket/storefront/internal/service"
	"github.com/luxemarket/storefront/migrations"
	"github.com/luxemarket/storefront/pkg/database"
	"github.com/luxemarket/storefront/pkg/health"
	"github.com/luxemarket/storefront/pkg/httpclient"
	pkgkafka "github.com/luxemarket/storefront/pkg/kafka"
	"github.com/luxemarket/storefront/pkg/middleware"
	"github.com/luxemarket/storefront/pkg/tracing"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "0.1.0"

// eventPublisher is satisfied by both the Kafka producer and the no-op
// publisher used when Kafka is disabled.
type eventPublisher interface {
	event.Publisher
	Ping(ctx context.Context) error
	Close() error
}

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	publisher      eventPublisher
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(Version))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// PostgreSQL holds the catalog and placed orders.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL", slog.Int("max_conns", int(pgCfg.MaxConns)))

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, "storefront"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	if cfg.RunMigrations {
		if err := database.RunMigrations(ctx, pgCfg.DSN(), migrations.FS, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")
	}

	if threshold := cfg.SlowQueryThreshold(); threshold > 0 {
		database.SetSlowQueryLogging(threshold, logger)
	}

	// Redis holds one cart container per session.
	redisCfg, err := cfg.Redis()
	if err != nil {
		pool.Close()
		return nil, err
	}
	rdb, err := database.NewRedisClient(ctx, redisCfg, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	var publisher eventPublisher
	if cfg.KafkaEnabled {
		publisher = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		publisher = pkgkafka.NewNopPublisher(logger)
		logger.Info("kafka disabled, domain events will be dropped")
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Notification dispatch. Without an API key every order goes out through
	// the manual deep link.
	var sender notifier.Sender
	if cfg.CallMeBotAPIKey != "" {
		clientCfg := httpclient.DefaultConfig()
		clientCfg.Timeout = cfg.NotifyTimeout
		clientCfg.MaxRetries = cfg.NotifyMaxRetries
		cbClient := httpclient.NewCircuitBreakerClient(
			httpclient.New(clientCfg),
			httpclient.DefaultCircuitBreakerConfig("whatsapp-gateway"),
			logger,
		)
		sender = notifier.NewWhatsAppGateway(cbClient, notifier.GatewayConfig{
			URL:    cfg.CallMeBotURL,
			APIKey: cfg.CallMeBotAPIKey,
		}, logger)
		logger.Info("automatic whatsapp notifications enabled")
	} else {
		logger.Warn("CALLMEBOT_API_KEY not set, order notifications use the manual WhatsApp link")
	}
	dispatcher := notifier.NewDispatcher(sender, notifier.Config{
		Phone:        cfg.WhatsAppNumber,
		DeepLinkBase: cfg.DeepLinkBase,
	}, eventProducer, logger)

	// Build the dependency graph.
	products := postgres.NewProductRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	carts := redisrepo.NewCartRepository(rdb, cfg.CartTTLDuration())

	catalogService := service.NewCatalogService(products, logger)
	cartService := service.NewCartService(carts, products, logger)
	checkoutService := service.NewCheckoutService(cartService, orders, dispatcher, eventProducer, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if cfg.KafkaEnabled {
		healthHandler.RegisterOptional("kafka", publisher.Ping)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins

	routerCfg := handler.RouterConfig{
		Catalog:    catalogService,
		Cart:       cartService,
		Checkout:   checkoutService,
		Dispatcher: dispatcher,
		Sessions: handler.NewSessionManager(handler.SessionConfig{
			Key:    []byte(cfg.SessionKey),
			MaxAge: cfg.CartTTLDuration(),
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
		}),
		Health:     healthHandler,
		Logger:     logger,
		CORS:       cors,
		PprofCIDRs: cfg.PprofCIDRs,
		CSRFSecure: cfg.CookieSecure,
		RateLimit:  cfg.RateLimit(),
	}
	if cfg.CSRFEnabled {
		routerCfg.CSRFKey = []byte(cfg.CSRFKey)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler.NewRouter(routerCfg),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		publisher:      publisher,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown drains HTTP first, then flushes spans and closes Kafka, Redis and
// PostgreSQL in that order.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.publisher.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
