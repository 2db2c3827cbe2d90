package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	pkgconfig "github.com/luxemarket/storefront/pkg/config"
	"github.com/luxemarket/storefront/pkg/database"
	"github.com/luxemarket/storefront/pkg/middleware"
	"github.com/luxemarket/storefront/pkg/tracing"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`

	// PostgreSQL. DatabaseURL wins over the individual fields.
	DatabaseURL   string `env:"DATABASE_URL"`
	PostgresHost  string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort  int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser  string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass  string `env:"POSTGRES_PASSWORD" envDefault:"storefront"`
	PostgresDB    string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSL   string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBSlowQueryMS int    `env:"DB_SLOW_QUERY_MS" envDefault:"200"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Cart TTL in hours (default: 7 days)
	CartTTL int `env:"CART_TTL_HOURS" envDefault:"168"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Sessions and browser security
	SessionKey   string   `env:"SESSION_KEY" envDefault:"dev-session-key-change-me-0123456789"`
	CookieSecure bool     `env:"COOKIE_SECURE" envDefault:"false"`
	CookieDomain string   `env:"COOKIE_DOMAIN"`
	CSRFEnabled  bool     `env:"CSRF_ENABLED" envDefault:"false"`
	CSRFKey      string   `env:"CSRF_KEY"`
	CORSOrigins  []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofCIDRs   []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`

	// Per-client throttling of checkout and notification. Zero RPS disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"2"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
	TrustProxy     bool    `env:"TRUST_PROXY" envDefault:"false"`

	// WhatsApp notification
	WhatsAppNumber   string        `env:"WHATSAPP_NUMBER" envDefault:"+447448071922"`
	CallMeBotAPIKey  string        `env:"CALLMEBOT_API_KEY"`
	CallMeBotURL     string        `env:"CALLMEBOT_URL" envDefault:"https://api.callmebot.com/whatsapp.php"`
	DeepLinkBase     string        `env:"WHATSAPP_DEEPLINK_BASE" envDefault:"https://wa.me"`
	NotifyTimeout    time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
	NotifyMaxRetries int           `env:"NOTIFY_MAX_RETRIES" envDefault:"1"`

	// OpenTelemetry
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return load(nil)
}

// LoadFrom reads configuration from environ instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return load(environ)
}

func load(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithEnvironment(cfg, environ); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if _, err := c.Redis(); err != nil {
		return err
	}
	if c.CartTTL <= 0 {
		return fmt.Errorf("invalid CART_TTL_HOURS: %d", c.CartTTL)
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("invalid OTEL_SAMPLE_RATE: %v", c.OTelSampleRate)
	}
	if c.NotifyMaxRetries < 0 {
		return fmt.Errorf("invalid NOTIFY_MAX_RETRIES: %d", c.NotifyMaxRetries)
	}
	if len(c.SessionKey) < 32 {
		return errors.New("SESSION_KEY must be at least 32 bytes")
	}
	if c.CSRFEnabled && len(c.CSRFKey) != 32 {
		return errors.New("CSRF_KEY must be exactly 32 bytes when CSRF_ENABLED is set")
	}
	if c.RateLimitRPS < 0 || (c.RateLimitRPS > 0 && c.RateLimitBurst < 1) {
		return fmt.Errorf("invalid rate limit: rps=%v burst=%d", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// CartTTLDuration returns the cart expiry as a duration.
func (c *Config) CartTTLDuration() time.Duration {
	return time.Duration(c.CartTTL) * time.Hour
}

// SlowQueryThreshold returns the slow query log threshold.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.DBSlowQueryMS) * time.Millisecond
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.URL = c.DatabaseURL
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	pg.MaxConns = c.DBMaxConns
	return pg
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() (database.RedisConfig, error) {
	host, portStr, err := net.SplitHostPort(c.RedisAddr)
	if err != nil {
		return database.RedisConfig{}, fmt.Errorf("invalid REDIS_ADDR %q: %w", c.RedisAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return database.RedisConfig{}, fmt.Errorf("invalid REDIS_ADDR port %q: %w", portStr, err)
	}
	return database.RedisConfig{Host: host, Port: port, Password: c.RedisPass, DB: c.RedisDB}, nil
}

// RateLimit returns the checkout throttle, or nil when disabled.
func (c *Config) RateLimit() *middleware.RateLimitConfig {
	if c.RateLimitRPS == 0 {
		return nil
	}
	return &middleware.RateLimitConfig{
		RPS:               c.RateLimitRPS,
		Burst:             c.RateLimitBurst,
		TrustForwardedFor: c.TrustProxy,
	}
}

// Tracing returns the OpenTelemetry configuration.
func (c *Config) Tracing(version string) tracing.Config {
	return tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTelEndpoint,
		SampleRate:     c.OTelSampleRate,
		Enabled:        c.OTelEnabled,
	}
}
