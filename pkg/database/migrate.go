package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers the pgx5:// driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrateCommand is a migration direction understood by Migrate.
type MigrateCommand string

const (
	MigrateUp   MigrateCommand = "up"
	MigrateDown MigrateCommand = "down"
)

// isConnectionError reports whether err looks like a transient connection
// problem. Only connection errors are retried; SQL errors are returned as is.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, p := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"i/o timeout",
		"dial tcp",
		"EOF",
		"connection timed out",
		"server closed the connection unexpectedly",
		"could not connect",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// migrateURL rewrites a postgres:// DSN to the scheme the pgx v5 driver registers.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// migrateLogger adapts slog to migrate.Logger.
type migrateLogger struct {
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool { return false }

// NewMigrator builds a migrate instance reading *.sql files from migrations.
func NewMigrator(dsn string, migrations fs.FS, logger *slog.Logger) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dsn))
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	if logger != nil {
		m.Log = migrateLogger{logger: logger}
	}
	return m, nil
}

// RunMigrations applies all pending up migrations. Transient connection
// errors are retried three times with exponential backoff.
func RunMigrations(ctx context.Context, dsn string, migrations fs.FS, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < defaultRetryAttempts; attempt++ {
		if attempt > 0 {
			wait := retryBackoff(attempt - 1)
			logger.Warn("migration failed due to connection error, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", defaultRetryAttempts),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			if err := sleepCtx(ctx, wait); err != nil {
				return fmt.Errorf("run migrations: context canceled during retry: %w", err)
			}
		}

		lastErr = Migrate(dsn, migrations, MigrateUp, logger)
		if lastErr == nil {
			return nil
		}
		if !isConnectionError(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("run migrations after %d attempts: %w", defaultRetryAttempts, lastErr)
}

// Migrate runs a single command. "down" rolls back one step. A no-op is not an error.
func Migrate(dsn string, migrations fs.FS, cmd MigrateCommand, logger *slog.Logger) error {
	m, err := NewMigrator(dsn, migrations, logger)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	switch cmd {
	case MigrateUp:
		err = m.Up()
	case MigrateDown:
		err = m.Steps(-1)
	default:
		return fmt.Errorf("unknown migrate command %q", cmd)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		if logger != nil {
			logger.Info("no pending migrations", slog.String("command", string(cmd)))
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", cmd, err)
	}

	if logger != nil {
		version, dirty, verr := m.Version()
		if verr == nil {
			logger.Info("migrations applied",
				slog.String("command", string(cmd)),
				slog.Uint64("version", uint64(version)),
				slog.Bool("dirty", dirty),
			)
		}
	}
	return nil
}
