// Command migrate applies or rolls back the storefront schema.
//
//	migrate up       apply all pending migrations
//	migrate down     roll back the latest migration
//	migrate version  print the current schema version
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/luxemarket/storefront/internal/config"
	"github.com/luxemarket/storefront/migrations"
	"github.com/luxemarket/storefront/pkg/database"
	"github.com/luxemarket/storefront/pkg/logger"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate up|down|version")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("storefront-migrate", cfg.LogLevel)

	pgCfg := cfg.Postgres()
	if err := run(os.Args[1], pgCfg.DSN(), log); err != nil {
		log.Error("migration failed", slog.String("command", os.Args[1]), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cmd, dsn string, log *slog.Logger) error {
	switch cmd {
	case "up":
		return database.Migrate(dsn, migrations.FS, database.MigrateUp, log)
	case "down":
		return database.Migrate(dsn, migrations.FS, database.MigrateDown, log)
	case "version":
		m, err := database.NewMigrator(dsn, migrations.FS, log)
		if err != nil {
			return err
		}
		defer func() { _, _ = m.Close() }()

		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
