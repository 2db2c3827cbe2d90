// Command seed fills the catalog with generated products for load and
// pagination testing. Reruns with the same -count skip existing rows.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luxemarket/storefront/internal/config"
	"github.com/luxemarket/storefront/internal/seed"
	"github.com/luxemarket/storefront/pkg/database"
	"github.com/luxemarket/storefront/pkg/logger"
)

func main() {
	count := flag.Int("count", 10000, "number of products to generate")
	batch := flag.Int("batch", 500, "rows per round trip")
	rngSeed := flag.Uint64("seed", 1, "generator seed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("storefront-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	start := time.Now()
	products := seed.Generate(*count, *rngSeed, start.UTC())
	inserted, err := seed.Load(ctx, pool, products, *batch)
	if err != nil {
		log.Error("seeding failed", slog.Int("inserted", inserted), slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("catalog seeded",
		slog.Int("generated", len(products)),
		slog.Int("inserted", inserted),
		slog.Duration("took", time.Since(start)),
	)
}
