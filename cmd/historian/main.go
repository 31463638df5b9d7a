// cmd/historian/main.go is an asynchronous historian service that pops game actions from a
// Redis queue and persists them to a PostgreSQL database.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/promptparty/internal/cache"
	"github.com/jason-s-yu/promptparty/internal/config"
	"github.com/jason-s-yu/promptparty/internal/database"
	"github.com/jason-s-yu/promptparty/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("historian exited")
	}
	logger.Info("Historian shutdown complete.")
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}
	logger.Info("database migrations applied")

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	actions := database.NewGameActions(pool)

	opts := historian.DefaultOptions
	opts.Queue = cfg.HistorianQueue
	opts.BatchSize = cfg.HistorianBatchSize
	opts.FlushDelay = cfg.HistorianFlush
	opts.MaxPending = cfg.HistorianBacklog
	opts.Inactivity = cfg.GameInactivity
	return historian.New(rdb, actions, opts, logger).Run(ctx)
}
