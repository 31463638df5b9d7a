// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/promptparty/internal/auth"
	"github.com/jason-s-yu/promptparty/internal/broadcast"
	"github.com/jason-s-yu/promptparty/internal/cache"
	"github.com/jason-s-yu/promptparty/internal/config"
	"github.com/jason-s-yu/promptparty/internal/game"
	"github.com/jason-s-yu/promptparty/internal/handlers"
	"github.com/jason-s-yu/promptparty/internal/packs"
	"github.com/jason-s-yu/promptparty/internal/presence"
	"github.com/jason-s-yu/promptparty/internal/scheduler"
	"github.com/jason-s-yu/promptparty/internal/session"
	"github.com/jason-s-yu/promptparty/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("server exited")
	}
	logger.Info("server shutdown complete")
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	catalog, err := loadCatalog(cfg.PacksFile, logger)
	if err != nil {
		return err
	}
	issuer, err := loadIssuer(cfg, logger)
	if err != nil {
		return err
	}

	sched := scheduler.New(rdb, cfg.SchedulerPoll, logger)
	hub := broadcast.NewHub(logger)
	relay := broadcast.NewRelay(rdb, hub, logger)
	controller := &session.Controller{
		Engine: game.NewEngine(catalog),
		Store: store.New(rdb, store.Options{
			LockExpiry:     cfg.LockExpiry,
			LockTries:      cfg.LockTries,
			LockRetryDelay: cfg.LockRetryDelay,
			TTL:            cfg.GameTTL,
		}, logger),
		Presence: presence.New(rdb, cfg.PresenceTTL),
		Timeouts: sched,
		Notifier: broadcast.NewPublisher(rdb),
		Recorder: cache.NewActionQueue(rdb, cfg.HistorianQueue),
		Verify:   auth.VerifyPassword,
		Logger:   logger,
	}
	api := &handlers.APIServer{
		Controller:     controller,
		Catalog:        catalog,
		Issuer:         issuer,
		Hub:            hub,
		Logger:         logger,
		HashPassword:   auth.HashPassword,
		Heartbeat:      cfg.PresenceTTL / 3,
		OriginPatterns: cfg.AllowedOrigins,
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error {
		sched.Run(gctx, controller)
		return nil
	})
	g.Go(func() error {
		logger.Infof("Running on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// loadCatalog reads the pack file when present and falls back to the bundled packs.
func loadCatalog(path string, logger logrus.FieldLogger) (*packs.Catalog, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.WithField("file", path).Info("pack file not found, using bundled packs")
		return packs.Default(), nil
	}
	catalog, err := packs.LoadFile(path)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"file": path, "packs": len(catalog.List())}).Info("loaded card packs")
	return catalog, nil
}

// loadIssuer uses the configured key pair, or a per-process one for single-instance setups.
func loadIssuer(cfg config.Config, logger logrus.FieldLogger) (*auth.Issuer, error) {
	if cfg.PrivateKeyPath == "" || cfg.PublicKeyPath == "" {
		logger.Warn("JWT_PRIVATE_KEY/JWT_PUBLIC_KEY not set, generating ephemeral signing keys")
		return auth.NewIssuer(cfg.TokenExpire)
	}
	return auth.NewIssuerFromFiles(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenExpire)
}
