package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"medeasy/pharmacy/internal/api"
	"medeasy/pharmacy/internal/config"
	"medeasy/pharmacy/internal/database"
	"medeasy/pharmacy/internal/logger"
	"medeasy/pharmacy/internal/metrics"
	"medeasy/pharmacy/internal/migrations"
	"medeasy/pharmacy/internal/seed"
	"medeasy/pharmacy/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	if err := run(cfg, logg); err != nil {
		logg.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return err
	}
	st := store.New(db)

	if cfg.SeedDemo {
		if err := seed.Demo(ctx, st, time.Now().UTC(), logg); err != nil {
			return err
		}
	}
	if cfg.DrugCatalogCSV != "" {
		if _, err := seed.LoadCatalog(ctx, st, cfg.DrugCatalogCSV, logg); err != nil {
			logg.Warn("drug catalog not loaded", zap.String("path", cfg.DrugCatalogCSV), zap.Error(err))
		}
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}
	handler := api.New(st, api.Options{
		Secret:      cfg.Secret,
		TokenTTL:    cfg.TokenTTL,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logg,
		Metrics:     m,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info("pharmacy server starting", zap.String("addr", srv.Addr), zap.String("driver", cfg.DatabaseDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
