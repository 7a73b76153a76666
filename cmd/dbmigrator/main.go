// Command dbmigrator brings every configured scope's store up to date and
// seeds it with the initial elements.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yungbote/elementstore/internal/app"
	"github.com/yungbote/elementstore/internal/platform/config"
)

func main() {
	var configPath string
	var metricsAddr string
	flag.StringVar(&configPath, "config", "", "path to appsettings.yaml (default: search path)")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configPath, metricsAddr); err != nil {
		fmt.Fprintf(os.Stderr, "dbmigrator: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, metricsAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer application.Close(context.Background())
	log := application.Log

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: application.Metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	start := time.Now()
	log.Info("Started database migrations...", "provider", cfg.Database.Provider, "scopes", len(application.Scopes()))
	if err := application.Bootstrap(ctx); err != nil {
		log.Error("Database migration failed", "error", err)
		return err
	}
	log.Info("Successfully completed all database migrations.", "duration", time.Since(start).String())
	return nil
}
