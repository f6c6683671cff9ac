package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"splitview/internal/api"
	"splitview/internal/config"
	"splitview/internal/events"
	"splitview/internal/gateway"
	"splitview/internal/log"
	"splitview/internal/services"
	"splitview/internal/settings"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", log.FieldError, err)
		os.Exit(1)
	}

	store, err := settings.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to open settings store", log.FieldError, err)
		os.Exit(1)
	}
	defer store.Close()

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		p, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Event publishing is an enrichment, not a dependency.
			logger.Warn("event publisher unavailable, continuing without events", log.FieldError, err)
		} else {
			defer p.Close()
			publisher = p
		}
	}

	backend := api.New(cfg.BackendURL, cfg.RequestTimeout)
	views := services.NewViewService(backend, store, logger, cfg.CacheSize, cfg.CacheTTL)
	defer views.Close()
	ledger := services.NewLedgerService(backend, publisher, logger)

	srv := gateway.New(gateway.Config{
		Port:              cfg.Port,
		RequestsPerMinute: cfg.RateLimitPerMinute,
	}, views, ledger, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("starting splitview", "port", cfg.Port, "backend_url", cfg.BackendURL)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", log.FieldError, err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("server stopped")
}
