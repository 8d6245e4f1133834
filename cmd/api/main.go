package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/abhijith-96/city-weather/internal/adapter/http"
	"github.com/abhijith-96/city-weather/internal/adapter/mongodb"
	"github.com/abhijith-96/city-weather/internal/adapter/openweather"
	"github.com/abhijith-96/city-weather/internal/adapter/rabbitmq"
	"github.com/abhijith-96/city-weather/internal/config"
	"github.com/abhijith-96/city-weather/internal/location"
	"github.com/abhijith-96/city-weather/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := mongodb.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to mongodb", "error", err)
		os.Exit(1)
	}

	bus, err := rabbitmq.Connect(cfg, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		_ = store.Close(context.Background())
		os.Exit(1)
	}

	fetcher := openweather.NewClient(cfg, logger)
	svc := location.NewService(store, bus, fetcher, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, store, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := bus.Close(); err != nil {
		logger.Error("rabbitmq close error", "error", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("mongodb close error", "error", err)
	}

	logger.Info("shutdown complete")
}
