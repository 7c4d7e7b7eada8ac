package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/glof-risk-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/glof-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/glof-risk-service/internal/adapter/sqlite"
	"github.com/couchcryptid/glof-risk-service/internal/config"
	"github.com/couchcryptid/glof-risk-service/internal/observability"
	"github.com/couchcryptid/glof-risk-service/internal/pipeline"
	"github.com/couchcryptid/glof-risk-service/internal/retention"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Error("failed to open store", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	logger.Info("reading store opened", "path", cfg.DBPath)

	scheduler, err := retention.NewScheduler(cfg.RetentionSchedule, cfg.RetentionPeriod, store, clockwork.NewRealClock(), logger, metrics)
	if err != nil {
		logger.Error("failed to configure retention", "error", err)
		_ = store.Close()
		os.Exit(1)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)
	transformer := pipeline.NewTransformer(store, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Options{
		Ready:         p,
		Store:         store,
		Readings:      store,
		Alerts:        store,
		DefaultWindow: cfg.DashboardWindow,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	scheduler.Start()

	// Start risk pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	scheduler.Stop(shutdownCtx)

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}

	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
