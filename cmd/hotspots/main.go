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

	"github.com/couchcryptid/firms-hotspot-service/internal/adapter/firms"
	"github.com/couchcryptid/firms-hotspot-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/firms-hotspot-service/internal/adapter/kafka"
	"github.com/couchcryptid/firms-hotspot-service/internal/config"
	"github.com/couchcryptid/firms-hotspot-service/internal/domain"
	"github.com/couchcryptid/firms-hotspot-service/internal/observability"
	"github.com/couchcryptid/firms-hotspot-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Optional Kafka sink (feature-flagged via KAFKA_ENABLED).
	var (
		sink   domain.Sink
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, metrics, logger)
		sink = writer
		metrics.SinkEnabled.Set(1)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka sink disabled")
	}

	client := firms.NewClient(firms.ClientConfig{
		MapKey:             cfg.MapKey,
		BaseURL:            cfg.BaseURL,
		Timeout:            cfg.Timeout,
		BreakerFailures:    cfg.BreakerFailures,
		BreakerOpenTimeout: cfg.BreakerOpenTimeout,
	}, metrics, logger)

	cache := firms.NewCache(client, firms.CacheConfig{
		MapKey:        cfg.MapKey,
		RefreshWindow: cfg.RefreshWindow,
		MaxEntries:    cfg.CacheMaxEntries,
		Location:      cfg.Location,
		Clock:         clock,
		Sink:          sink,
	}, metrics, logger)

	p := pipeline.New(cache, cfg.Query(0), clock, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, cfg.RefreshRateLimit, logger)

	logger.Info("firms hotspot service configured",
		"source", cfg.Source,
		"bbox", cfg.BBox.String(),
		"days", cfg.Days,
		"refresh_window", cfg.RefreshWindow,
		"timezone", cfg.Location.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Keep the default view warm.
	go func() {
		if err := p.Run(ctx, cfg.RefreshWindow); err != nil {
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
	cache.Wait()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
