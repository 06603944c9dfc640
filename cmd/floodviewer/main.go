package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/flood-viewer-api/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flood-viewer-api/internal/adapter/kafka"
	"github.com/couchcryptid/flood-viewer-api/internal/config"
	"github.com/couchcryptid/flood-viewer-api/internal/events"
	"github.com/couchcryptid/flood-viewer-api/internal/geometry"
	"github.com/couchcryptid/flood-viewer-api/internal/observability"
	"github.com/couchcryptid/flood-viewer-api/internal/pipeline"
	"github.com/couchcryptid/flood-viewer-api/internal/store"
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

	shutdownTracing, err := observability.SetupTracing(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	catalog, err := geometry.LoadConfigured(cfg.GeometryFile)
	if err != nil {
		logger.Error("failed to load region geometry", "error", err, "file", cfg.GeometryFile)
		os.Exit(1)
	}
	metrics.CatalogRegions.Set(float64(catalog.Len()))
	logger.Info("region geometry loaded", "regions", catalog.Len(), "axis_order", cfg.AxisOrder.String())

	st, err := store.Connect(ctx, cfg.StoreDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open event store", "error", err, "driver", cfg.StoreDriver)
		os.Exit(1)
	}
	logger.Info("event store ready", "driver", cfg.StoreDriver)

	// Kafka ingestion and announcements are feature-flagged via KAFKA_ENABLED.
	var (
		publisher events.Publisher
		reader    *kafkaadapter.Reader
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		reader = kafkaadapter.NewReader(cfg, logger)
		publisher = writer
		logger.Info("kafka enabled",
			"brokers", cfg.KafkaBrokers,
			"reports_topic", cfg.KafkaReportsTopic,
			"events_topic", cfg.KafkaEventsTopic,
		)
	} else {
		logger.Info("kafka disabled")
	}

	svc := events.NewService(st, catalog, cfg.AxisOrder, publisher, logger, metrics)

	checks := []observability.NamedCheck{{Name: "store", Checker: svc}}
	var p *pipeline.Pipeline
	if reader != nil {
		p = pipeline.New(reader, pipeline.NewDecoder(), svc, logger, metrics, cfg.BatchSize, nil)
		checks = append(checks, observability.NamedCheck{Name: "pipeline", Checker: p})
	}

	srv := httpadapter.NewServer(httpadapter.Config{
		Addr:           cfg.HTTPAddr,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, svc, catalog, observability.NewReadiness(checks...), metrics, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start ingestion pipeline.
	pipelineDone := make(chan struct{})
	if p != nil {
		go func() {
			defer close(pipelineDone)
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		close(pipelineDone)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-pipelineDone:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := st.Close(); err != nil {
		logger.Error("event store close error", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
