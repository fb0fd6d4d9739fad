package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/bikeshare-trends/internal/adapter/csvfile"
	httpadapter "github.com/couchcryptid/bikeshare-trends/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/bikeshare-trends/internal/adapter/kafka"
	"github.com/couchcryptid/bikeshare-trends/internal/adapter/mapbox"
	"github.com/couchcryptid/bikeshare-trends/internal/config"
	"github.com/couchcryptid/bikeshare-trends/internal/dashboard"
	"github.com/couchcryptid/bikeshare-trends/internal/domain"
	"github.com/couchcryptid/bikeshare-trends/internal/observability"
	"github.com/couchcryptid/bikeshare-trends/internal/pipeline"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	rules, err := config.LoadRules(cfg.CleaningRulesFile)
	if err != nil {
		logger.Error("failed to load cleaning rules", "error", err)
		os.Exit(1)
	}

	loader, err := csvfile.NewLoader(csvfile.Options{
		Paths:     cfg.DataPaths,
		Encodings: cfg.FileEncodings,
		Workers:   cfg.LoadWorkers,
	}, logger, metrics)
	if err != nil {
		logger.Error("invalid loader configuration", "error", err)
		os.Exit(1)
	}
	transformer, err := pipeline.NewTransformer(rules, logger, metrics)
	if err != nil {
		logger.Error("invalid cleaning rules", "error", err)
		os.Exit(1)
	}

	// Optional publishing of the cleaned table (KAFKA_ENABLED).
	var (
		batchLoader pipeline.BatchLoader
		writer      *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		batchLoader = writer
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	p := pipeline.New(loader, transformer, batchLoader, logger, metrics, cfg.PublishBatchSize)

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(mapbox.Options{
			Token:   cfg.MapboxToken,
			Timeout: cfg.MapboxTimeout,
			RPS:     cfg.MapboxRPS,
		}, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	svc := dashboard.NewService(p, geocoder, dashboard.Options{
		City:        cfg.StationCity,
		TopStations: cfg.TopStations,
	}, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server; /readyz reports 503 until the table is built.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	table, err := p.Run(ctx)
	if err != nil {
		logger.Error("failed to build trip table", "error", err)
		shutdown(cfg, srv, writer, logger)
		os.Exit(1)
	}

	if batchLoader != nil {
		go func() {
			if err := p.Publish(ctx, table); err != nil {
				logger.Error("trip publishing failed", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")
	shutdown(cfg, srv, writer, logger)
	logger.Info("shutdown complete")
}

func shutdown(cfg *config.Config, srv *httpadapter.Server, writer *kafkaadapter.Writer, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
}
