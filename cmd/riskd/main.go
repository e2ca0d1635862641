// Command riskd consumes layer queries from Kafka, publishes fire risk
// layers to the result topic, and serves the same layers over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/wildfire-risk-service/internal/adapter/catalog"
	"github.com/couchcryptid/wildfire-risk-service/internal/adapter/fixture"
	"github.com/couchcryptid/wildfire-risk-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/wildfire-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/wildfire-risk-service/internal/config"
	"github.com/couchcryptid/wildfire-risk-service/internal/domain"
	"github.com/couchcryptid/wildfire-risk-service/internal/observability"
	"github.com/couchcryptid/wildfire-risk-service/internal/pipeline"
	"github.com/couchcryptid/wildfire-risk-service/internal/risk"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	cat, err := newCatalog(cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to open catalog", "error", err)
		os.Exit(1)
	}

	classifier := risk.New(cat, risk.SettingsFromConfig(cfg), logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(classifier, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, classifier, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return p.Run(gctx)
	})

	// Drain the server once a signal arrives or either component fails.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
	}

	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// newCatalog returns the fixture catalog when CATALOG_FIXTURE is set and the
// cached HTTP catalog otherwise.
func newCatalog(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (domain.Catalog, error) {
	if cfg.CatalogFixture != "" {
		c, err := fixture.Load(cfg.CatalogFixture)
		if err != nil {
			return nil, err
		}
		logger.Info("using fixture catalog", "path", cfg.CatalogFixture, "slices", c.Len())
		return c, nil
	}

	client := catalog.NewClient(cfg.CatalogURL, cfg.CatalogToken, cfg.CatalogTimeout, cfg.CatalogRateLimit, metrics, logger)
	logger.Info("using catalog API",
		"url", cfg.CatalogURL,
		"cache_size", cfg.CatalogCacheSize,
		"rate_limit", cfg.CatalogRateLimit,
		"timeout", cfg.CatalogTimeout,
	)
	return catalog.NewCachedCatalog(client, cfg.CatalogCacheSize, metrics), nil
}
