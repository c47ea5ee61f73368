package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pricecompare/backend/config"
	httpDelivery "github.com/pricecompare/backend/internal/delivery/http"
	"github.com/pricecompare/backend/internal/domain"
	"github.com/pricecompare/backend/internal/infrastructure/logging"
	"github.com/pricecompare/backend/internal/infrastructure/merchant"
	"github.com/pricecompare/backend/internal/infrastructure/metrics"
	"github.com/pricecompare/backend/internal/infrastructure/registry"
	"github.com/pricecompare/backend/internal/usecase"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting price comparison backend",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("registry", cfg.Registry.Type),
		zap.Duration("merchant_timeout", cfg.Merchant.Timeout))

	metrics.Init()

	repo, closeRepo, err := openRegistry(ctx, cfg.Registry)
	if err != nil {
		return err
	}
	defer closeRepo()

	if cfg.Registry.SeedDefaults {
		inserted, err := registry.Seed(ctx, repo, domain.DefaultEndpoints())
		if err != nil {
			return fmt.Errorf("seed registry: %w", err)
		}
		if inserted > 0 {
			logger.Info("seeded default merchant endpoints", zap.Int("count", inserted))
		}
	}

	warnUnparsedMerchants(ctx, repo, logger)

	// One fetcher and one pooled client for the whole process
	fetcher := merchant.NewFetcher(merchant.FetcherConfig{
		Timeout:             cfg.Merchant.Timeout,
		UserAgent:           cfg.Merchant.UserAgent,
		MaxIdleConnsPerHost: cfg.Merchant.MaxIdleConnsPerHost,
	}, logger)

	comparisonService := usecase.NewComparisonService(repo, fetcher, logger)
	endpointService := usecase.NewEndpointService(repo, logger)

	handler := httpDelivery.NewHandler(comparisonService, endpointService, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// compare waits on the slowest merchant
		WriteTimeout: cfg.Merchant.Timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// openRegistry builds the configured endpoint repository and its closer
func openRegistry(ctx context.Context, cfg config.RegistryConfig) (domain.EndpointRepository, func(), error) {
	switch cfg.Type {
	case "memory":
		return registry.NewMemoryRepository(), func() {}, nil
	default:
		repo, err := registry.NewSQLiteRepository(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open registry: %w", err)
		}
		return repo, func() { repo.Close() }, nil
	}
}

// warnUnparsedMerchants flags active endpoints whose name has no response schema;
// their fetches will always report an invalid response.
func warnUnparsedMerchants(ctx context.Context, repo domain.EndpointRepository, logger *zap.Logger) {
	active, err := repo.ListActive(ctx)
	if err != nil {
		logger.Warn("could not list active endpoints", zap.Error(err))
		return
	}

	known := merchant.KnownMerchants()
	for _, endpoint := range active {
		if !lo.Contains(known, strings.ToLower(endpoint.Name)) {
			logger.Warn("active endpoint has no response schema",
				zap.Int64("id", endpoint.ID),
				zap.String("name", endpoint.Name))
		}
	}
}
