package usecase

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/pricecompare/backend/internal/domain"
	"github.com/pricecompare/backend/internal/infrastructure/metrics"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ComparisonService fans a UPC out to every active merchant and picks the best price
type ComparisonService struct {
	endpoints domain.EndpointRepository
	fetcher   domain.PriceFetcher
	logger    *zap.Logger
	now       func() time.Time
}

// NewComparisonService creates a new comparison service with dependencies
func NewComparisonService(
	endpoints domain.EndpointRepository,
	fetcher domain.PriceFetcher,
	logger *zap.Logger,
) *ComparisonService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ComparisonService{
		endpoints: endpoints,
		fetcher:   fetcher,
		logger:    logger.Named("comparison"),
		now:       time.Now,
	}
}

// Compare validates the request, snapshots the active endpoints and compares prices across them.
func (s *ComparisonService) Compare(ctx context.Context, request *domain.CompareRequest) (*domain.ComparisonResult, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}

	upc := request.UPC
	if upc == "" || utf8.RuneCountInString(upc) > domain.MaxUPCLength {
		return nil, fmt.Errorf("%w: upc must be 1-%d characters", domain.ErrInvalidRequest, domain.MaxUPCLength)
	}

	active, err := s.endpoints.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, err)
	}

	return s.ComparePrices(ctx, upc, active)
}

// ComparePrices queries every endpoint concurrently and waits for all of them.
// results[i] always belongs to endpoints[i]. Merchant failures are reported
// per outcome; only an empty endpoint list fails the call.
func (s *ComparisonService) ComparePrices(
	ctx context.Context,
	upc string,
	endpoints []domain.Endpoint,
) (*domain.ComparisonResult, error) {
	start := time.Now()

	if len(endpoints) == 0 {
		metrics.RecordComparison(metrics.ComparisonNoEndpoints, time.Since(start))
		return nil, domain.ErrNoActiveEndpoints
	}

	s.logger.Info("comparing prices",
		zap.String("upc", upc),
		zap.Int("merchants", len(endpoints)))

	results := make([]domain.FetchOutcome, len(endpoints))

	// Plain Group, not WithContext: one merchant must never cancel the others.
	var group errgroup.Group
	for i, endpoint := range endpoints {
		group.Go(func() error {
			results[i] = s.fetcher.FetchPrice(ctx, endpoint, upc)
			return nil
		})
	}
	_ = group.Wait()

	result := &domain.ComparisonResult{
		UPC:     upc,
		Results: results,
	}

	if best, ok := SelectBest(results); ok {
		result.BestPrice = best.Price
		result.BestMerchant = lo.ToPtr(best.Merchant)
		result.BestURL = best.URL
	}
	result.ComparisonTime = domain.FormatComparisonTime(s.now())

	label := metrics.ComparisonOK
	if result.BestPrice == nil {
		label = metrics.ComparisonNoStock
	}
	metrics.RecordComparison(label, time.Since(start))

	fields := []zap.Field{
		zap.String("upc", upc),
		zap.Int("merchants", len(results)),
		zap.Int("available", lo.CountBy(results, domain.FetchOutcome.Available)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if result.BestPrice != nil {
		fields = append(fields,
			zap.String("best_merchant", *result.BestMerchant),
			zap.String("best_price", result.BestPrice.StringFixed(2)))
	}
	s.logger.Info("price comparison complete", fields...)

	return result, nil
}

// SelectBest returns the cheapest in-stock outcome. On equal prices the
// earliest outcome wins.
func SelectBest(results []domain.FetchOutcome) (domain.FetchOutcome, bool) {
	available := lo.Filter(results, func(o domain.FetchOutcome, _ int) bool {
		return o.Available()
	})
	if len(available) == 0 {
		return domain.FetchOutcome{}, false
	}

	return lo.MinBy(available, func(a, b domain.FetchOutcome) bool {
		return a.Price.LessThan(*b.Price)
	}), true
}
