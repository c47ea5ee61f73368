package merchant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pricecompare/backend/internal/domain"
	"github.com/pricecompare/backend/internal/infrastructure/metrics"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds a single merchant fetch
	DefaultTimeout = 10 * time.Second

	defaultUserAgent           = "PriceCompare/1.0"
	defaultMaxIdleConnsPerHost = 10
	maxDrainBytes              = 4 << 10
)

// FetcherConfig holds configuration for the merchant fetcher
type FetcherConfig struct {
	Timeout             time.Duration
	UserAgent           string
	MaxIdleConnsPerHost int
}

// Fetcher queries merchant APIs. One Fetcher, and its pooled http.Client,
// is shared by every concurrent fetch.
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	logger     *zap.Logger
}

// NewFetcher creates a new merchant fetcher
func NewFetcher(config FetcherConfig, logger *zap.Logger) *Fetcher {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	maxIdle := config.MaxIdleConnsPerHost
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConnsPerHost
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = maxIdle

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fetcher{
		// No client-level timeout: each fetch carries its own deadline.
		httpClient: &http.Client{Transport: transport},
		timeout:    timeout,
		userAgent:  userAgent,
		logger:     logger.Named("merchant"),
	}
}

// BuildURL substitutes the UPC into an endpoint URL template verbatim
func BuildURL(template, upc string) string {
	return strings.ReplaceAll(template, domain.UPCPlaceholder, upc)
}

// FetchPrice fetches and parses one merchant's price for a UPC.
// It never fails: transport, protocol and schema errors are reported in the outcome.
func (f *Fetcher) FetchPrice(ctx context.Context, endpoint domain.Endpoint, upc string) domain.FetchOutcome {
	start := time.Now()
	reqURL := BuildURL(endpoint.URL, upc)

	f.logger.Debug("requesting merchant price",
		zap.String("merchant", endpoint.Name),
		zap.String("url", reqURL))

	outcome, kind := f.fetch(ctx, endpoint.Name, reqURL)
	elapsed := time.Since(start)

	metrics.RecordMerchantFetch(metricsLabel(endpoint.Name), kind, elapsed)
	f.logOutcome(outcome, kind, elapsed)

	return outcome
}

func (f *Fetcher) fetch(ctx context.Context, merchant, reqURL string) (domain.FetchOutcome, string) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return failure(merchant, describeError(err)), metrics.OutcomeError
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return classifyError(ctx, merchant, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain a little so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		return failure(merchant, fmt.Sprintf("HTTP %d", resp.StatusCode)), metrics.OutcomeHTTPError
	}

	var body any
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&body); err != nil {
		return classifyError(ctx, merchant, err)
	}

	payload, ok := body.(map[string]any)
	if !ok {
		return failure(merchant, domain.OutcomeInvalidResponse), metrics.OutcomeInvalidResponse
	}

	price, inStock := Parse(merchant, payload)
	switch {
	case price == nil:
		return failure(merchant, domain.OutcomeInvalidResponse), metrics.OutcomeInvalidResponse
	case inStock:
		return domain.FetchOutcome{
			Merchant: merchant,
			Price:    price,
			URL:      lo.ToPtr(reqURL),
			InStock:  lo.ToPtr(true),
		}, metrics.OutcomeOK
	default:
		return domain.FetchOutcome{
			Merchant: merchant,
			Price:    price,
			URL:      lo.ToPtr(reqURL),
			InStock:  lo.ToPtr(false),
			Error:    lo.ToPtr(domain.OutcomeOutOfStock),
		}, metrics.OutcomeOutOfStock
	}
}

// classifyError folds a transport or decoding error into an outcome
func classifyError(ctx context.Context, merchant string, err error) (domain.FetchOutcome, string) {
	if isTimeout(ctx, err) {
		return failure(merchant, domain.OutcomeTimeout), metrics.OutcomeTimeout
	}
	return failure(merchant, describeError(err)), metrics.OutcomeError
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// describeError strips the "Get <url>:" prefix net/http adds
func describeError(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}

// metricsLabel keeps the merchant label bounded: registry names are free-form,
// so merchants without a schema share one series.
func metricsLabel(name string) string {
	key := strings.ToLower(name)
	schemasMu.RLock()
	_, found := schemas[key]
	schemasMu.RUnlock()
	if !found {
		return metrics.OtherMerchant
	}
	return key
}

func failure(merchant, message string) domain.FetchOutcome {
	return domain.FetchOutcome{
		Merchant: merchant,
		Error:    lo.ToPtr(message),
	}
}

func (f *Fetcher) logOutcome(outcome domain.FetchOutcome, kind string, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("merchant", outcome.Merchant),
		zap.String("outcome", kind),
		zap.Duration("elapsed", elapsed),
	}
	if outcome.Price != nil {
		fields = append(fields, zap.String("price", outcome.Price.StringFixed(2)))
	}
	if outcome.InStock != nil {
		fields = append(fields, zap.Bool("in_stock", *outcome.InStock))
	}
	if outcome.Error != nil {
		fields = append(fields, zap.String("error", *outcome.Error))
	}

	switch kind {
	case metrics.OutcomeOK, metrics.OutcomeOutOfStock:
		f.logger.Info("merchant price fetched", fields...)
	default:
		f.logger.Warn("merchant price fetch failed", fields...)
	}
}
