// Package metrics provides Prometheus metrics for merchant fetches and price comparisons.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcome labels
const (
	OutcomeOK              = "ok"
	OutcomeOutOfStock      = "out_of_stock"
	OutcomeInvalidResponse = "invalid_response"
	OutcomeHTTPError       = "http_error"
	OutcomeTimeout         = "timeout"
	OutcomeError           = "error"
)

// OtherMerchant is the merchant label for endpoints without a response schema
const OtherMerchant = "other"

// Comparison result labels
const (
	ComparisonOK          = "ok"
	ComparisonNoEndpoints = "no_endpoints"
	ComparisonNoStock     = "no_stock"
)

var (
	// MerchantFetchTotal counts merchant fetches by outcome.
	MerchantFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merchant_fetch_total",
			Help: "Total number of merchant price fetches by outcome",
		},
		[]string{"merchant", "outcome"},
	)

	// MerchantFetchDuration is a histogram of merchant fetch latency.
	MerchantFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "merchant_fetch_duration_seconds",
			Help:    "Duration of merchant price fetches",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"merchant"},
	)

	// ComparisonsTotal counts comparison runs by result.
	ComparisonsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_comparisons_total",
			Help: "Total number of price comparisons",
		},
		[]string{"result"},
	)

	// ComparisonDuration is a histogram of full fan-out duration.
	ComparisonDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "price_comparison_duration_seconds",
			Help:    "Duration of price comparisons across all merchants",
			Buckets: prometheus.DefBuckets,
		},
	)

	registerOnce sync.Once
)

// Init registers all metrics with the default Prometheus registry.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			MerchantFetchTotal,
			MerchantFetchDuration,
			ComparisonsTotal,
			ComparisonDuration,
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordMerchantFetch records one merchant fetch.
func RecordMerchantFetch(merchant, outcome string, duration time.Duration) {
	MerchantFetchTotal.WithLabelValues(merchant, outcome).Inc()
	MerchantFetchDuration.WithLabelValues(merchant).Observe(duration.Seconds())
}

// RecordComparison records one comparison run.
func RecordComparison(result string, duration time.Duration) {
	ComparisonsTotal.WithLabelValues(result).Inc()
	if result != ComparisonNoEndpoints {
		ComparisonDuration.Observe(duration.Seconds())
	}
}
