package merchant

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pricecompare/backend/internal/domain"
	"github.com/pricecompare/backend/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMerchantServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}
}

func TestNewFetcher(t *testing.T) {
	fetcher := NewFetcher(FetcherConfig{}, nil)

	assert.NotNil(t, fetcher.httpClient)
	assert.Equal(t, DefaultTimeout, fetcher.timeout)
	assert.Equal(t, "PriceCompare/1.0", fetcher.userAgent)
	assert.NotNil(t, fetcher.logger)
	assert.Zero(t, fetcher.httpClient.Timeout)

	custom := NewFetcher(FetcherConfig{Timeout: 2 * time.Second, UserAgent: "Test/2.0"}, nil)
	assert.Equal(t, 2*time.Second, custom.timeout)
	assert.Equal(t, "Test/2.0", custom.userAgent)
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		template string
		upc      string
		want     string
	}{
		{"https://a.example.com/api/v1/itemdata?upc={upc}", "123456789012", "https://a.example.com/api/v1/itemdata?upc=123456789012"},
		{"https://b.example.com/{upc}/productinfo", "0001", "https://b.example.com/0001/productinfo"},
		{"https://c.example.com/static", "0001", "https://c.example.com/static"},
		{"https://d.example.com/{upc}?again={upc}", "42", "https://d.example.com/42?again=42"},
		// no escaping
		{"https://e.example.com/{upc}", "a b&c", "https://e.example.com/a b&c"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildURL(tt.template, tt.upc))
		})
	}
}

func TestFetchPrice_InStock(t *testing.T) {
	server := newMerchantServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/itemdata", r.URL.Path)
		assert.Equal(t, "123456789012", r.URL.Query().Get("upc"))
		assert.Equal(t, "PriceCompare/1.0", r.Header.Get("User-Agent"))
		jsonHandler(http.StatusOK, `{"price": "$4.77", "stock": 7}`)(w, r)
	})

	fetcher := NewFetcher(FetcherConfig{}, nil)
	endpoint := domain.Endpoint{Name: "Appedia", URL: server.URL + "/api/v1/itemdata?upc={upc}"}

	outcome := fetcher.FetchPrice(context.Background(), endpoint, "123456789012")

	assert.Equal(t, "Appedia", outcome.Merchant)
	require.NotNil(t, outcome.Price)
	assert.Equal(t, "4.77", outcome.Price.String())
	require.NotNil(t, outcome.URL)
	assert.Equal(t, server.URL+"/api/v1/itemdata?upc=123456789012", *outcome.URL)
	require.NotNil(t, outcome.InStock)
	assert.True(t, *outcome.InStock)
	assert.Nil(t, outcome.Error)
	assert.True(t, outcome.Available())
}

func TestFetchPrice_OutOfStockKeepsPrice(t *testing.T) {
	server := newMerchantServer(t, jsonHandler(http.StatusOK, `{"available": false, "price": 5.67}`))

	fetcher := NewFetcher(FetcherConfig{}, nil)
	outcome := fetcher.FetchPrice(context.Background(),
		domain.Endpoint{Name: "Micromazon", URL: server.URL + "/{upc}/productinfo"}, "111")

	require.NotNil(t, outcome.Price)
	assert.Equal(t, "5.67", outcome.Price.String())
	require.NotNil(t, outcome.URL)
	assert.Equal(t, server.URL+"/111/productinfo", *outcome.URL)
	require.NotNil(t, outcome.InStock)
	assert.False(t, *outcome.InStock)
	require.NotNil(t, outcome.Error)
	assert.Equal(t, "Out of stock", *outcome.Error)
	assert.False(t, outcome.Available())
}

func TestFetchPrice_InvalidResponseFormat(t *testing.T) {
	tests := []struct {
		name     string
		merchant string
		body     string
	}{
		{"schema mismatch", "Appedia", `{"price": "invalid", "stock": 7}`},
		{"unknown merchant", "Nobody", `{"price": "$1.00", "stock": 1}`},
		{"array body", "Appedia", `[1, 2, 3]`},
		{"scalar body", "Googdit", `42`},
		{"null locations", "Googdit", `{"a": null, "p": 478000000}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newMerchantServer(t, jsonHandler(http.StatusOK, tt.body))
			fetcher := NewFetcher(FetcherConfig{}, nil)

			outcome := fetcher.FetchPrice(context.Background(),
				domain.Endpoint{Name: tt.merchant, URL: server.URL + "/{upc}"}, "1")

			assert.Equal(t, tt.merchant, outcome.Merchant)
			assert.Nil(t, outcome.Price)
			assert.Nil(t, outcome.URL)
			assert.Nil(t, outcome.InStock)
			require.NotNil(t, outcome.Error)
			assert.Equal(t, "Invalid response format", *outcome.Error)
		})
	}
}

func TestFetchPrice_HTTPError(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusCreated} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := newMerchantServer(t, jsonHandler(status, `{"price": "$4.77", "stock": 7}`))
			fetcher := NewFetcher(FetcherConfig{}, nil)

			outcome := fetcher.FetchPrice(context.Background(),
				domain.Endpoint{Name: "Appedia", URL: server.URL + "/{upc}"}, "1")

			assert.Nil(t, outcome.Price)
			assert.Nil(t, outcome.URL)
			require.NotNil(t, outcome.Error)
			assert.Equal(t, fmt.Sprintf("HTTP %d", status), *outcome.Error)
		})
	}
}

func TestFetchPrice_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := newMerchantServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	fetcher := NewFetcher(FetcherConfig{Timeout: 50 * time.Millisecond}, nil)

	start := time.Now()
	outcome := fetcher.FetchPrice(context.Background(),
		domain.Endpoint{Name: "Googdit", URL: server.URL + "/{upc}"}, "1")

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Nil(t, outcome.Price)
	require.NotNil(t, outcome.Error)
	assert.Equal(t, "Request timeout", *outcome.Error)
}

func TestFetchPrice_TimeoutWhileReadingBody(t *testing.T) {
	release := make(chan struct{})
	server := newMerchantServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"price": `)
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	fetcher := NewFetcher(FetcherConfig{Timeout: 50 * time.Millisecond}, nil)
	outcome := fetcher.FetchPrice(context.Background(),
		domain.Endpoint{Name: "Micromazon", URL: server.URL + "/{upc}"}, "1")

	require.NotNil(t, outcome.Error)
	assert.Equal(t, "Request timeout", *outcome.Error)
}

func TestFetchPrice_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	deadURL := server.URL
	server.Close()

	fetcher := NewFetcher(FetcherConfig{}, nil)
	outcome := fetcher.FetchPrice(context.Background(),
		domain.Endpoint{Name: "Appedia", URL: deadURL + "/{upc}"}, "1")

	assert.Equal(t, "Appedia", outcome.Merchant)
	assert.Nil(t, outcome.Price)
	require.NotNil(t, outcome.Error)
	assert.NotEmpty(t, *outcome.Error)
	assert.NotEqual(t, "Request timeout", *outcome.Error)
	assert.NotContains(t, *outcome.Error, "Get \"")
}

func TestFetchPrice_MalformedJSON(t *testing.T) {
	server := newMerchantServer(t, jsonHandler(http.StatusOK, `<html>not json</html>`))

	fetcher := NewFetcher(FetcherConfig{}, nil)
	outcome := fetcher.FetchPrice(context.Background(),
		domain.Endpoint{Name: "Appedia", URL: server.URL + "/{upc}"}, "1")

	assert.Nil(t, outcome.Price)
	require.NotNil(t, outcome.Error)
	assert.Contains(t, *outcome.Error, "invalid character")
}

func TestFetchPrice_InvalidURL(t *testing.T) {
	fetcher := NewFetcher(FetcherConfig{}, nil)
	outcome := fetcher.FetchPrice(context.Background(),
		domain.Endpoint{Name: "Broken", URL: "://missing-scheme/{upc}"}, "1")

	assert.Equal(t, "Broken", outcome.Merchant)
	require.NotNil(t, outcome.Error)
	assert.NotEmpty(t, *outcome.Error)
}

func TestFetchPrice_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	server := newMerchantServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	fetcher := NewFetcher(FetcherConfig{}, nil)
	outcome := fetcher.FetchPrice(ctx, domain.Endpoint{Name: "Appedia", URL: server.URL + "/{upc}"}, "1")

	require.NotNil(t, outcome.Error)
	assert.Contains(t, *outcome.Error, "context canceled")
}

func TestMetricsLabel(t *testing.T) {
	assert.Equal(t, "appedia", metricsLabel("Appedia"))
	assert.Equal(t, "googdit", metricsLabel("GOOGDIT"))
	assert.Equal(t, metrics.OtherMerchant, metricsLabel("Corner Store #4812"))
	assert.Equal(t, metrics.OtherMerchant, metricsLabel(""))
}

func TestFetchPrice_UnknownMerchantsShareMetricSeries(t *testing.T) {
	server := newMerchantServer(t, jsonHandler(http.StatusOK, `{"price": "$1.00", "stock": 1}`))
	fetcher := NewFetcher(FetcherConfig{}, nil)

	otherBefore := testutil.ToFloat64(metrics.MerchantFetchTotal.WithLabelValues(metrics.OtherMerchant, metrics.OutcomeInvalidResponse))

	for _, name := range []string{"Shop-1", "Shop-2", "Shop-3"} {
		fetcher.FetchPrice(context.Background(), domain.Endpoint{Name: name, URL: server.URL + "/{upc}"}, "1")
	}

	otherAfter := testutil.ToFloat64(metrics.MerchantFetchTotal.WithLabelValues(metrics.OtherMerchant, metrics.OutcomeInvalidResponse))
	assert.Equal(t, otherBefore+3, otherAfter)
	assert.Zero(t, testutil.ToFloat64(metrics.MerchantFetchTotal.WithLabelValues("Shop-1", metrics.OutcomeInvalidResponse)))
}
