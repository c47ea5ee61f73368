package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Prices go over the wire as JSON numbers, not strings.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// ComparisonTimeLayout is a fixed-width ISO-8601 layout so timestamps sort lexically
const ComparisonTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Per-merchant outcome messages
const (
	OutcomeOutOfStock      = "Out of stock"
	OutcomeInvalidResponse = "Invalid response format"
	OutcomeTimeout         = "Request timeout"
)

// CompareRequest represents a price comparison request
type CompareRequest struct {
	UPC string `json:"upc" binding:"required"`
}

// FetchOutcome is the result of querying one merchant for one UPC.
// Price and Error may both be set when a merchant lists a price but has no stock.
type FetchOutcome struct {
	Merchant string           `json:"merchant"`
	Price    *decimal.Decimal `json:"price"`
	URL      *string          `json:"url"`
	Error    *string          `json:"error"`
	InStock  *bool            `json:"in_stock"`
}

// Available reports whether the outcome is eligible for best-price selection
func (o FetchOutcome) Available() bool {
	return o.Price != nil && o.InStock != nil && *o.InStock
}

// ComparisonResult is the response envelope for one comparison run
type ComparisonResult struct {
	UPC            string           `json:"upc"`
	Results        []FetchOutcome   `json:"results"`
	BestPrice      *decimal.Decimal `json:"best_price"`
	BestMerchant   *string          `json:"best_merchant"`
	BestURL        *string          `json:"best_url"`
	ComparisonTime string           `json:"comparison_time"`
}

// FormatComparisonTime renders t in ComparisonTimeLayout (UTC)
func FormatComparisonTime(t time.Time) string {
	return t.UTC().Format(ComparisonTimeLayout)
}
