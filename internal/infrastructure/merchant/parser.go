package merchant

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// googditPriceExponent scales Googdit's integer price (hundred-millionths) to currency units
const googditPriceExponent = -8

// SchemaParser extracts price and availability from one merchant's decoded payload.
// ok is false when the payload does not match the schema.
type SchemaParser func(payload map[string]any) (price decimal.Decimal, inStock bool, ok bool)

var (
	schemas = map[string]SchemaParser{
		"appedia":    parseAppedia,
		"micromazon": parseMicromazon,
		"googdit":    parseGoogdit,
	}
	schemasMu sync.RWMutex
)

// RegisterSchema adds or replaces the parser used for a merchant name.
// Names are matched case-insensitively.
func RegisterSchema(name string, parser SchemaParser) {
	schemasMu.Lock()
	defer schemasMu.Unlock()
	schemas[strings.ToLower(name)] = parser
}

// KnownMerchants returns the merchant names that have a registered schema
func KnownMerchants() []string {
	schemasMu.RLock()
	defer schemasMu.RUnlock()

	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	return names
}

// Parse maps a merchant payload to (price, inStock).
// Unknown merchants and malformed payloads yield (nil, false).
func Parse(merchantName string, payload map[string]any) (price *decimal.Decimal, inStock bool) {
	schemasMu.RLock()
	parser, found := schemas[strings.ToLower(merchantName)]
	schemasMu.RUnlock()
	if !found || payload == nil {
		return nil, false
	}

	defer func() {
		if r := recover(); r != nil {
			price, inStock = nil, false
		}
	}()

	value, available, ok := parser(payload)
	if !ok {
		return nil, false
	}
	return &value, available
}

// parseAppedia handles {"price": "$4.77", "stock": 7}
func parseAppedia(payload map[string]any) (decimal.Decimal, bool, bool) {
	raw, ok := payload["price"].(string)
	if !ok || !strings.HasPrefix(raw, "$") {
		return decimal.Zero, false, false
	}

	price, err := decimal.NewFromString(strings.TrimSpace(raw[1:]))
	if err != nil {
		return decimal.Zero, false, false
	}

	stock := decimal.Zero
	if v, present := payload["stock"]; present {
		stock, ok = toQuantity(v)
		if !ok {
			return decimal.Zero, false, false
		}
	}

	return price, stock.IsPositive(), true
}

// parseMicromazon handles {"available": true, "price": 5.67}
func parseMicromazon(payload map[string]any) (decimal.Decimal, bool, bool) {
	price, ok := toDecimal(payload["price"])
	if !ok {
		return decimal.Zero, false, false
	}

	return price, truthy(payload["available"]), true
}

// parseGoogdit handles {"a": [{"l": 8839, "q": 4}, {"l": 1292, "q": 0}], "p": 478000000}
func parseGoogdit(payload map[string]any) (decimal.Decimal, bool, bool) {
	raw, ok := toDecimal(payload["p"])
	if !ok {
		return decimal.Zero, false, false
	}
	price := raw.Shift(googditPriceExponent)

	locations, present := payload["a"]
	if !present {
		return price, false, true
	}

	records, ok := locations.([]any)
	if !ok {
		return decimal.Zero, false, false
	}

	for _, record := range records {
		location, ok := record.(map[string]any)
		if !ok {
			return decimal.Zero, false, false
		}

		quantity := decimal.Zero
		if q, present := location["q"]; present {
			quantity, ok = toQuantity(q)
			if !ok {
				return decimal.Zero, false, false
			}
		}

		// first stocked location settles it
		if quantity.IsPositive() {
			return price, true, true
		}
	}

	return price, false, true
}

// toDecimal converts a decoded JSON number to a decimal. Strings, bools and nulls are rejected.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case int32:
		return decimal.NewFromInt32(n), true
	default:
		return decimal.Zero, false
	}
}

// toQuantity is toDecimal that also counts true as 1 and false as 0
func toQuantity(v any) (decimal.Decimal, bool) {
	if b, ok := v.(bool); ok {
		if b {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	}
	return toDecimal(v)
}

// truthy reports whether a decoded JSON value is non-empty: true, a non-zero
// number, a non-empty string, list or object.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		n, ok := toDecimal(x)
		return ok && !n.IsZero()
	}
}
