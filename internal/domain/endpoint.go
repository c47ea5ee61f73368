package domain

import "time"

// UPCPlaceholder is substituted with the product UPC in an endpoint URL template
const UPCPlaceholder = "{upc}"

// Field limits for registry records
const (
	MaxEndpointNameLength = 100
	MaxEndpointURLLength  = 500
	MaxUPCLength          = 50
)

// Endpoint is a merchant API registered for price comparison.
// Name selects the response schema; URL is a template containing {upc}.
type Endpoint struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EndpointUpdate carries a partial update; nil fields are left untouched
type EndpointUpdate struct {
	Name     *string `json:"name,omitempty"`
	URL      *string `json:"url,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// IsEmpty reports whether the update carries no fields
func (u EndpointUpdate) IsEmpty() bool {
	return u.Name == nil && u.URL == nil && u.IsActive == nil
}

// DefaultEndpoints are seeded into an empty registry at startup
func DefaultEndpoints() []Endpoint {
	return []Endpoint{
		{
			Name:     "Appedia",
			URL:      "https://appedia.heb-platform-interview.hebdigital-prd.com/api/v1/itemdata?upc={upc}",
			IsActive: true,
		},
		{
			Name:     "Micromazon",
			URL:      "https://micromazon.heb-platform-interview.hebdigital-prd.com/{upc}/productinfo",
			IsActive: true,
		},
		{
			Name:     "Googdit",
			URL:      "https://googdit.heb-platform-interview.hebdigital-prd.com/{upc}",
			IsActive: true,
		},
	}
}
