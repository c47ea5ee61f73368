package domain

import "context"

// EndpointRepository defines the interface for merchant endpoint storage
type EndpointRepository interface {
	List(ctx context.Context) ([]Endpoint, error)
	// ListActive returns active endpoints in insertion order
	ListActive(ctx context.Context) ([]Endpoint, error)
	Get(ctx context.Context, id int64) (*Endpoint, error)
	Create(ctx context.Context, endpoint *Endpoint) (*Endpoint, error)
	Update(ctx context.Context, id int64, update EndpointUpdate) (*Endpoint, error)
	Delete(ctx context.Context, id int64) error
	Toggle(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int, error)
}

// PriceFetcher queries a single merchant endpoint for a UPC.
// Implementations never fail; every failure is folded into the outcome.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, endpoint Endpoint, upc string) FetchOutcome
}
