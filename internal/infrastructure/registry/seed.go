package registry

import (
	"context"
	"fmt"

	"github.com/pricecompare/backend/internal/domain"
)

// Seed inserts endpoints when the registry is empty. It returns the number inserted.
func Seed(ctx context.Context, repo domain.EndpointRepository, endpoints []domain.Endpoint) (int, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count endpoints: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	for i := range endpoints {
		if _, err := repo.Create(ctx, &endpoints[i]); err != nil {
			return i, fmt.Errorf("seed endpoint %q: %w", endpoints[i].Name, err)
		}
	}
	return len(endpoints), nil
}
