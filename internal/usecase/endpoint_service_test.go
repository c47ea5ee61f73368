package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/pricecompare/backend/internal/domain"
	"github.com/pricecompare/backend/internal/infrastructure/registry"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointService_Create(t *testing.T) {
	ctx := context.Background()
	service := NewEndpointService(registry.NewMemoryRepository(), nil)

	tests := []struct {
		name     string
		endpoint *domain.Endpoint
		wantErr  error
	}{
		{"valid", &domain.Endpoint{Name: "Appedia", URL: "https://a/{upc}", IsActive: true}, nil},
		{"nil endpoint", nil, domain.ErrInvalidRequest},
		{"empty name", &domain.Endpoint{Name: "", URL: "https://a/{upc}"}, domain.ErrInvalidRequest},
		{"blank name", &domain.Endpoint{Name: "   ", URL: "https://a/{upc}"}, domain.ErrInvalidRequest},
		{"name too long", &domain.Endpoint{Name: strings.Repeat("n", 101), URL: "https://a/{upc}"}, domain.ErrInvalidRequest},
		{"empty url", &domain.Endpoint{Name: "X", URL: ""}, domain.ErrInvalidRequest},
		{"url too long", &domain.Endpoint{Name: "X", URL: strings.Repeat("u", 501)}, domain.ErrInvalidRequest},
		{"max lengths", &domain.Endpoint{Name: strings.Repeat("n", 100), URL: strings.Repeat("u", 500)}, nil},
		{"multibyte name at limit", &domain.Endpoint{Name: strings.Repeat("é", 100), URL: "https://a/{upc}"}, nil},
		{"multibyte name over limit", &domain.Endpoint{Name: strings.Repeat("é", 101), URL: "https://a/{upc}"}, domain.ErrInvalidRequest},
		{"multibyte url at limit", &domain.Endpoint{Name: "X", URL: strings.Repeat("ü", 500)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := service.Create(ctx, tt.endpoint)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, created)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, created.ID)
		})
	}
}

func TestEndpointService_Update(t *testing.T) {
	ctx := context.Background()
	service := NewEndpointService(registry.NewMemoryRepository(), nil)

	created, err := service.Create(ctx, &domain.Endpoint{Name: "Appedia", URL: "https://a/{upc}", IsActive: true})
	require.NoError(t, err)

	t.Run("updates url", func(t *testing.T) {
		updated, err := service.Update(ctx, created.ID, domain.EndpointUpdate{URL: lo.ToPtr("https://b/{upc}")})
		require.NoError(t, err)
		assert.Equal(t, "https://b/{upc}", updated.URL)
		assert.Equal(t, "Appedia", updated.Name)
	})

	t.Run("empty update", func(t *testing.T) {
		_, err := service.Update(ctx, created.ID, domain.EndpointUpdate{})
		assert.ErrorIs(t, err, domain.ErrNoUpdateFields)
	})

	t.Run("missing endpoint checked before empty update", func(t *testing.T) {
		_, err := service.Update(ctx, 404, domain.EndpointUpdate{})
		assert.ErrorIs(t, err, domain.ErrEndpointNotFound)
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := service.Update(ctx, created.ID, domain.EndpointUpdate{Name: lo.ToPtr("")})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})
}

func TestEndpointService_ToggleAndDelete(t *testing.T) {
	ctx := context.Background()
	service := NewEndpointService(registry.NewMemoryRepository(), nil)

	created, err := service.Create(ctx, &domain.Endpoint{Name: "Googdit", URL: "https://g/{upc}", IsActive: true})
	require.NoError(t, err)

	active, err := service.Toggle(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, service.Delete(ctx, created.ID))

	_, err = service.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrEndpointNotFound)

	_, err = service.Toggle(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrEndpointNotFound)

	list, err := service.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
