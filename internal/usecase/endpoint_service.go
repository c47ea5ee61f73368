package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pricecompare/backend/internal/domain"
	"go.uber.org/zap"
)

// EndpointService manages the merchant endpoint registry
type EndpointService struct {
	repo   domain.EndpointRepository
	logger *zap.Logger
}

// NewEndpointService creates a new endpoint service
func NewEndpointService(repo domain.EndpointRepository, logger *zap.Logger) *EndpointService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EndpointService{repo: repo, logger: logger.Named("endpoints")}
}

func (s *EndpointService) List(ctx context.Context) ([]domain.Endpoint, error) {
	return s.repo.List(ctx)
}

func (s *EndpointService) Get(ctx context.Context, id int64) (*domain.Endpoint, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new endpoint
func (s *EndpointService) Create(ctx context.Context, endpoint *domain.Endpoint) (*domain.Endpoint, error) {
	if endpoint == nil {
		return nil, domain.ErrInvalidRequest
	}
	if err := validateName(endpoint.Name); err != nil {
		return nil, err
	}
	if err := validateURL(endpoint.URL); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	s.logger.Info("endpoint created",
		zap.Int64("id", created.ID),
		zap.String("name", created.Name),
		zap.Bool("active", created.IsActive))
	return created, nil
}

// Update validates and applies a partial update
func (s *EndpointService) Update(ctx context.Context, id int64, update domain.EndpointUpdate) (*domain.Endpoint, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return nil, domain.ErrNoUpdateFields
	}
	if update.Name != nil {
		if err := validateName(*update.Name); err != nil {
			return nil, err
		}
	}
	if update.URL != nil {
		if err := validateURL(*update.URL); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}

	s.logger.Info("endpoint updated", zap.Int64("id", id))
	return updated, nil
}

func (s *EndpointService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("endpoint deleted", zap.Int64("id", id))
	return nil
}

// Toggle flips the endpoint's active flag and returns the new state
func (s *EndpointService) Toggle(ctx context.Context, id int64) (bool, error) {
	active, err := s.repo.Toggle(ctx, id)
	if err != nil {
		return false, err
	}
	s.logger.Info("endpoint toggled", zap.Int64("id", id), zap.Bool("active", active))
	return active, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" || utf8.RuneCountInString(name) > domain.MaxEndpointNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", domain.ErrInvalidRequest, domain.MaxEndpointNameLength)
	}
	return nil
}

// validateURL checks length only; templates without {upc} are allowed and fetch a fixed URL
func validateURL(url string) error {
	if strings.TrimSpace(url) == "" || utf8.RuneCountInString(url) > domain.MaxEndpointURLLength {
		return fmt.Errorf("%w: url must be 1-%d characters", domain.ErrInvalidRequest, domain.MaxEndpointURLLength)
	}
	return nil
}
