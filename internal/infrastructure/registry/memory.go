package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pricecompare/backend/internal/domain"
)

// MemoryRepository is a thread-safe in-memory endpoint registry.
// Contents are lost on restart.
type MemoryRepository struct {
	data   map[int64]domain.Endpoint
	nextID int64
	mutex  sync.RWMutex
	now    func() time.Time
}

// NewMemoryRepository creates a new in-memory endpoint registry
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		data:   make(map[int64]domain.Endpoint),
		nextID: 1,
		now:    time.Now,
	}
}

// List returns all endpoints, newest first
func (r *MemoryRepository) List(ctx context.Context) ([]domain.Endpoint, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	endpoints := r.snapshot(false)
	sort.SliceStable(endpoints, func(i, j int) bool {
		if !endpoints[i].CreatedAt.Equal(endpoints[j].CreatedAt) {
			return endpoints[i].CreatedAt.After(endpoints[j].CreatedAt)
		}
		return endpoints[i].ID > endpoints[j].ID
	})
	return endpoints, nil
}

// ListActive returns active endpoints in insertion order
func (r *MemoryRepository) ListActive(ctx context.Context) ([]domain.Endpoint, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	endpoints := r.snapshot(true)
	sort.Slice(endpoints, func(i, j int) bool {
		return endpoints[i].ID < endpoints[j].ID
	})
	return endpoints, nil
}

// Get retrieves an endpoint by ID
func (r *MemoryRepository) Get(ctx context.Context, id int64) (*domain.Endpoint, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	endpoint, exists := r.data[id]
	if !exists {
		return nil, domain.ErrEndpointNotFound
	}
	return &endpoint, nil
}

// Create stores a new endpoint and assigns its ID and timestamps
func (r *MemoryRepository) Create(ctx context.Context, endpoint *domain.Endpoint) (*domain.Endpoint, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now().UTC()
	stored := domain.Endpoint{
		ID:        r.nextID,
		Name:      endpoint.Name,
		URL:       endpoint.URL,
		IsActive:  endpoint.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.data[stored.ID] = stored
	r.nextID++

	return &stored, nil
}

// Update applies a partial update to an endpoint
func (r *MemoryRepository) Update(ctx context.Context, id int64, update domain.EndpointUpdate) (*domain.Endpoint, error) {
	if update.IsEmpty() {
		return nil, domain.ErrNoUpdateFields
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	endpoint, exists := r.data[id]
	if !exists {
		return nil, domain.ErrEndpointNotFound
	}

	if update.Name != nil {
		endpoint.Name = *update.Name
	}
	if update.URL != nil {
		endpoint.URL = *update.URL
	}
	if update.IsActive != nil {
		endpoint.IsActive = *update.IsActive
	}
	endpoint.UpdatedAt = r.now().UTC()
	r.data[id] = endpoint

	return &endpoint, nil
}

// Delete removes an endpoint
func (r *MemoryRepository) Delete(ctx context.Context, id int64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.data[id]; !exists {
		return domain.ErrEndpointNotFound
	}
	delete(r.data, id)
	return nil
}

// Toggle flips an endpoint's active flag and returns the new state
func (r *MemoryRepository) Toggle(ctx context.Context, id int64) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	endpoint, exists := r.data[id]
	if !exists {
		return false, domain.ErrEndpointNotFound
	}

	endpoint.IsActive = !endpoint.IsActive
	endpoint.UpdatedAt = r.now().UTC()
	r.data[id] = endpoint

	return endpoint.IsActive, nil
}

// Count returns the number of stored endpoints
func (r *MemoryRepository) Count(ctx context.Context) (int, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.data), nil
}

// snapshot copies the stored endpoints; caller holds the lock
func (r *MemoryRepository) snapshot(activeOnly bool) []domain.Endpoint {
	endpoints := make([]domain.Endpoint, 0, len(r.data))
	for _, endpoint := range r.data {
		if activeOnly && !endpoint.IsActive {
			continue
		}
		endpoints = append(endpoints, endpoint)
	}
	return endpoints
}
