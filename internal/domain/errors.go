package domain

import "errors"

var (
	// ErrNoActiveEndpoints is returned when a comparison is requested with no active merchant endpoints
	ErrNoActiveEndpoints = errors.New("no active API endpoints configured")

	// ErrEndpointNotFound is returned when an endpoint ID does not exist in the registry
	ErrEndpointNotFound = errors.New("endpoint not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrNoUpdateFields is returned when an endpoint update carries no fields
	ErrNoUpdateFields = errors.New("no update data provided")

	// ErrRegistryUnavailable is returned when the endpoint store cannot be reached
	ErrRegistryUnavailable = errors.New("endpoint registry unavailable")
)
