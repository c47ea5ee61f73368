package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pricecompare/backend/internal/domain"
	"go.uber.org/zap"
)

const (
	serviceName    = "Price Comparison Tool API"
	serviceVersion = "1.0.0"
)

// PriceComparer runs a price comparison for a request
type PriceComparer interface {
	Compare(ctx context.Context, request *domain.CompareRequest) (*domain.ComparisonResult, error)
}

// EndpointManager manages the merchant endpoint registry
type EndpointManager interface {
	List(ctx context.Context) ([]domain.Endpoint, error)
	Get(ctx context.Context, id int64) (*domain.Endpoint, error)
	Create(ctx context.Context, endpoint *domain.Endpoint) (*domain.Endpoint, error)
	Update(ctx context.Context, id int64, update domain.EndpointUpdate) (*domain.Endpoint, error)
	Delete(ctx context.Context, id int64) error
	Toggle(ctx context.Context, id int64) (bool, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	comparer  PriceComparer
	endpoints EndpointManager
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(comparer PriceComparer, endpoints EndpointManager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		comparer:  comparer,
		endpoints: endpoints,
		logger:    logger.Named("http"),
	}
}

// createEndpointRequest is the body of POST /api/endpoints
type createEndpointRequest struct {
	Name     string `json:"name" binding:"required"`
	URL      string `json:"url" binding:"required"`
	IsActive *bool  `json:"is_active"`
}

// Root describes the API
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    serviceName,
		"version": serviceVersion,
		"health":  "/api/health",
	})
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": domain.FormatComparisonTime(time.Now()),
		"service":   serviceName,
		"version":   serviceVersion,
	})
}

// ComparePrices handles POST /api/compare
func (h *Handler) ComparePrices(c *gin.Context) {
	var request domain.CompareRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.abortWithError(c, http.StatusBadRequest, bindErrorDetail(err, "upc is required"))
		return
	}

	result, err := h.comparer.Compare(c.Request.Context(), &request)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListEndpoints handles GET /api/endpoints
func (h *Handler) ListEndpoints(c *gin.Context) {
	endpoints, err := h.endpoints.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, endpoints)
}

// GetEndpoint handles GET /api/endpoints/:id
func (h *Handler) GetEndpoint(c *gin.Context) {
	id, ok := h.endpointID(c)
	if !ok {
		return
	}

	endpoint, err := h.endpoints.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, endpoint)
}

// CreateEndpoint handles POST /api/endpoints
func (h *Handler) CreateEndpoint(c *gin.Context) {
	var request createEndpointRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.abortWithError(c, http.StatusBadRequest, bindErrorDetail(err, "name and url are required"))
		return
	}

	endpoint := &domain.Endpoint{
		Name:     request.Name,
		URL:      request.URL,
		IsActive: request.IsActive == nil || *request.IsActive,
	}

	created, err := h.endpoints.Create(c.Request.Context(), endpoint)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

// UpdateEndpoint handles PUT /api/endpoints/:id
func (h *Handler) UpdateEndpoint(c *gin.Context) {
	id, ok := h.endpointID(c)
	if !ok {
		return
	}

	var update domain.EndpointUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.abortWithError(c, http.StatusBadRequest, "invalid update body")
		return
	}

	updated, err := h.endpoints.Update(c.Request.Context(), id, update)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteEndpoint handles DELETE /api/endpoints/:id
func (h *Handler) DeleteEndpoint(c *gin.Context) {
	id, ok := h.endpointID(c)
	if !ok {
		return
	}

	if err := h.endpoints.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Endpoint deleted successfully"})
}

// ToggleEndpoint handles PATCH /api/endpoints/:id/toggle
func (h *Handler) ToggleEndpoint(c *gin.Context) {
	id, ok := h.endpointID(c)
	if !ok {
		return
	}

	active, err := h.endpoints.Toggle(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	message := "Endpoint deactivated successfully"
	if active {
		message = "Endpoint activated successfully"
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (h *Handler) endpointID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.abortWithError(c, http.StatusBadRequest, "invalid endpoint id")
		return 0, false
	}
	return id, true
}

// bindErrorDetail separates missing required fields from bodies that are not valid JSON
func bindErrorDetail(err error, missingFields string) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return missingFields
	}
	return "invalid request body"
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNoActiveEndpoints):
		h.abortWithError(c, http.StatusBadRequest, "No active API endpoints configured")
	case errors.Is(err, domain.ErrNoUpdateFields):
		h.abortWithError(c, http.StatusBadRequest, "No update data provided")
	case errors.Is(err, domain.ErrInvalidRequest):
		h.abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrEndpointNotFound):
		h.abortWithError(c, http.StatusNotFound, "Endpoint not found")
	default:
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		h.abortWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) abortWithError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
