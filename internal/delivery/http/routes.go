package http

import (
	"github.com/gin-gonic/gin"
	"github.com/pricecompare/backend/config"
	"github.com/pricecompare/backend/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware(logger.Named("access")))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/", handler.Root)
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	api.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		api.GET("/health", handler.HealthCheck)
		api.POST("/compare", handler.ComparePrices)

		endpoints := api.Group("/endpoints")
		{
			endpoints.GET("", handler.ListEndpoints)
			endpoints.POST("", handler.CreateEndpoint)
			endpoints.GET("/:id", handler.GetEndpoint)
			endpoints.PUT("/:id", handler.UpdateEndpoint)
			endpoints.DELETE("/:id", handler.DeleteEndpoint)
			endpoints.PATCH("/:id/toggle", handler.ToggleEndpoint)
		}
	}

	return router
}
