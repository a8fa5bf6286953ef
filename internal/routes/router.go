package routes

import (
	"flowfin/config"
	"flowfin/internal/handlers"
	"flowfin/internal/metrics"
	"flowfin/internal/middleware"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the engine with the global middleware and every route.
func NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(config.App.AllowedOrigins))
	SetupRoutes(r)
	return r
}

// SetupRoutes registers the public, webhook and authenticated routes.
func SetupRoutes(r *gin.Engine) {
	// Operations
	r.GET("/healthz", handlers.HealthzHandler)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Public
	RegisterAuthRoutes(r)
	RegisterWebhookRoutes(r)

	// Authenticated
	authRequired := r.Group("/")
	authRequired.Use(middleware.AuthMiddleware())
	{
		RegisterAPIRoutes(authRequired)
	}
}
