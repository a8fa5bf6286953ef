package routes

import (
	"flowfin/config"
	"flowfin/internal/handlers"
	"flowfin/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers sign-up, login and logout. They are rate
// limited per client IP.
func RegisterAuthRoutes(r *gin.Engine) {
	limiter := middleware.NewRateLimiter(config.App.AuthRateLimit, config.App.AuthRateBurst)

	auth := r.Group("/auth")
	auth.Use(limiter.Middleware())
	{
		auth.POST("/register", handlers.RegisterHandler)
		auth.POST("/login", handlers.LoginHandler)
		auth.POST("/logout", handlers.LogoutHandler)
	}
}

// RegisterWebhookRoutes registers the provider callbacks, authenticated by a shared secret.
func RegisterWebhookRoutes(r *gin.Engine) {
	limiter := middleware.NewRateLimiter(config.App.AuthRateLimit, config.App.AuthRateBurst)

	webhooks := r.Group("/webhooks")
	webhooks.Use(limiter.Middleware(), middleware.WebhookSecret(config.App.WebhookSecret))
	{
		webhooks.POST("/payments", handlers.PaymentWebhookHandler)
	}
}
