package handlers

import (
	"context"
	"net/http"
	"time"

	"flowfin/config"

	"github.com/gin-gonic/gin"
)

// HealthzHandler reports whether the service can reach its database.
func HealthzHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	// a cache outage degrades auth latency but never fails the probe
	status := gin.H{"database": "ok", "cache": config.CacheStatus(ctx)}
	if err := config.PingDB(ctx, config.DB); err != nil {
		status["database"] = "unavailable"
		status["status"] = "down"
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	status["status"] = "ok"
	c.JSON(http.StatusOK, status)
}
