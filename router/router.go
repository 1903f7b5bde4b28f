// gatekeeper/router/router.go

package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/controller"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/middleware"
)

// SetupRouter mounts every controller under /api/v1. Requests are rate
// limited per client IP when limiter is not nil.
func SetupRouter(
	controllers *controller.Controllers,
	limiter middleware.Limiter,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	if limiter != nil {
		router.Use(middleware.RateLimiter(limiter, rateLimitRequests, rateLimitDuration))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")

	controllers.Query.RegisterRoutes(api)
	controllers.Auth.RegisterRoutes(api)
	controllers.Decision.RegisterRoutes(api)
	if controllers.Lock != nil {
		controllers.Lock.RegisterRoutes(api)
	}

	return router
}
