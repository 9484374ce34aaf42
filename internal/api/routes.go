package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRoutes sets up the API routes
func SetupRoutes(handler *Handler, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(Logger(logger))

	// Health check
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := router.Group("/api/v1")
	{
		orgs := v1.Group("/orgs/:org")
		{
			orgs.GET("/contributors", handler.GetContributors)
			orgs.GET("/contributors/:username", handler.GetContributor)
			orgs.GET("/leaderboard", handler.GetLeaderboard)
			orgs.GET("/hall-of-fame", handler.GetHallOfFame)
			orgs.GET("/metrics/repository", handler.GetRepositoryMetrics)
		}
	}

	return router
}
