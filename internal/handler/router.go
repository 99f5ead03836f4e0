package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidfeed/video-feed-import-go/internal/middleware"
)

// RouterDeps holds everything NewRouter wires into the gin engine.
type RouterDeps struct {
	Feeds  *FeedHandler
	Videos *VideoHandler
	Health *HealthHandler
	Auth   *middleware.APIKeyAuth
}

// NewRouter builds the API route tree. Health probes and metrics are
// unauthenticated; everything under /api/v1 requires an API key.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health/live", deps.Health.LivenessProbe)
	router.GET("/health/ready", deps.Health.ReadinessProbe)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(deps.Auth.Middleware())

	feeds := api.Group("/feeds")
	{
		feeds.POST("", deps.Feeds.Create)
		feeds.GET("", deps.Feeds.List)
		feeds.GET("/:id", deps.Feeds.Get)
		feeds.PUT("/:id", deps.Feeds.Update)
		feeds.DELETE("/:id", deps.Feeds.Delete)
		feeds.POST("/:id/imports", deps.Feeds.TriggerImport)
		feeds.GET("/:id/imports", deps.Feeds.ListImports)
		feeds.GET("/:id/videos", deps.Videos.ListByFeed)
	}

	api.GET("/imports/:importId/steps", deps.Feeds.ListImportSteps)

	videos := api.Group("/videos")
	{
		videos.GET("", deps.Videos.List)
		videos.GET("/:id", deps.Videos.Get)
		videos.PUT("/:id/status", deps.Videos.UpdateStatus)
		videos.DELETE("/:id", deps.Videos.Delete)
	}

	return router
}
