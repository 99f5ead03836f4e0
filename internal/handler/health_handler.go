package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidfeed/video-feed-import-go/internal/service"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	pool      *pgxpool.Pool
	publisher *service.MessagePublisher
}

// NewHealthHandler creates a new HealthHandler. The publisher may be
// nil when message publishing is disabled.
func NewHealthHandler(pool *pgxpool.Pool, publisher *service.MessagePublisher) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		publisher: publisher,
	}
}

// LivenessProbe reports that the process is up.
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// ReadinessProbe reports whether the service can take traffic. The
// database is required; the message broker only when configured.
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	status := http.StatusOK
	components := gin.H{}

	if err := h.pool.Ping(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		components["database"] = err.Error()
	} else {
		components["database"] = "healthy"
	}

	if h.publisher != nil {
		if h.publisher.IsHealthy() {
			components["rabbitmq"] = "healthy"
		} else {
			status = http.StatusServiceUnavailable
			components["rabbitmq"] = "unhealthy"
		}
	}

	overall := "UP"
	if status != http.StatusOK {
		overall = "DOWN"
	}
	c.JSON(status, gin.H{
		"status":     overall,
		"components": components,
		"time":       time.Now(),
	})
}
