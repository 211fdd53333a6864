package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tesseract-hub/docsearch-service/internal/cache"
	"github.com/tesseract-hub/docsearch-service/internal/events"
)

// HealthHandler reports service health for probes and load balancers.
type HealthHandler struct {
	cache       cache.Cache
	publisher   *events.Publisher
	uploadsRoot string
	startedAt   time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(c cache.Cache, publisher *events.Publisher, uploadsRoot string) *HealthHandler {
	return &HealthHandler{
		cache:       c,
		publisher:   publisher,
		uploadsRoot: uploadsRoot,
		startedAt:   time.Now(),
	}
}

// Health returns overall service status with per-dependency detail.
func (h *HealthHandler) Health(c *gin.Context) {
	services := gin.H{}
	healthy := true

	if _, err := os.Stat(h.uploadsRoot); err != nil {
		services["storage"] = "unavailable"
		healthy = false
	} else {
		services["storage"] = "ok"
	}

	if h.publisher != nil && h.publisher.IsConnected() {
		services["events"] = "connected"
	} else {
		services["events"] = "disabled"
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":    state,
		"service":   "docsearch-service",
		"uptime":    time.Since(h.startedAt).String(),
		"services":  services,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready reports whether the service can take traffic.
func (h *HealthHandler) Ready(c *gin.Context) {
	if _, err := os.Stat(h.uploadsRoot); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Live reports process liveness.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
