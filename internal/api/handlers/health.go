package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStore exposes the database liveness probe and pool statistics.
type HealthStore interface {
	Ping(ctx context.Context) error
	Health() map[string]any
}

// HealthHandler serves liveness and readiness endpoints.
type HealthHandler struct {
	store   HealthStore
	version string
	started time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store HealthStore, version string) *HealthHandler {
	return &HealthHandler{
		store:   store,
		version: version,
		started: time.Now().UTC(),
	}
}

// RegisterRoutes registers health routes on the given router group.
func (h *HealthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/health", h.Health)
}

// Health returns process and database status.
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	overall := "ok"
	dbStatus := "healthy"

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		overall = "degraded"
		dbStatus = "unreachable"
	}

	database := h.store.Health()
	database["status"] = dbStatus

	c.JSON(status, gin.H{
		"status":   overall,
		"version":  h.version,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"database": database,
	})
}
