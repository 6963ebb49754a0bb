package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/craudioviz/invoicer/internal/api/middleware"
	"github.com/craudioviz/invoicer/internal/models"
)

// ActivityStore defines the interface for audit-log reads.
type ActivityStore interface {
	ListActivityForInvoice(ctx context.Context, userID, invoiceID uuid.UUID) ([]*models.ActivityEvent, error)
}

// ActivityHandler serves the per-invoice audit log.
type ActivityHandler struct {
	store  ActivityStore
	logger zerolog.Logger
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(store ActivityStore, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		store:  store,
		logger: logger.With().Str("component", "activity_handler").Logger(),
	}
}

// RegisterRoutes registers activity routes on the given router group.
func (h *ActivityHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/invoices/:id/activity", h.ListForInvoice)
}

// ListForInvoice returns audit entries for one invoice, newest first. The
// query is user-scoped; an invoice the user does not own yields an empty
// list rather than a 404.
func (h *ActivityHandler) ListForInvoice(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	events, err := h.store.ListActivityForInvoice(c.Request.Context(), user.ID, id)
	if err != nil {
		h.logger.Error().Err(err).Str("invoice_id", id.String()).Msg("Failed to list activity")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list activity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": events, "count": len(events)})
}
