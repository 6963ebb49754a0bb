package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/craudioviz/invoicer/internal/db"
	"github.com/craudioviz/invoicer/internal/invoice"
	"github.com/craudioviz/invoicer/internal/models"
)

// PortalStore defines the interface for unauthenticated portal reads.
type PortalStore interface {
	GetClientByPortalToken(ctx context.Context, token string) (*models.Client, error)
	ListInvoicesForClient(ctx context.Context, clientID uuid.UUID) ([]*models.Invoice, error)
	MarkInvoiceViewed(ctx context.Context, id uuid.UUID) error
	AppendActivity(ctx context.Context, ev *models.ActivityEvent) error
}

// PortalHandler serves the token-keyed client portal. No bearer auth: the
// portal token is the whole credential, so responses are redacted and
// scoped to the one client.
type PortalHandler struct {
	store  PortalStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewPortalHandler creates a new portal handler.
func NewPortalHandler(store PortalStore, logger zerolog.Logger) *PortalHandler {
	return &PortalHandler{
		store:  store,
		logger: logger.With().Str("component", "portal_handler").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes registers portal routes on the given router group.
func (h *PortalHandler) RegisterRoutes(r *gin.RouterGroup) {
	portal := r.Group("/portal/:token")
	{
		portal.GET("", h.Get)
		portal.POST("/invoices/:id/view", h.MarkViewed)
	}
}

// Get returns the redacted client profile and their non-draft invoices.
func (h *PortalHandler) Get(c *gin.Context) {
	client, ok := h.resolveToken(c)
	if !ok {
		return
	}

	invoices, err := h.store.ListInvoicesForClient(c.Request.Context(), client.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list portal invoices")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load portal"})
		return
	}

	today := h.now()
	for _, inv := range invoices {
		inv.Status = invoice.EffectiveStatus(inv, today)
	}

	c.JSON(http.StatusOK, gin.H{
		"client":   client.ToPortalProfile(),
		"invoices": invoices,
		"count":    len(invoices),
	})
}

// MarkViewed records that the client opened an invoice. Only sent invoices
// transition to viewed; the write is idempotent and never regresses a paid
// invoice. The invoice must belong to the token's client.
func (h *PortalHandler) MarkViewed(c *gin.Context) {
	client, ok := h.resolveToken(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	invoices, err := h.store.ListInvoicesForClient(c.Request.Context(), client.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list portal invoices")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record view"})
		return
	}
	var target *models.Invoice
	for _, inv := range invoices {
		if inv.ID == id {
			target = inv
			break
		}
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
		return
	}

	if err := h.store.MarkInvoiceViewed(c.Request.Context(), id); err != nil {
		h.logger.Error().Err(err).Str("invoice_id", id.String()).Msg("Failed to mark invoice viewed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record view"})
		return
	}

	ev := models.NewActivityEvent(id, models.ActivityActionViewed, nil)
	if err := h.store.AppendActivity(c.Request.Context(), ev); err != nil {
		h.logger.Warn().Err(err).Str("invoice_id", id.String()).Msg("Failed to record view activity")
	}

	c.JSON(http.StatusOK, gin.H{"viewed": true})
}

func (h *PortalHandler) resolveToken(c *gin.Context) (*models.Client, bool) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "portal not found"})
		return nil, false
	}

	client, err := h.store.GetClientByPortalToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Invalid and disabled tokens are indistinguishable on purpose.
			c.JSON(http.StatusNotFound, gin.H{"error": "portal not found"})
			return nil, false
		}
		h.logger.Error().Err(err).Msg("Failed to resolve portal token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load portal"})
		return nil, false
	}
	return client, true
}
