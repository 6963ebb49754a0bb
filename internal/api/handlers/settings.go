package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/craudioviz/invoicer/internal/api/middleware"
	"github.com/craudioviz/invoicer/internal/currency"
	"github.com/craudioviz/invoicer/internal/models"
)

// SettingsStore defines the interface for settings persistence operations.
type SettingsStore interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (*models.Settings, error)
	UpsertSettings(ctx context.Context, s *models.Settings) error
}

// SettingsHandler handles the per-user business profile and defaults.
type SettingsHandler struct {
	store  SettingsStore
	logger zerolog.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(store SettingsStore, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		store:  store,
		logger: logger.With().Str("component", "settings_handler").Logger(),
	}
}

// RegisterRoutes registers settings routes on the given router group.
func (h *SettingsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/settings", h.Get)
	r.PUT("/settings", h.Update)
}

// Get returns the user's settings, falling back to defaults when none are
// stored yet.
func (h *SettingsHandler) Get(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	settings, err := h.store.GetSettings(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to get settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get settings"})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// Update applies a partial update and upserts the row.
func (h *SettingsHandler) Update(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.DefaultCurrency != nil && !currency.Supported(*req.DefaultCurrency) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported currency"})
		return
	}

	settings, err := h.store.GetSettings(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to get settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update settings"})
		return
	}

	applySettingsUpdate(settings, &req)

	if err := h.store.UpsertSettings(c.Request.Context(), settings); err != nil {
		h.logger.Error().Err(err).Msg("Failed to update settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update settings"})
		return
	}

	c.JSON(http.StatusOK, settings)
}

func applySettingsUpdate(s *models.Settings, req *models.UpdateSettingsRequest) {
	if req.BusinessName != nil {
		s.BusinessName = *req.BusinessName
	}
	if req.BusinessEmail != nil {
		s.BusinessEmail = *req.BusinessEmail
	}
	if req.BusinessAddress != nil {
		s.BusinessAddress = *req.BusinessAddress
	}
	if req.BusinessCity != nil {
		s.BusinessCity = *req.BusinessCity
	}
	if req.BusinessState != nil {
		s.BusinessState = *req.BusinessState
	}
	if req.BusinessZip != nil {
		s.BusinessZip = *req.BusinessZip
	}
	if req.BusinessCountry != nil {
		s.BusinessCountry = *req.BusinessCountry
	}
	if req.BusinessPhone != nil {
		s.BusinessPhone = *req.BusinessPhone
	}
	if req.BusinessWebsite != nil {
		s.BusinessWebsite = *req.BusinessWebsite
	}
	if req.DefaultCurrency != nil {
		s.DefaultCurrency = *req.DefaultCurrency
	}
	if req.DefaultTaxRate != nil {
		s.DefaultTaxRate = *req.DefaultTaxRate
	}
	if req.DefaultTerms != nil {
		s.DefaultTerms = *req.DefaultTerms
	}
	if req.DefaultNotes != nil {
		s.DefaultNotes = *req.DefaultNotes
	}
	if req.InvoicePrefix != nil {
		s.InvoicePrefix = *req.InvoicePrefix
	}
}
