package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/craudioviz/invoicer/internal/api/middleware"
	"github.com/craudioviz/invoicer/internal/db"
	"github.com/craudioviz/invoicer/internal/models"
)

// ClientStore defines the interface for client persistence operations.
type ClientStore interface {
	CreateClient(ctx context.Context, c *models.Client) error
	GetClient(ctx context.Context, userID, id uuid.UUID) (*models.Client, error)
	ListClients(ctx context.Context, userID uuid.UUID, search, tag string, includeInactive bool) ([]*models.Client, error)
	UpdateClient(ctx context.Context, c *models.Client) error
	ClientHasInvoices(ctx context.Context, clientID uuid.UUID) (bool, error)
	DeleteClient(ctx context.Context, userID, id uuid.UUID) error
	DeactivateClient(ctx context.Context, userID, id uuid.UUID) error
	GetClientStats(ctx context.Context, userID, clientID uuid.UUID) (*models.ClientStats, error)
}

// ClientsHandler handles client CRUD and portal management.
type ClientsHandler struct {
	store  ClientStore
	logger zerolog.Logger
}

// NewClientsHandler creates a new clients handler.
func NewClientsHandler(store ClientStore, logger zerolog.Logger) *ClientsHandler {
	return &ClientsHandler{
		store:  store,
		logger: logger.With().Str("component", "clients_handler").Logger(),
	}
}

// RegisterRoutes registers client routes on the given router group.
func (h *ClientsHandler) RegisterRoutes(r *gin.RouterGroup) {
	clients := r.Group("/clients")
	{
		clients.GET("", h.List)
		clients.POST("", h.Create)
		clients.GET("/:id", h.Get)
		clients.PUT("/:id", h.Update)
		clients.DELETE("/:id", h.Delete)
		clients.GET("/:id/stats", h.Stats)
		clients.PUT("/:id/portal", h.Portal)
	}
}

// List returns the user's clients, optionally filtered by search term or tag.
func (h *ClientsHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	includeInactive := c.Query("include_inactive") == "true"
	clients, err := h.store.ListClients(c.Request.Context(), user.ID, c.Query("search"), c.Query("tag"), includeInactive)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list clients")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list clients"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"clients": clients, "count": len(clients)})
}

// Create creates a new client.
func (h *ClientsHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req models.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client := models.NewClient(user.ID, req.Name, req.Email)
	client.Phone = req.Phone
	client.Company = req.Company
	client.Website = req.Website
	client.Address = req.Address
	client.City = req.City
	client.State = req.State
	client.Zip = req.Zip
	client.Country = req.Country
	client.TaxID = req.TaxID
	client.Notes = req.Notes
	client.Tags = req.Tags
	if req.PaymentTerms != nil {
		client.PaymentTerms = *req.PaymentTerms
	}
	if req.DefaultCurrency != "" {
		client.DefaultCurrency = req.DefaultCurrency
	}

	if err := h.store.CreateClient(c.Request.Context(), client); err != nil {
		if errors.Is(err, db.ErrDuplicateClientEmail) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "a client with this email already exists"})
			return
		}
		h.logger.Error().Err(err).Msg("Failed to create client")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create client"})
		return
	}

	c.JSON(http.StatusCreated, client)
}

// Get returns a single client.
func (h *ClientsHandler) Get(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	client, err := h.store.GetClient(c.Request.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		h.logger.Error().Err(err).Str("client_id", id.String()).Msg("Failed to get client")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get client"})
		return
	}

	c.JSON(http.StatusOK, client)
}

// Update applies a partial update to a client.
func (h *ClientsHandler) Update(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	var req models.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client, err := h.store.GetClient(c.Request.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		h.logger.Error().Err(err).Str("client_id", id.String()).Msg("Failed to get client")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get client"})
		return
	}

	applyClientUpdate(client, &req)

	if err := h.store.UpdateClient(c.Request.Context(), client); err != nil {
		if errors.Is(err, db.ErrDuplicateClientEmail) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "a client with this email already exists"})
			return
		}
		h.logger.Error().Err(err).Str("client_id", id.String()).Msg("Failed to update client")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update client"})
		return
	}

	c.JSON(http.StatusOK, client)
}

// Delete removes a client. Clients with invoice history are deactivated
// instead so their invoices keep a valid reference.
func (h *ClientsHandler) Delete(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	if _, err := h.store.GetClient(c.Request.Context(), user.ID, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		h.logger.Error().Err(err).Str("client_id", id.String()).Msg("Failed to get client")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get client"})
		return
	}

	hasInvoices, err := h.store.ClientHasInvoices(c.Request.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("client_id", id.String()).Msg("Failed to check client invoices")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete client"})
		return
	}

	if hasInvoices {
		if err := h.store.DeactivateClient(c.Request.Context(), user.ID, id); err != nil {
			h.logger.Error().Err(err).Str("client_id", id.String()).Msg("Failed to deactivate client")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete client"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deactivated": true, "message": "client has invoices and was deactivated instead of deleted"})
		return
	}

	if err := h.store.DeleteClient(c.Request.Context(), user.ID, id); err != nil {
		h.logger.Error().Err(err).Str("client_id", id.String()).Msg("Failed to delete client")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete client"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Stats returns aggregated invoicing figures for a client.
func (h *ClientsHandler) Stats(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	client, err := h.store.GetClient(c.Request.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		h.logger.Error().Err(err).Str("client_id", id.String()).Msg("Failed to get client")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get client"})
		return
	}

	stats, err := h.store.GetClientStats(c.Request.Context(), user.ID, id)
	if err != nil {
		h.logger.Error().Err(err).Str("client_id", id.String()).Msg("Failed to get client stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get client stats"})
		return
	}

	c.JSON(http.StatusOK, models.ClientWithStats{Client: *client, Stats: *stats})
}

// Portal enables, disables or rotates a client's portal token.
func (h *ClientsHandler) Portal(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	var req models.PortalActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client, err := h.store.GetClient(c.Request.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		h.logger.Error().Err(err).Str("client_id", id.String()).Msg("Failed to get client")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get client"})
		return
	}

	switch req.Action {
	case models.PortalActionEnable, models.PortalActionRegenerate:
		if req.Action == models.PortalActionRegenerate && !client.PortalEnabled {
			c.JSON(http.StatusBadRequest, gin.H{"error": "portal is not enabled for this client"})
			return
		}
		token, err := models.NewPortalToken()
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to generate portal token")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate portal token"})
			return
		}
		client.PortalToken = token
		client.PortalEnabled = true
	case models.PortalActionDisable:
		client.PortalToken = ""
		client.PortalEnabled = false
	}

	if err := h.store.UpdateClient(c.Request.Context(), client); err != nil {
		h.logger.Error().Err(err).Str("client_id", id.String()).Msg("Failed to update client portal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update portal access"})
		return
	}

	resp := gin.H{"portal_enabled": client.PortalEnabled}
	if client.PortalEnabled {
		// The token is returned once here; it is never serialized on the
		// client object itself.
		resp["portal_token"] = client.PortalToken
	}
	c.JSON(http.StatusOK, resp)
}

func applyClientUpdate(client *models.Client, req *models.UpdateClientRequest) {
	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.Email != nil {
		client.Email = *req.Email
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.Company != nil {
		client.Company = *req.Company
	}
	if req.Website != nil {
		client.Website = *req.Website
	}
	if req.Address != nil {
		client.Address = *req.Address
	}
	if req.City != nil {
		client.City = *req.City
	}
	if req.State != nil {
		client.State = *req.State
	}
	if req.Zip != nil {
		client.Zip = *req.Zip
	}
	if req.Country != nil {
		client.Country = *req.Country
	}
	if req.TaxID != nil {
		client.TaxID = *req.TaxID
	}
	if req.PaymentTerms != nil {
		client.PaymentTerms = *req.PaymentTerms
	}
	if req.DefaultCurrency != nil {
		client.DefaultCurrency = *req.DefaultCurrency
	}
	if req.Notes != nil {
		client.Notes = *req.Notes
	}
	if req.Tags != nil {
		client.Tags = req.Tags
	}
}
