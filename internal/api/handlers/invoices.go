package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/craudioviz/invoicer/internal/api/middleware"
	"github.com/craudioviz/invoicer/internal/currency"
	"github.com/craudioviz/invoicer/internal/db"
	"github.com/craudioviz/invoicer/internal/invoice"
	"github.com/craudioviz/invoicer/internal/models"
	"github.com/craudioviz/invoicer/internal/money"
	"github.com/craudioviz/invoicer/internal/notifications"
)

// InvoiceStore defines the interface for invoice persistence operations.
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	GetInvoiceByID(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, userID uuid.UUID, filter db.InvoiceFilter) ([]*models.InvoiceWithClient, error)
	UpdateInvoice(ctx context.Context, inv *models.Invoice) error
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
	InvoiceHasPayments(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteInvoice(ctx context.Context, userID, id uuid.UUID) error
	MarkInvoiceSent(ctx context.Context, userID, id uuid.UUID, sentAt time.Time) error
	ListPaymentsForInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*models.Payment, error)
	AppendActivity(ctx context.Context, ev *models.ActivityEvent) error

	GetClient(ctx context.Context, userID, id uuid.UUID) (*models.Client, error)
	GetClientByEmail(ctx context.Context, userID uuid.UUID, email string) (*models.Client, error)
	CreateClient(ctx context.Context, c *models.Client) error
	GetSettings(ctx context.Context, userID uuid.UUID) (*models.Settings, error)
}

// InvoiceMailer sends invoice emails. Nil-able: sending is rejected with 503
// when no SMTP configuration is present.
type InvoiceMailer interface {
	SendInvoice(to []string, data notifications.InvoiceEmailData) error
}

// InvoicesHandler handles invoice CRUD, sending and payment history.
type InvoicesHandler struct {
	store  InvoiceStore
	mailer InvoiceMailer
	logger zerolog.Logger
	now    func() time.Time
}

// NewInvoicesHandler creates a new invoices handler. mailer may be nil.
func NewInvoicesHandler(store InvoiceStore, mailer InvoiceMailer, logger zerolog.Logger) *InvoicesHandler {
	return &InvoicesHandler{
		store:  store,
		mailer: mailer,
		logger: logger.With().Str("component", "invoices_handler").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes registers invoice routes on the given router group.
func (h *InvoicesHandler) RegisterRoutes(r *gin.RouterGroup) {
	invoices := r.Group("/invoices")
	{
		invoices.GET("", h.List)
		invoices.POST("", h.Create)
		invoices.GET("/:id", h.Get)
		invoices.PUT("/:id", h.Update)
		invoices.DELETE("/:id", h.Delete)
		invoices.POST("/:id/send", h.Send)
		invoices.GET("/:id/payments", h.Payments)
	}
}

// List returns the user's invoices with client identity, filtered by search
// term, status and client. Overdue is derived per row at read time.
func (h *InvoicesHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	filter := db.InvoiceFilter{
		Search: c.Query("search"),
		Status: models.InvoiceStatus(c.Query("status")),
	}
	// Overdue is derived, never stored; pull the full set and filter after
	// derivation instead of pushing it into SQL.
	wantOverdue := filter.Status == models.InvoiceStatusOverdue
	if wantOverdue {
		filter.Status = ""
	}
	if raw := c.Query("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client_id"})
			return
		}
		filter.ClientID = &id
	}

	invoices, err := h.store.ListInvoices(c.Request.Context(), user.ID, filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list invoices")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list invoices"})
		return
	}

	today := h.now()
	for _, inv := range invoices {
		inv.Status = invoice.EffectiveStatus(&inv.Invoice, today)
	}

	if wantOverdue {
		filtered := invoices[:0]
		for _, inv := range invoices {
			if inv.Status == models.InvoiceStatusOverdue {
				filtered = append(filtered, inv)
			}
		}
		invoices = filtered
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices, "count": len(invoices)})
}

// Create creates a new draft invoice. Totals are recomputed server-side and
// client-submitted totals are ignored.
func (h *InvoicesHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req models.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client, err := h.resolveClient(c.Request.Context(), user.ID, &req)
	if err != nil {
		if errors.Is(err, errClientUnresolved) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "client_id or client_name and client_email are required"})
			return
		}
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		h.logger.Error().Err(err).Msg("Failed to resolve client")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create invoice"})
		return
	}

	settings, err := h.store.GetSettings(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create invoice"})
		return
	}

	number, err := invoice.UniqueNumber(c.Request.Context(), h.now, h.store.InvoiceNumberExists)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to allocate invoice number")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create invoice"})
		return
	}

	today := h.now()
	invoiceDate := today
	if req.InvoiceDate != nil {
		invoiceDate = *req.InvoiceDate
	}
	dueDate := invoiceDate.AddDate(0, 0, client.PaymentTerms)
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}

	code := req.Currency
	if code == "" {
		code = client.DefaultCurrency
	}
	if code == "" {
		code = settings.DefaultCurrency
	}
	if !currency.Supported(code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported currency"})
		return
	}

	inv := models.NewInvoice(user.ID, client.ID, number, code, invoiceDate, dueDate)
	inv.TaxRate = req.TaxRate
	if req.TaxRate.IsZero() {
		inv.TaxRate = settings.DefaultTaxRate
	}
	inv.DiscountAmount = req.DiscountAmount
	if req.DiscountType != "" {
		inv.DiscountType = req.DiscountType
	}
	inv.Notes = req.Notes
	if inv.Notes == "" {
		inv.Notes = settings.DefaultNotes
	}
	inv.Terms = req.Terms
	if inv.Terms == "" {
		inv.Terms = settings.DefaultTerms
	}
	inv.Items = buildLineItems(req.Items)
	money.ApplyTotals(inv)

	if err := h.store.CreateInvoice(c.Request.Context(), inv); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create invoice")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create invoice"})
		return
	}

	c.JSON(http.StatusCreated, inv)
}

// Get returns a single invoice with derived status.
func (h *InvoicesHandler) Get(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	inv, ok := h.loadInvoice(c, user.ID)
	if !ok {
		return
	}

	inv.Status = invoice.EffectiveStatus(inv, h.now())
	c.JSON(http.StatusOK, inv)
}

// Update applies a partial update and recomputes totals. Only draft and sent
// invoices are editable.
func (h *InvoicesHandler) Update(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req models.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, ok := h.loadInvoice(c, user.ID)
	if !ok {
		return
	}

	if !inv.IsEditable() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invoice is no longer editable"})
		return
	}

	if req.Currency != nil {
		if !currency.Supported(*req.Currency) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported currency"})
			return
		}
		inv.Currency = *req.Currency
	}
	if req.InvoiceDate != nil {
		inv.InvoiceDate = *req.InvoiceDate
	}
	if req.DueDate != nil {
		inv.DueDate = *req.DueDate
	}
	if req.Items != nil {
		inv.Items = buildLineItems(req.Items)
	}
	if req.TaxRate != nil {
		inv.TaxRate = *req.TaxRate
	}
	if req.DiscountAmount != nil {
		inv.DiscountAmount = *req.DiscountAmount
	}
	if req.DiscountType != nil {
		inv.DiscountType = *req.DiscountType
	}
	if req.Notes != nil {
		inv.Notes = *req.Notes
	}
	if req.Terms != nil {
		inv.Terms = *req.Terms
	}
	if req.PaymentLink != nil {
		inv.PaymentLink = *req.PaymentLink
	}
	money.ApplyTotals(inv)

	if err := h.store.UpdateInvoice(c.Request.Context(), inv); err != nil {
		h.logger.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("Failed to update invoice")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update invoice"})
		return
	}

	c.JSON(http.StatusOK, inv)
}

// Delete removes an invoice. Invoices with ledger entries cannot be deleted.
func (h *InvoicesHandler) Delete(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	inv, ok := h.loadInvoice(c, user.ID)
	if !ok {
		return
	}

	hasPayments, err := h.store.InvoiceHasPayments(c.Request.Context(), inv.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("Failed to check invoice payments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete invoice"})
		return
	}
	if hasPayments {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invoice has recorded payments and cannot be deleted"})
		return
	}

	if err := h.store.DeleteInvoice(c.Request.Context(), user.ID, inv.ID); err != nil {
		h.logger.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("Failed to delete invoice")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete invoice"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Send emails the invoice to the client and marks a draft as sent.
func (h *InvoicesHandler) Send(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	if h.mailer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "email delivery is not configured"})
		return
	}

	// The body is optional; an absent body sends to the client's email.
	var req models.SendInvoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	inv, ok := h.loadInvoice(c, user.ID)
	if !ok {
		return
	}

	if inv.Status == models.InvoiceStatusCancelled || inv.Status == models.InvoiceStatusRefunded {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invoice cannot be sent in its current status"})
		return
	}

	client, err := h.store.GetClient(c.Request.Context(), user.ID, inv.ClientID)
	if err != nil {
		h.logger.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("Failed to load client for send")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send invoice"})
		return
	}

	to := req.To
	if to == "" {
		to = client.Email
	}

	settings, err := h.store.GetSettings(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send invoice"})
		return
	}

	data := notifications.InvoiceEmailData{
		ClientName:       client.Name,
		BusinessName:     settings.BusinessName,
		InvoiceNumber:    inv.InvoiceNumber,
		InvoiceDate:      inv.InvoiceDate,
		DueDate:          inv.DueDate,
		TotalFormatted:   currency.Format(inv.Total, inv.Currency),
		BalanceFormatted: currency.Format(inv.BalanceDue, inv.Currency),
		PaymentLink:      inv.PaymentLink,
		Notes:            inv.Notes,
	}
	if err := h.mailer.SendInvoice([]string{to}, data); err != nil {
		h.logger.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("Failed to send invoice email")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to send invoice email"})
		return
	}

	sentAt := h.now()
	if err := h.store.MarkInvoiceSent(c.Request.Context(), user.ID, inv.ID, sentAt); err != nil {
		h.logger.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("Failed to mark invoice sent")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invoice emailed but status update failed"})
		return
	}

	ev := models.NewActivityEvent(inv.ID, models.ActivityActionSent, map[string]any{"to": to})
	if err := h.store.AppendActivity(c.Request.Context(), ev); err != nil {
		h.logger.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("Failed to record send activity")
	}

	c.JSON(http.StatusOK, gin.H{"sent": true, "to": to, "sent_at": sentAt})
}

// Payments returns the ledger entries for one invoice, newest first.
func (h *InvoicesHandler) Payments(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	inv, ok := h.loadInvoice(c, user.ID)
	if !ok {
		return
	}

	payments, err := h.store.ListPaymentsForInvoice(c.Request.Context(), inv.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("Failed to list payments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments, "count": len(payments)})
}

// loadInvoice parses the :id param and fetches the user's invoice, writing
// the error response itself on failure.
func (h *InvoicesHandler) loadInvoice(c *gin.Context, userID uuid.UUID) (*models.Invoice, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return nil, false
	}

	inv, err := h.store.GetInvoiceByID(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
			return nil, false
		}
		h.logger.Error().Err(err).Str("invoice_id", id.String()).Msg("Failed to get invoice")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get invoice"})
		return nil, false
	}
	return inv, true
}

var errClientUnresolved = errors.New("client unresolved")

// resolveClient finds the target client by id, or by email for the implicit
// create-on-save path, creating a new client when neither matches.
func (h *InvoicesHandler) resolveClient(ctx context.Context, userID uuid.UUID, req *models.CreateInvoiceRequest) (*models.Client, error) {
	if req.ClientID != nil {
		return h.store.GetClient(ctx, userID, *req.ClientID)
	}
	if req.ClientEmail == "" || req.ClientName == "" {
		return nil, errClientUnresolved
	}

	client, err := h.store.GetClientByEmail(ctx, userID, req.ClientEmail)
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	client = models.NewClient(userID, req.ClientName, req.ClientEmail)
	if req.Currency != "" {
		client.DefaultCurrency = req.Currency
	}
	if err := h.store.CreateClient(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func buildLineItems(reqs []models.LineItemRequest) []models.LineItem {
	items := make([]models.LineItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, models.LineItem{
			ID:          uuid.New(),
			Description: r.Description,
			Quantity:    r.Quantity,
			Rate:        r.Rate,
		})
	}
	return items
}
