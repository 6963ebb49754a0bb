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
	"github.com/craudioviz/invoicer/internal/db"
	"github.com/craudioviz/invoicer/internal/models"
)

// ExpenseStore defines the interface for expense persistence operations.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e *models.Expense) error
	GetExpense(ctx context.Context, userID, id uuid.UUID) (*models.Expense, error)
	ListExpenses(ctx context.Context, userID uuid.UUID, filter db.ExpenseFilter) ([]*models.Expense, error)
	UpdateExpense(ctx context.Context, e *models.Expense) error
	DeleteExpense(ctx context.Context, userID, id uuid.UUID) error
	GetExpenseSummary(ctx context.Context, userID uuid.UUID, from, to time.Time) (*models.ExpenseSummary, error)
}

// ExpensesHandler handles expense CRUD and reporting.
type ExpensesHandler struct {
	store  ExpenseStore
	logger zerolog.Logger
}

// NewExpensesHandler creates a new expenses handler.
func NewExpensesHandler(store ExpenseStore, logger zerolog.Logger) *ExpensesHandler {
	return &ExpensesHandler{
		store:  store,
		logger: logger.With().Str("component", "expenses_handler").Logger(),
	}
}

// RegisterRoutes registers expense routes on the given router group.
func (h *ExpensesHandler) RegisterRoutes(r *gin.RouterGroup) {
	expenses := r.Group("/expenses")
	{
		expenses.GET("", h.List)
		expenses.POST("", h.Create)
		expenses.GET("/summary", h.Summary)
		expenses.GET("/categories", h.Categories)
		expenses.GET("/:id", h.Get)
		expenses.PUT("/:id", h.Update)
		expenses.DELETE("/:id", h.Delete)
	}
}

// List returns the user's expenses filtered by category, client and period.
func (h *ExpensesHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	filter := db.ExpenseFilter{Category: models.ExpenseCategory(c.Query("category"))}
	if filter.Category != "" && !models.ValidExpenseCategory(filter.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return
	}
	if raw := c.Query("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client_id"})
			return
		}
		filter.ClientID = &id
	}
	var ok bool
	if filter.From, ok = parseDateQuery(c, "from"); !ok {
		return
	}
	if filter.To, ok = parseDateQuery(c, "to"); !ok {
		return
	}

	expenses, err := h.store.ListExpenses(c.Request.Context(), user.ID, filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list expenses")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list expenses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"expenses": expenses, "count": len(expenses)})
}

// Create records a new expense.
func (h *ExpensesHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req models.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.ValidExpenseCategory(req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	expense := models.NewExpense(user.ID, req.Description, req.Amount, req.Category, req.Date)
	expense.ClientID = req.ClientID
	expense.InvoiceID = req.InvoiceID
	expense.Billable = req.Billable
	expense.Reimbursable = req.Reimbursable
	if req.TaxDeductible != nil {
		expense.TaxDeductible = *req.TaxDeductible
	}
	expense.Vendor = req.Vendor
	expense.PaymentMethod = req.PaymentMethod
	if req.Currency != "" {
		expense.Currency = req.Currency
	}
	expense.ReceiptURL = req.ReceiptURL
	expense.Notes = req.Notes

	if err := h.store.CreateExpense(c.Request.Context(), expense); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create expense")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create expense"})
		return
	}

	c.JSON(http.StatusCreated, expense)
}

// Get returns a single expense.
func (h *ExpensesHandler) Get(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	expense, ok := h.loadExpense(c, user.ID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, expense)
}

// Update applies a partial update to an expense.
func (h *ExpensesHandler) Update(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req models.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expense, ok := h.loadExpense(c, user.ID)
	if !ok {
		return
	}

	if req.Category != nil && !models.ValidExpenseCategory(*req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return
	}
	if req.Amount != nil && !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	applyExpenseUpdate(expense, &req)

	if err := h.store.UpdateExpense(c.Request.Context(), expense); err != nil {
		h.logger.Error().Err(err).Str("expense_id", expense.ID.String()).Msg("Failed to update expense")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update expense"})
		return
	}

	c.JSON(http.StatusOK, expense)
}

// Delete removes an expense.
func (h *ExpensesHandler) Delete(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expense id"})
		return
	}

	if err := h.store.DeleteExpense(c.Request.Context(), user.ID, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "expense not found"})
			return
		}
		h.logger.Error().Err(err).Str("expense_id", id.String()).Msg("Failed to delete expense")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete expense"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Summary returns total spend and a category rollup for a period. The
// period defaults to the current calendar month.
func (h *ExpensesHandler) Summary(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	from, ok := parseDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseDateQuery(c, "to")
	if !ok {
		return
	}

	now := time.Now().UTC()
	if from == nil {
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		from = &first
	}
	if to == nil {
		to = &now
	}

	summary, err := h.store.GetExpenseSummary(c.Request.Context(), user.ID, *from, *to)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to summarize expenses")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to summarize expenses"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Categories returns the fixed expense category catalog.
func (h *ExpensesHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": models.ExpenseCategories()})
}

func (h *ExpensesHandler) loadExpense(c *gin.Context, userID uuid.UUID) (*models.Expense, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expense id"})
		return nil, false
	}

	expense, err := h.store.GetExpense(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "expense not found"})
			return nil, false
		}
		h.logger.Error().Err(err).Str("expense_id", id.String()).Msg("Failed to get expense")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get expense"})
		return nil, false
	}
	return expense, true
}

// parseDateQuery reads an optional YYYY-MM-DD query parameter, writing the
// error response itself on malformed input.
func parseDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " date, expected YYYY-MM-DD"})
		return nil, false
	}
	return &t, true
}

func applyExpenseUpdate(e *models.Expense, req *models.UpdateExpenseRequest) {
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Amount != nil {
		e.Amount = *req.Amount
	}
	if req.Category != nil {
		e.Category = *req.Category
	}
	if req.Date != nil {
		e.Date = *req.Date
	}
	if req.ClientID != nil {
		e.ClientID = req.ClientID
	}
	if req.InvoiceID != nil {
		e.InvoiceID = req.InvoiceID
	}
	if req.Billable != nil {
		e.Billable = *req.Billable
	}
	if req.Reimbursable != nil {
		e.Reimbursable = *req.Reimbursable
	}
	if req.TaxDeductible != nil {
		e.TaxDeductible = *req.TaxDeductible
	}
	if req.Vendor != nil {
		e.Vendor = *req.Vendor
	}
	if req.PaymentMethod != nil {
		e.PaymentMethod = *req.PaymentMethod
	}
	if req.Currency != nil {
		e.Currency = *req.Currency
	}
	if req.ReceiptURL != nil {
		e.ReceiptURL = *req.ReceiptURL
	}
	if req.Notes != nil {
		e.Notes = *req.Notes
	}
}
