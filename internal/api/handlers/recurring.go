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
	"github.com/craudioviz/invoicer/internal/recurring"
)

// RecurringStore defines the interface for schedule persistence operations.
type RecurringStore interface {
	CreateRecurringInvoice(ctx context.Context, r *models.RecurringInvoice) error
	GetRecurringInvoice(ctx context.Context, userID, id uuid.UUID) (*models.RecurringInvoice, error)
	ListRecurringInvoices(ctx context.Context, userID uuid.UUID) ([]*models.RecurringInvoiceWithRefs, error)
	UpdateRecurringInvoice(ctx context.Context, r *models.RecurringInvoice) error
	SetRecurringStatus(ctx context.Context, userID, id uuid.UUID, status models.RecurringStatus) error

	GetInvoiceByID(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error)
	GetClient(ctx context.Context, userID, id uuid.UUID) (*models.Client, error)
}

// ScheduleRunner runs recurring generation. It is the same scheduler the
// cron runner fires.
type ScheduleRunner interface {
	ProcessDue(ctx context.Context) *models.RunSummary
	GenerateNow(ctx context.Context, userID, scheduleID uuid.UUID) (*models.Invoice, error)
}

// RecurringHandler handles schedule CRUD, lifecycle transitions and runs.
type RecurringHandler struct {
	store  RecurringStore
	runner ScheduleRunner
	logger zerolog.Logger
	now    func() time.Time
}

// NewRecurringHandler creates a new recurring handler.
func NewRecurringHandler(store RecurringStore, runner ScheduleRunner, logger zerolog.Logger) *RecurringHandler {
	return &RecurringHandler{
		store:  store,
		runner: runner,
		logger: logger.With().Str("component", "recurring_handler").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes registers schedule routes on the given router group.
func (h *RecurringHandler) RegisterRoutes(r *gin.RouterGroup) {
	rec := r.Group("/recurring")
	{
		rec.GET("", h.List)
		rec.POST("", h.Create)
		rec.GET("/:id", h.Get)
		rec.PUT("/:id", h.Update)
		rec.POST("/:id/pause", h.Pause)
		rec.POST("/:id/resume", h.Resume)
		rec.POST("/:id/cancel", h.Cancel)
		rec.POST("/:id/generate", h.Generate)
	}
}

// RegisterRunRoute registers the trigger endpoint. It lives outside the
// authenticated group and is guarded by the shared cron secret instead.
func (h *RecurringHandler) RegisterRunRoute(r *gin.RouterGroup, guard gin.HandlerFunc) {
	r.PUT("/recurring/run", guard, h.Run)
}

// List returns the user's schedules with client and template identity.
func (h *RecurringHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	schedules, err := h.store.ListRecurringInvoices(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list schedules")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list recurring invoices"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"recurring_invoices": schedules, "count": len(schedules)})
}

// Create designates an existing invoice as a recurring template.
func (h *RecurringHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req models.CreateRecurringInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.ValidFrequency(req.Frequency) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid frequency"})
		return
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must not precede start_date"})
		return
	}

	if _, err := h.store.GetInvoiceByID(c.Request.Context(), user.ID, req.TemplateInvoiceID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "template invoice not found"})
			return
		}
		h.logger.Error().Err(err).Msg("Failed to load template invoice")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create recurring invoice"})
		return
	}
	if _, err := h.store.GetClient(c.Request.Context(), user.ID, req.ClientID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		h.logger.Error().Err(err).Msg("Failed to load client")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create recurring invoice"})
		return
	}

	rec := models.NewRecurringInvoice(user.ID, req.TemplateInvoiceID, req.ClientID, req.Frequency, req.StartDate)
	rec.EndDate = req.EndDate
	rec.AutoSend = req.AutoSend
	rec.SendDaysBeforeDue = req.SendDaysBeforeDue
	rec.Notes = req.Notes

	if err := h.store.CreateRecurringInvoice(c.Request.Context(), rec); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create schedule")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create recurring invoice"})
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// Get returns a single schedule.
func (h *RecurringHandler) Get(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	rec, ok := h.loadSchedule(c, user.ID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Update applies a partial update. Changing frequency or start date forces
// next_run_date recomputation from last_run_date (or start_date).
func (h *RecurringHandler) Update(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req models.UpdateRecurringInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, ok := h.loadSchedule(c, user.ID)
	if !ok {
		return
	}

	if rec.Status == models.RecurringStatusCancelled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cancelled schedules cannot be modified"})
		return
	}

	recompute := false
	if req.Frequency != nil {
		if !models.ValidFrequency(*req.Frequency) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid frequency"})
			return
		}
		if *req.Frequency != rec.Frequency {
			rec.Frequency = *req.Frequency
			recompute = true
		}
	}
	if req.StartDate != nil && !req.StartDate.Equal(rec.StartDate) {
		rec.StartDate = *req.StartDate
		recompute = true
	}
	if req.EndDate != nil {
		rec.EndDate = req.EndDate
	}
	if req.AutoSend != nil {
		rec.AutoSend = *req.AutoSend
	}
	if req.SendDaysBeforeDue != nil {
		rec.SendDaysBeforeDue = *req.SendDaysBeforeDue
	}
	if req.Notes != nil {
		rec.Notes = *req.Notes
	}

	if recompute {
		if rec.LastRunDate != nil {
			rec.NextRunDate = recurring.NextRun(*rec.LastRunDate, rec.Frequency)
		} else {
			rec.NextRunDate = rec.StartDate
		}
	}

	if err := h.store.UpdateRecurringInvoice(c.Request.Context(), rec); err != nil {
		h.logger.Error().Err(err).Str("schedule_id", rec.ID.String()).Msg("Failed to update schedule")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update recurring invoice"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// Pause suspends generation; paused schedules are skipped by the trigger.
func (h *RecurringHandler) Pause(c *gin.Context) {
	h.transition(c, models.RecurringStatusActive, models.RecurringStatusPaused)
}

// Resume reactivates a paused schedule.
func (h *RecurringHandler) Resume(c *gin.Context) {
	h.transition(c, models.RecurringStatusPaused, models.RecurringStatusActive)
}

// Cancel permanently disables a schedule. Irreversible.
func (h *RecurringHandler) Cancel(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	rec, ok := h.loadSchedule(c, user.ID)
	if !ok {
		return
	}

	if rec.Status == models.RecurringStatusCancelled {
		c.JSON(http.StatusOK, gin.H{"status": rec.Status})
		return
	}

	if err := h.store.SetRecurringStatus(c.Request.Context(), user.ID, rec.ID, models.RecurringStatusCancelled); err != nil {
		h.logger.Error().Err(err).Str("schedule_id", rec.ID.String()).Msg("Failed to cancel schedule")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel recurring invoice"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": models.RecurringStatusCancelled})
}

// Generate runs the clone-and-advance path for one schedule immediately.
func (h *RecurringHandler) Generate(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recurring invoice id"})
		return
	}

	inv, err := h.runner.GenerateNow(c.Request.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recurring invoice not found"})
			return
		}
		h.logger.Error().Err(err).Str("schedule_id", id.String()).Msg("Manual generation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, inv)
}

// Run processes all due schedules and reports the batch outcome. Reached
// only through the cron-secret guard.
func (h *RecurringHandler) Run(c *gin.Context) {
	summary := h.runner.ProcessDue(c.Request.Context())
	h.logger.Info().
		Int("processed", summary.Processed).
		Int("failed", summary.Failed).
		Msg("Recurring run complete")
	c.JSON(http.StatusOK, summary)
}

func (h *RecurringHandler) transition(c *gin.Context, from, to models.RecurringStatus) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	rec, ok := h.loadSchedule(c, user.ID)
	if !ok {
		return
	}

	if rec.Status != from {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status transition", "status": rec.Status})
		return
	}

	if err := h.store.SetRecurringStatus(c.Request.Context(), user.ID, rec.ID, to); err != nil {
		h.logger.Error().Err(err).Str("schedule_id", rec.ID.String()).Msg("Failed to change schedule status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": to})
}

func (h *RecurringHandler) loadSchedule(c *gin.Context, userID uuid.UUID) (*models.RecurringInvoice, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recurring invoice id"})
		return nil, false
	}

	rec, err := h.store.GetRecurringInvoice(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recurring invoice not found"})
			return nil, false
		}
		h.logger.Error().Err(err).Str("schedule_id", id.String()).Msg("Failed to get schedule")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get recurring invoice"})
		return nil, false
	}
	return rec, true
}
