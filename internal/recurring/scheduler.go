package recurring

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/craudioviz/invoicer/internal/invoice"
	"github.com/craudioviz/invoicer/internal/metrics"
	"github.com/craudioviz/invoicer/internal/models"
	"github.com/craudioviz/invoicer/internal/money"
)

// defaultDueDays is how far out the due date lands when the owning client has
// no payment terms of its own.
const defaultDueDays = 30

// Store is the persistence surface the scheduler needs.
type Store interface {
	// DueRecurringInvoices returns active schedules with next_run_date on or
	// before the given day, across all users.
	DueRecurringInvoices(ctx context.Context, today time.Time) ([]*models.RecurringInvoice, error)
	GetRecurringInvoice(ctx context.Context, userID, id uuid.UUID) (*models.RecurringInvoice, error)
	// GetInvoiceByID fetches the template invoice for a schedule.
	GetInvoiceByID(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error)
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
	// CreateGeneratedInvoice inserts the invoice and advances the schedule in
	// one transaction. The advance is conditional on next_run_date still
	// matching expectedRun; a false return means another trigger already
	// handled this occurrence and nothing was written.
	CreateGeneratedInvoice(ctx context.Context, inv *models.Invoice, scheduleID uuid.UUID, expectedRun, nextRun, ranAt time.Time) (bool, error)
	CompleteRecurringInvoice(ctx context.Context, id uuid.UUID) error
}

// Sender delivers a generated invoice to its client by email.
type Sender interface {
	SendGeneratedInvoice(ctx context.Context, inv *models.Invoice) error
}

// Scheduler processes due recurring schedules into draft invoices.
type Scheduler struct {
	store   Store
	sender  Sender
	now     func() time.Time
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewScheduler creates a Scheduler. sender may be nil, which disables
// auto-send delivery.
func NewScheduler(store Store, sender Sender, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		sender: sender,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With().Str("component", "recurring").Logger(),
	}
}

// SetMetrics attaches generation counters. Safe to leave unset.
func (s *Scheduler) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// ProcessDue generates one invoice for every schedule whose next run date has
// arrived. Each schedule is handled in isolation: a failure is recorded in
// the summary and does not stop the batch.
func (s *Scheduler) ProcessDue(ctx context.Context) *models.RunSummary {
	summary := &models.RunSummary{
		InvoicesCreated: []string{},
		Errors:          []string{},
	}

	today := s.now()
	due, err := s.store.DueRecurringInvoices(ctx, today)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list due recurring invoices")
		summary.Failed++
		summary.Errors = append(summary.Errors, fmt.Sprintf("list due schedules: %v", err))
		s.count(summary)
		return summary
	}

	for _, rec := range due {
		if rec.Expired(today) {
			if err := s.store.CompleteRecurringInvoice(ctx, rec.ID); err != nil {
				s.logger.Error().Err(err).Str("recurring_id", rec.ID.String()).Msg("failed to complete expired schedule")
				summary.Failed++
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: complete expired: %v", rec.ID, err))
			}
			continue
		}

		inv, created, err := s.runOne(ctx, rec, today)
		if err != nil {
			s.logger.Error().Err(err).Str("recurring_id", rec.ID.String()).Msg("failed to generate invoice")
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", rec.ID, err))
			continue
		}
		if !created {
			// Another trigger got here first.
			continue
		}

		summary.Processed++
		summary.InvoicesCreated = append(summary.InvoicesCreated, inv.InvoiceNumber)
		s.logger.Info().
			Str("recurring_id", rec.ID.String()).
			Str("invoice_number", inv.InvoiceNumber).
			Msg("generated recurring invoice")

		if rec.AutoSend && s.sender != nil {
			go s.autoSend(inv)
		}
	}

	s.logger.Info().
		Int("processed", summary.Processed).
		Int("failed", summary.Failed).
		Msg("recurring run finished")
	s.count(summary)
	return summary
}

func (s *Scheduler) count(summary *models.RunSummary) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecurringGenerated.Add(float64(summary.Processed))
	s.metrics.RecurringRunErrors.Add(float64(summary.Failed))
}

// GenerateNow generates the next invoice for one schedule on demand,
// advancing it exactly as a scheduled run would. The schedule must belong to
// the user and be active.
func (s *Scheduler) GenerateNow(ctx context.Context, userID, scheduleID uuid.UUID) (*models.Invoice, error) {
	rec, err := s.store.GetRecurringInvoice(ctx, userID, scheduleID)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.RecurringStatusActive {
		return nil, fmt.Errorf("schedule is %s, only active schedules can generate invoices", rec.Status)
	}

	inv, created, err := s.runOne(ctx, rec, s.now())
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, fmt.Errorf("schedule was advanced concurrently, no invoice generated")
	}
	return inv, nil
}

// runOne clones the template, computes totals and writes the invoice plus the
// schedule advance atomically. A false return without error means the
// conditional advance lost to a concurrent run.
func (s *Scheduler) runOne(ctx context.Context, rec *models.RecurringInvoice, today time.Time) (*models.Invoice, bool, error) {
	tmpl, err := s.store.GetInvoiceByID(ctx, rec.UserID, rec.TemplateInvoiceID)
	if err != nil {
		return nil, false, fmt.Errorf("load template: %w", err)
	}

	number, err := invoice.UniqueNumber(ctx, s.now, s.store.InvoiceNumberExists)
	if err != nil {
		return nil, false, err
	}

	inv := cloneTemplate(tmpl, rec, number, today)
	money.ApplyTotals(inv)

	// Advance from today, not the stored date: a schedule that lagged behind
	// must land strictly in the future or the next trigger bills it again.
	nextRun := NextRun(today, rec.Frequency)
	created, err := s.store.CreateGeneratedInvoice(ctx, inv, rec.ID, rec.NextRunDate, nextRun, today)
	if err != nil {
		return nil, false, err
	}
	return inv, created, nil
}

// cloneTemplate copies the billable content of the template into a fresh
// draft. Payment state and lifecycle timestamps never carry over.
func cloneTemplate(tmpl *models.Invoice, rec *models.RecurringInvoice, number string, today time.Time) *models.Invoice {
	due := today.AddDate(0, 0, defaultDueDays)
	inv := models.NewInvoice(rec.UserID, rec.ClientID, number, tmpl.Currency, today, due)
	inv.RecurringInvoiceID = &rec.ID
	inv.TaxRate = tmpl.TaxRate
	inv.DiscountAmount = tmpl.DiscountAmount
	inv.DiscountType = tmpl.DiscountType
	inv.Notes = tmpl.Notes
	inv.Terms = tmpl.Terms
	inv.AmountPaid = decimal.Zero

	inv.Items = make([]models.LineItem, len(tmpl.Items))
	for i, item := range tmpl.Items {
		inv.Items[i] = models.LineItem{
			ID:          uuid.New(),
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
		}
	}
	return inv
}

func (s *Scheduler) autoSend(inv *models.Invoice) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.sender.SendGeneratedInvoice(ctx, inv); err != nil {
		s.logger.Warn().Err(err).Str("invoice_number", inv.InvoiceNumber).Msg("auto-send failed")
	}
}
