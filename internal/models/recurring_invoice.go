package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency defines how often a recurring invoice fires.
type Frequency string

const (
	// FrequencyWeekly generates an invoice every 7 days.
	FrequencyWeekly Frequency = "weekly"
	// FrequencyBiweekly generates an invoice every 14 days.
	FrequencyBiweekly Frequency = "biweekly"
	// FrequencyMonthly generates an invoice every calendar month.
	FrequencyMonthly Frequency = "monthly"
	// FrequencyQuarterly generates an invoice every three calendar months.
	FrequencyQuarterly Frequency = "quarterly"
	// FrequencyYearly generates an invoice every calendar year.
	FrequencyYearly Frequency = "yearly"
)

// ValidFrequency reports whether f is a known frequency. Unknown values are
// rejected at create/update time and never defaulted at run time.
func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly,
		FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// RecurringStatus defines the state of a recurring schedule.
type RecurringStatus string

const (
	// RecurringStatusActive schedules are candidates for generation.
	RecurringStatusActive RecurringStatus = "active"
	// RecurringStatusPaused schedules are skipped by the trigger.
	RecurringStatusPaused RecurringStatus = "paused"
	// RecurringStatusCompleted schedules have passed their end date.
	RecurringStatusCompleted RecurringStatus = "completed"
	// RecurringStatusCancelled schedules are permanently disabled.
	RecurringStatusCancelled RecurringStatus = "cancelled"
)

// RecurringInvoice binds a template invoice to a generation schedule.
type RecurringInvoice struct {
	ID                   uuid.UUID       `json:"id"`
	UserID               uuid.UUID       `json:"user_id"`
	TemplateInvoiceID    uuid.UUID       `json:"template_invoice_id"`
	ClientID             uuid.UUID       `json:"client_id"`
	Frequency            Frequency       `json:"frequency"`
	StartDate            time.Time       `json:"start_date"`
	EndDate              *time.Time      `json:"end_date,omitempty"`
	NextRunDate          time.Time       `json:"next_run_date"`
	LastRunDate          *time.Time      `json:"last_run_date,omitempty"`
	AutoSend             bool            `json:"auto_send"`
	SendDaysBeforeDue    int             `json:"send_days_before_due"`
	Status               RecurringStatus `json:"status"`
	InvoicesGenerated    int             `json:"invoices_generated"`
	TotalAmountGenerated decimal.Decimal `json:"total_amount_generated"`
	Notes                string          `json:"notes,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// NewRecurringInvoice creates an active schedule. NextRunDate starts at the
// start date itself so the first invoice is generated on that day.
func NewRecurringInvoice(userID, templateID, clientID uuid.UUID, freq Frequency, start time.Time) *RecurringInvoice {
	now := time.Now().UTC()
	return &RecurringInvoice{
		ID:                   uuid.New(),
		UserID:               userID,
		TemplateInvoiceID:    templateID,
		ClientID:             clientID,
		Frequency:            freq,
		StartDate:            start,
		NextRunDate:          start,
		Status:               RecurringStatusActive,
		TotalAmountGenerated: decimal.Zero,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// IsDue reports whether the schedule should fire on the given date.
func (r *RecurringInvoice) IsDue(today time.Time) bool {
	return r.Status == RecurringStatusActive && !r.NextRunDate.After(today)
}

// Expired reports whether the schedule's end date has passed.
func (r *RecurringInvoice) Expired(today time.Time) bool {
	return r.EndDate != nil && r.EndDate.Before(today)
}

// RecurringInvoiceWithRefs includes client and template identity for display.
type RecurringInvoiceWithRefs struct {
	RecurringInvoice
	ClientName      string          `json:"client_name"`
	ClientEmail     string          `json:"client_email"`
	TemplateNumber  string          `json:"template_invoice_number"`
	TemplateTotal   decimal.Decimal `json:"template_total"`
}

// CreateRecurringInvoiceRequest is the request body for creating a schedule.
type CreateRecurringInvoiceRequest struct {
	TemplateInvoiceID uuid.UUID  `json:"template_invoice_id" binding:"required"`
	ClientID          uuid.UUID  `json:"client_id" binding:"required"`
	Frequency         Frequency  `json:"frequency" binding:"required"`
	StartDate         time.Time  `json:"start_date" binding:"required"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	AutoSend          bool       `json:"auto_send"`
	SendDaysBeforeDue int        `json:"send_days_before_due"`
	Notes             string     `json:"notes,omitempty"`
}

// UpdateRecurringInvoiceRequest is the request body for updating a schedule.
// Changing frequency or start date forces a next-run-date recomputation.
type UpdateRecurringInvoiceRequest struct {
	Frequency         *Frequency `json:"frequency,omitempty"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	AutoSend          *bool      `json:"auto_send,omitempty"`
	SendDaysBeforeDue *int       `json:"send_days_before_due,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
}

// RunSummary reports the outcome of one scheduler invocation.
type RunSummary struct {
	Processed       int      `json:"processed"`
	Failed          int      `json:"failed"`
	InvoicesCreated []string `json:"invoices_created"`
	Errors          []string `json:"errors"`
}
