package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityAction identifies what happened to an invoice.
type ActivityAction string

const (
	ActivityActionCreated         ActivityAction = "created"
	ActivityActionUpdated         ActivityAction = "updated"
	ActivityActionSent            ActivityAction = "sent"
	ActivityActionViewed          ActivityAction = "viewed"
	ActivityActionPaymentReceived ActivityAction = "payment_received"
	ActivityActionPaymentFailed   ActivityAction = "payment_failed"
	ActivityActionPaymentRefunded ActivityAction = "payment_refunded"
	ActivityActionCancelled       ActivityAction = "cancelled"
)

// ActivityEvent is one audit-log row for an invoice.
type ActivityEvent struct {
	ID        uuid.UUID      `json:"id"`
	InvoiceID uuid.UUID      `json:"invoice_id"`
	Action    ActivityAction `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewActivityEvent creates an audit-log entry for an invoice.
func NewActivityEvent(invoiceID uuid.UUID, action ActivityAction, details map[string]any) *ActivityEvent {
	return &ActivityEvent{
		ID:        uuid.New(),
		InvoiceID: invoiceID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
}
