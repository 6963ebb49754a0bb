package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod identifies the processor that moved the money.
type PaymentMethod string

const (
	// PaymentMethodStripe is a payment captured by Stripe.
	PaymentMethodStripe PaymentMethod = "stripe"
	// PaymentMethodPayPal is a payment captured by PayPal.
	PaymentMethodPayPal PaymentMethod = "paypal"
)

// PaymentStatus defines the state of a payment ledger entry.
type PaymentStatus string

const (
	// PaymentStatusPending is a payment awaiting confirmation.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusCompleted is a confirmed capture.
	PaymentStatusCompleted PaymentStatus = "completed"
	// PaymentStatusFailed is a capture attempt that did not succeed.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusRefunded is a returned payment; its amount is negative.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Payment is an append-only ledger entry recording money movement against an
// invoice. Rows are never updated or deleted; refunds append negative rows.
type Payment struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"` // Negative for refunds
	Currency      string          `json:"currency"`
	Method        PaymentMethod   `json:"method"`
	Status        PaymentStatus   `json:"status"`
	TransactionID string          `json:"transaction_id"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewPayment creates a ledger entry for the given invoice.
func NewPayment(invoiceID uuid.UUID, amount decimal.Decimal, currency string, method PaymentMethod, status PaymentStatus, txnID string) *Payment {
	return &Payment{
		ID:            uuid.New(),
		InvoiceID:     invoiceID,
		Amount:        amount,
		Currency:      currency,
		Method:        method,
		Status:        status,
		TransactionID: txnID,
		CreatedAt:     time.Now().UTC(),
	}
}
