package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus defines the lifecycle state of an invoice.
type InvoiceStatus string

const (
	// InvoiceStatusDraft is an invoice that has not been sent.
	InvoiceStatusDraft InvoiceStatus = "draft"
	// InvoiceStatusSent is an invoice delivered to the client.
	InvoiceStatusSent InvoiceStatus = "sent"
	// InvoiceStatusViewed is an invoice the client has opened in the portal.
	InvoiceStatusViewed InvoiceStatus = "viewed"
	// InvoiceStatusPaid is a fully paid invoice.
	InvoiceStatusPaid InvoiceStatus = "paid"
	// InvoiceStatusPartial is an invoice with a partial payment applied.
	InvoiceStatusPartial InvoiceStatus = "partial"
	// InvoiceStatusOverdue is derived at read time, never stored.
	InvoiceStatusOverdue InvoiceStatus = "overdue"
	// InvoiceStatusRefunded is a paid invoice whose payments were fully returned.
	InvoiceStatusRefunded InvoiceStatus = "refunded"
	// InvoiceStatusCancelled is a cancelled invoice.
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// ValidInvoiceStatus reports whether s is a known stored status.
// Overdue is excluded: it is computed from due date and balance.
func ValidInvoiceStatus(s InvoiceStatus) bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusViewed,
		InvoiceStatusPaid, InvoiceStatusPartial, InvoiceStatusRefunded,
		InvoiceStatusCancelled:
		return true
	}
	return false
}

// DiscountType defines how a discount amount is interpreted.
type DiscountType string

const (
	// DiscountTypeFixed subtracts the discount amount directly.
	DiscountTypeFixed DiscountType = "fixed"
	// DiscountTypePercentage applies the discount as a percentage of the subtotal.
	DiscountTypePercentage DiscountType = "percentage"
)

// LineItem is one billed line on an invoice.
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"` // quantity * rate, server computed
}

// Invoice represents a billing document.
type Invoice struct {
	ID                 uuid.UUID       `json:"id"`
	UserID             uuid.UUID       `json:"user_id"`
	ClientID           uuid.UUID       `json:"client_id"`
	InvoiceNumber      string          `json:"invoice_number"`
	InvoiceDate        time.Time       `json:"invoice_date"`
	DueDate            time.Time       `json:"due_date"`
	Status             InvoiceStatus   `json:"status"`
	Currency           string          `json:"currency"`
	Items              []LineItem      `json:"items"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	TaxRate            decimal.Decimal `json:"tax_rate"` // Percentage, e.g. 7.5
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	DiscountType       DiscountType    `json:"discount_type"`
	Total              decimal.Decimal `json:"total"`
	AmountPaid         decimal.Decimal `json:"amount_paid"`
	BalanceDue         decimal.Decimal `json:"balance_due"`
	Notes              string          `json:"notes,omitempty"`
	Terms              string          `json:"terms,omitempty"`
	PaymentLink        string          `json:"payment_link,omitempty"`
	RecurringInvoiceID *uuid.UUID      `json:"recurring_invoice_id,omitempty"`
	SentAt             *time.Time      `json:"sent_at,omitempty"`
	ViewedAt           *time.Time      `json:"viewed_at,omitempty"`
	PaidAt             *time.Time      `json:"paid_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewInvoice creates a draft Invoice for the given client.
func NewInvoice(userID, clientID uuid.UUID, number, currency string, invoiceDate, dueDate time.Time) *Invoice {
	now := time.Now().UTC()
	return &Invoice{
		ID:            uuid.New(),
		UserID:        userID,
		ClientID:      clientID,
		InvoiceNumber: number,
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,
		Status:        InvoiceStatusDraft,
		Currency:      currency,
		DiscountType:  DiscountTypeFixed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsPaid returns true if the invoice has been fully paid.
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// IsEditable reports whether the owning user may still edit line items and
// header fields. Only draft and sent invoices are mutable.
func (i *Invoice) IsEditable() bool {
	return i.Status == InvoiceStatusDraft || i.Status == InvoiceStatusSent
}

// Balance returns total minus amount paid, floored at zero.
func (i *Invoice) Balance() decimal.Decimal {
	b := i.Total.Sub(i.AmountPaid)
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

// InvoiceWithClient includes client identity for list display.
type InvoiceWithClient struct {
	Invoice
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
}

// LineItemRequest is the request shape for one invoice line.
type LineItemRequest struct {
	Description string          `json:"description" binding:"required,min=1"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	Rate        decimal.Decimal `json:"rate" binding:"required"`
}

// CreateInvoiceRequest is the request body for creating an invoice.
// Client-submitted totals are ignored; the server recomputes them.
type CreateInvoiceRequest struct {
	ClientID       *uuid.UUID        `json:"client_id,omitempty"`
	ClientName     string            `json:"client_name,omitempty"`
	ClientEmail    string            `json:"client_email,omitempty"`
	Currency       string            `json:"currency,omitempty"`
	InvoiceDate    *time.Time        `json:"invoice_date,omitempty"`
	DueDate        *time.Time        `json:"due_date,omitempty"`
	Items          []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	TaxRate        decimal.Decimal   `json:"tax_rate"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	DiscountType   DiscountType      `json:"discount_type,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	Terms          string            `json:"terms,omitempty"`
}

// UpdateInvoiceRequest is the request body for updating an invoice.
type UpdateInvoiceRequest struct {
	InvoiceDate    *time.Time        `json:"invoice_date,omitempty"`
	DueDate        *time.Time        `json:"due_date,omitempty"`
	Currency       *string           `json:"currency,omitempty"`
	Items          []LineItemRequest `json:"items,omitempty,dive"`
	TaxRate        *decimal.Decimal  `json:"tax_rate,omitempty"`
	DiscountAmount *decimal.Decimal  `json:"discount_amount,omitempty"`
	DiscountType   *DiscountType     `json:"discount_type,omitempty"`
	Notes          *string           `json:"notes,omitempty"`
	Terms          *string           `json:"terms,omitempty"`
	PaymentLink    *string           `json:"payment_link,omitempty"`
}

// SendInvoiceRequest is the request body for emailing an invoice.
type SendInvoiceRequest struct {
	To      string `json:"to,omitempty"` // Defaults to the client email
	Subject string `json:"subject,omitempty"`
}
