package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/craudioviz/invoicer/internal/currency"
	"github.com/craudioviz/invoicer/internal/models"
)

// SenderStore resolves the recipient and business profile for a generated
// invoice.
type SenderStore interface {
	GetClient(ctx context.Context, userID, id uuid.UUID) (*models.Client, error)
	GetSettings(ctx context.Context, userID uuid.UUID) (*models.Settings, error)
}

// InvoiceSender adapts the email service to the scheduler's auto-send hook.
type InvoiceSender struct {
	email  *EmailService
	store  SenderStore
	logger zerolog.Logger
}

// NewInvoiceSender creates a scheduler send adapter.
func NewInvoiceSender(email *EmailService, store SenderStore, logger zerolog.Logger) *InvoiceSender {
	return &InvoiceSender{
		email:  email,
		store:  store,
		logger: logger.With().Str("component", "invoice_sender").Logger(),
	}
}

// SendGeneratedInvoice emails a freshly generated recurring invoice to its
// client.
func (s *InvoiceSender) SendGeneratedInvoice(ctx context.Context, inv *models.Invoice) error {
	client, err := s.store.GetClient(ctx, inv.UserID, inv.ClientID)
	if err != nil {
		return fmt.Errorf("resolve client: %w", err)
	}
	settings, err := s.store.GetSettings(ctx, inv.UserID)
	if err != nil {
		return fmt.Errorf("resolve settings: %w", err)
	}

	data := InvoiceEmailData{
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
	return s.email.SendInvoice([]string{client.Email}, data)
}

// PaymentReceived emails the client a receipt for a recorded capture.
func (s *InvoiceSender) PaymentReceived(ctx context.Context, inv *models.Invoice, amount decimal.Decimal) error {
	client, err := s.store.GetClient(ctx, inv.UserID, inv.ClientID)
	if err != nil {
		return fmt.Errorf("resolve client: %w", err)
	}
	settings, err := s.store.GetSettings(ctx, inv.UserID)
	if err != nil {
		return fmt.Errorf("resolve settings: %w", err)
	}

	data := PaymentReceiptData{
		ClientName:       client.Name,
		BusinessName:     settings.BusinessName,
		InvoiceNumber:    inv.InvoiceNumber,
		AmountFormatted:  currency.Format(amount, inv.Currency),
		BalanceFormatted: currency.Format(inv.BalanceDue, inv.Currency),
		FullyPaid:        inv.BalanceDue.IsZero(),
	}
	return s.email.SendPaymentReceipt([]string{client.Email}, data)
}
