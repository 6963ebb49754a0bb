// Package payments applies payment-processor webhook events to the invoice
// ledger.
package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/craudioviz/invoicer/internal/models"
)

// EventKind identifies a normalized processor event.
type EventKind string

const (
	// EventCaptureSucceeded is a confirmed payment capture.
	EventCaptureSucceeded EventKind = "capture_succeeded"
	// EventCaptureFailed is a failed capture attempt.
	EventCaptureFailed EventKind = "capture_failed"
	// EventRefund is a full or partial refund of a prior capture.
	EventRefund EventKind = "refund"
)

// Event is a processor webhook payload reduced to the fields the ledger
// needs. Amount is always positive; refunds are negated when recorded.
type Event struct {
	Kind          EventKind
	InvoiceID     uuid.UUID
	Amount        decimal.Decimal
	Currency      string
	Method        models.PaymentMethod
	TransactionID string
	ErrMessage    string
}

// Store is the persistence surface the reconciler needs. ApplyPayment writes
// the payment row and the invoice update in one transaction; the unique
// transaction_id constraint is the race-safe duplicate guard.
type Store interface {
	GetInvoiceForPayment(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	PaymentExists(ctx context.Context, transactionID string) (bool, error)
	ApplyPayment(ctx context.Context, payment *models.Payment, inv *models.Invoice, activity *models.ActivityEvent) error
	IsDuplicatePayment(err error) bool
}

// Notifier is told about captures after they are recorded. Delivery is fire
// and forget; failures never affect the ledger write.
type Notifier interface {
	PaymentReceived(ctx context.Context, inv *models.Invoice, amount decimal.Decimal) error
}

// Reconciler applies verified processor events idempotently.
type Reconciler struct {
	store    Store
	notifier Notifier
	now      func() time.Time
	logger   zerolog.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(store Store, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With().Str("component", "payments").Logger(),
	}
}

// SetNotifier attaches a receipt notifier. Safe to leave unset.
func (r *Reconciler) SetNotifier(n Notifier) {
	r.notifier = n
}

// Apply applies one event. Duplicate deliveries (same transaction id) return
// nil without touching the ledger so the processor stops retrying.
func (r *Reconciler) Apply(ctx context.Context, ev Event) error {
	if ev.TransactionID == "" {
		return fmt.Errorf("event has no transaction id")
	}

	dup, err := r.store.PaymentExists(ctx, ev.TransactionID)
	if err != nil {
		return err
	}
	if dup {
		r.logger.Info().Str("transaction_id", ev.TransactionID).Msg("duplicate delivery, skipping")
		return nil
	}

	inv, err := r.store.GetInvoiceForPayment(ctx, ev.InvoiceID)
	if err != nil {
		return fmt.Errorf("resolve invoice %s: %w", ev.InvoiceID, err)
	}

	var payment *models.Payment
	var activity *models.ActivityEvent

	switch ev.Kind {
	case EventCaptureSucceeded:
		payment, activity = r.applyCapture(inv, ev)
	case EventCaptureFailed:
		payment = models.NewPayment(inv.ID, ev.Amount, ev.Currency, ev.Method, models.PaymentStatusFailed, ev.TransactionID)
		payment.ErrorMessage = ev.ErrMessage
		activity = models.NewActivityEvent(inv.ID, models.ActivityActionPaymentFailed, map[string]any{
			"amount": ev.Amount.String(),
			"error":  ev.ErrMessage,
		})
		inv = nil // invoice untouched on failed captures
	case EventRefund:
		payment, activity = r.applyRefund(inv, ev)
	default:
		// Unknown kinds are acknowledged, never retried.
		r.logger.Warn().Str("kind", string(ev.Kind)).Msg("ignoring unrecognized event kind")
		return nil
	}

	if err := r.store.ApplyPayment(ctx, payment, inv, activity); err != nil {
		if r.store.IsDuplicatePayment(err) {
			r.logger.Info().Str("transaction_id", ev.TransactionID).Msg("duplicate delivery lost insert race, skipping")
			return nil
		}
		return err
	}

	r.logger.Info().
		Str("kind", string(ev.Kind)).
		Str("transaction_id", ev.TransactionID).
		Str("invoice_id", ev.InvoiceID.String()).
		Msg("payment event applied")

	if ev.Kind == EventCaptureSucceeded && r.notifier != nil {
		go r.sendReceipt(inv, ev.Amount)
	}
	return nil
}

func (r *Reconciler) sendReceipt(inv *models.Invoice, amount decimal.Decimal) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.notifier.PaymentReceived(ctx, inv, amount); err != nil {
		r.logger.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("failed to send payment receipt")
	}
}

func (r *Reconciler) applyCapture(inv *models.Invoice, ev Event) (*models.Payment, *models.ActivityEvent) {
	now := r.now()

	inv.AmountPaid = inv.AmountPaid.Add(ev.Amount)
	inv.BalanceDue = inv.Balance()
	if inv.BalanceDue.IsZero() {
		inv.Status = models.InvoiceStatusPaid
		inv.PaidAt = &now
	} else {
		inv.Status = models.InvoiceStatusPartial
	}
	inv.UpdatedAt = now

	payment := models.NewPayment(inv.ID, ev.Amount, ev.Currency, ev.Method, models.PaymentStatusCompleted, ev.TransactionID)
	payment.PaidAt = &now

	activity := models.NewActivityEvent(inv.ID, models.ActivityActionPaymentReceived, map[string]any{
		"amount": ev.Amount.String(),
		"method": string(ev.Method),
	})
	return payment, activity
}

func (r *Reconciler) applyRefund(inv *models.Invoice, ev Event) (*models.Payment, *models.ActivityEvent) {
	now := r.now()

	inv.AmountPaid = inv.AmountPaid.Sub(ev.Amount)
	if inv.AmountPaid.IsNegative() {
		inv.AmountPaid = decimal.Zero
	}
	inv.BalanceDue = inv.Balance()

	switch {
	case inv.BalanceDue.IsZero():
		inv.Status = models.InvoiceStatusPaid
	case inv.AmountPaid.IsPositive():
		inv.Status = models.InvoiceStatusPartial
	default:
		inv.Status = models.InvoiceStatusSent
		inv.PaidAt = nil
	}
	inv.UpdatedAt = now

	payment := models.NewPayment(inv.ID, ev.Amount.Neg(), ev.Currency, ev.Method, models.PaymentStatusRefunded, ev.TransactionID)

	activity := models.NewActivityEvent(inv.ID, models.ActivityActionPaymentRefunded, map[string]any{
		"amount": ev.Amount.String(),
		"method": string(ev.Method),
	})
	return payment, activity
}
