package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craudioviz/invoicer/internal/currency"
	"github.com/craudioviz/invoicer/internal/models"
)

// stripeTolerance bounds how old a signed webhook may be before it is
// rejected as a possible replay.
const stripeTolerance = 5 * time.Minute

// VerifyStripeSignature checks a Stripe-Signature header (t=...,v1=...)
// against the payload using the endpoint's signing secret.
func VerifyStripeSignature(payload []byte, header, secret string, now time.Time) error {
	var timestamp string
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signatures = append(signatures, v)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("malformed signature header")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed signature timestamp")
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > stripeTolerance || age < -stripeTolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return fmt.Errorf("no matching signature")
}

// stripeEvent is the subset of a Stripe event envelope we read. Amounts are
// integer minor units; metadata carries our invoice id.
type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Metadata struct {
				InvoiceID string `json:"invoice_id"`
			} `json:"metadata"`
			AmountTotal    int64 `json:"amount_total"`
			AmountReceived int64 `json:"amount_received"`
			AmountRefunded int64 `json:"amount_refunded"`
			LastPaymentError struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
			PaymentIntent string `json:"payment_intent"`
		} `json:"object"`
	} `json:"data"`
}

// ParseStripeEvent normalizes a verified Stripe payload. A nil Event with nil
// error means the event type is not one we act on.
func ParseStripeEvent(payload []byte) (*Event, error) {
	var raw stripeEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode stripe event: %w", err)
	}

	obj := raw.Data.Object

	// Resolve the kind before touching metadata: unrecognized event types
	// carry no invoice id and must not look malformed.
	var kind EventKind
	var amount int64
	switch raw.Type {
	case "checkout.session.completed":
		kind, amount = EventCaptureSucceeded, obj.AmountTotal
	case "payment_intent.succeeded":
		kind, amount = EventCaptureSucceeded, obj.AmountReceived
	case "payment_intent.payment_failed":
		kind, amount = EventCaptureFailed, obj.Amount
	case "charge.refunded":
		kind, amount = EventRefund, obj.AmountRefunded
	default:
		return nil, nil
	}

	invoiceID, err := uuid.Parse(obj.Metadata.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("stripe event %s has no usable invoice_id metadata", raw.ID)
	}

	currency := strings.ToUpper(obj.Currency)
	ev := &Event{
		Kind:          kind,
		InvoiceID:     invoiceID,
		Amount:        minorUnits(amount, currency),
		Currency:      currency,
		Method:        models.PaymentMethodStripe,
		TransactionID: obj.ID,
	}
	switch kind {
	case EventCaptureFailed:
		ev.ErrMessage = obj.LastPaymentError.Message
	case EventRefund:
		ev.TransactionID = "refund_" + obj.ID
	}
	return ev, nil
}

// minorUnits converts a processor integer amount to a decimal using the
// currency's decimal-place count.
func minorUnits(amount int64, code string) decimal.Decimal {
	places := 2
	if info, ok := currency.Lookup(code); ok {
		places = info.DecimalPlaces
	}
	return decimal.New(amount, -int32(places))
}
