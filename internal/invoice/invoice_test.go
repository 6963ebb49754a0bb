package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craudioviz/invoicer/internal/models"
)

func TestNumberUsesTrailingDigits(t *testing.T) {
	n := Number(time.UnixMilli(1735689658291))
	assert.Equal(t, "INV-89658291", n)
}

func TestNumberStable(t *testing.T) {
	ts := time.UnixMilli(1735689600000)
	assert.Equal(t, Number(ts), Number(ts))
}

func TestUniqueNumberRetriesOnCollision(t *testing.T) {
	times := []time.Time{
		time.UnixMilli(1735689600001),
		time.UnixMilli(1735689600001),
		time.UnixMilli(1735689600002),
	}
	i := 0
	now := func() time.Time {
		ts := times[i%len(times)]
		i++
		return ts
	}
	seen := map[string]bool{Number(times[0]): true}
	exists := func(_ context.Context, n string) (bool, error) {
		return seen[n], nil
	}

	n, err := UniqueNumber(context.Background(), now, exists)
	require.NoError(t, err)
	assert.Equal(t, Number(times[2]), n)
}

func TestUniqueNumberGivesUp(t *testing.T) {
	now := func() time.Time { return time.UnixMilli(1735689600001) }
	exists := func(context.Context, string) (bool, error) { return true, nil }
	_, err := UniqueNumber(context.Background(), now, exists)
	assert.Error(t, err)
}

func newTestInvoice(status models.InvoiceStatus, due time.Time, balance decimal.Decimal) *models.Invoice {
	return &models.Invoice{
		Status:     status,
		DueDate:    due,
		BalanceDue: balance,
	}
}

func TestEffectiveStatusOverdue(t *testing.T) {
	today := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	inv := newTestInvoice(models.InvoiceStatusSent, due, decimal.NewFromInt(100))
	assert.Equal(t, models.InvoiceStatusOverdue, EffectiveStatus(inv, today))

	// Stored status is not mutated.
	assert.Equal(t, models.InvoiceStatusSent, inv.Status)
}

func TestEffectiveStatusPartialPastDue(t *testing.T) {
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	inv := newTestInvoice(models.InvoiceStatusPartial, due, decimal.NewFromInt(50))
	assert.Equal(t, models.InvoiceStatusOverdue, EffectiveStatus(inv, today))
}

func TestEffectiveStatusDueTodayNotOverdue(t *testing.T) {
	today := time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	inv := newTestInvoice(models.InvoiceStatusSent, due, decimal.NewFromInt(100))
	assert.Equal(t, models.InvoiceStatusSent, EffectiveStatus(inv, today))
}

func TestEffectiveStatusTerminalStatesUntouched(t *testing.T) {
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, s := range []models.InvoiceStatus{
		models.InvoiceStatusPaid,
		models.InvoiceStatusRefunded,
		models.InvoiceStatusCancelled,
		models.InvoiceStatusDraft,
	} {
		inv := newTestInvoice(s, due, decimal.NewFromInt(100))
		assert.Equal(t, s, EffectiveStatus(inv, today), string(s))
	}
}

func TestEffectiveStatusZeroBalanceNotOverdue(t *testing.T) {
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	inv := newTestInvoice(models.InvoiceStatusViewed, due, decimal.Zero)
	assert.Equal(t, models.InvoiceStatusViewed, EffectiveStatus(inv, today))
}
