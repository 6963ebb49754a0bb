package invoice

import (
	"time"

	"github.com/craudioviz/invoicer/internal/models"
)

// EffectiveStatus derives the display status of an invoice. Overdue is never
// stored: an unpaid invoice past its due date reports overdue at read time
// while the stored status stays untouched. Terminal states are never
// downgraded.
func EffectiveStatus(inv *models.Invoice, today time.Time) models.InvoiceStatus {
	switch inv.Status {
	case models.InvoiceStatusPaid, models.InvoiceStatusRefunded, models.InvoiceStatusCancelled, models.InvoiceStatusDraft:
		return inv.Status
	}
	if inv.BalanceDue.IsPositive() && dateOnly(inv.DueDate).Before(dateOnly(today)) {
		return models.InvoiceStatusOverdue
	}
	return inv.Status
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
