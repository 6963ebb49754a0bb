// Package money implements the server-side invoice totals computation.
// All arithmetic uses shopspring decimals; floats never touch an amount.
package money

import (
	"github.com/craudioviz/invoicer/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals holds the computed fields of an invoice.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountValue  decimal.Decimal
	TaxableAmount  decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
	BalanceDue     decimal.Decimal
}

// ComputeTotals derives invoice totals from line items and tax/discount
// inputs. Evaluation order is fixed: subtotal, then discount, then tax on the
// discounted amount, then balance floored at zero. The taxable amount is
// reported unfloored so callers can warn on over-discounting.
func ComputeTotals(items []models.LineItem, taxRate, discountAmount decimal.Decimal, discountType models.DiscountType, amountPaid decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Quantity.Mul(item.Rate))
	}

	discountValue := discountAmount
	if discountType == models.DiscountTypePercentage {
		discountValue = subtotal.Mul(discountAmount.Div(hundred))
	}

	taxable := subtotal.Sub(discountValue)
	taxAmount := taxable.Mul(taxRate.Div(hundred))
	total := taxable.Add(taxAmount)

	balance := total.Sub(amountPaid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	return Totals{
		Subtotal:      subtotal,
		DiscountValue: discountValue,
		TaxableAmount: taxable,
		TaxAmount:     taxAmount,
		Total:         total,
		BalanceDue:    balance,
	}
}

// ApplyTotals recomputes an invoice's line amounts and computed fields in
// place. Any client-submitted totals are discarded; this is the single
// authoritative computation at persist time.
func ApplyTotals(inv *models.Invoice) {
	for i := range inv.Items {
		inv.Items[i].Amount = inv.Items[i].Quantity.Mul(inv.Items[i].Rate)
	}
	t := ComputeTotals(inv.Items, inv.TaxRate, inv.DiscountAmount, inv.DiscountType, inv.AmountPaid)
	inv.Subtotal = t.Subtotal
	inv.TaxAmount = t.TaxAmount
	inv.Total = t.Total
	inv.BalanceDue = t.BalanceDue
}
