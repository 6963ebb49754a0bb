package money

import (
	"testing"

	"github.com/craudioviz/invoicer/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func items(pairs ...string) []models.LineItem {
	if len(pairs)%2 != 0 {
		panic("items wants quantity/rate pairs")
	}
	var out []models.LineItem
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, models.LineItem{
			Description: "item",
			Quantity:    dec(pairs[i]),
			Rate:        dec(pairs[i+1]),
		})
	}
	return out
}

func TestComputeTotals(t *testing.T) {
	t.Run("plain sum", func(t *testing.T) {
		got := ComputeTotals(items("2", "50", "1", "100"), decimal.Zero, decimal.Zero, models.DiscountTypeFixed, decimal.Zero)
		assert.True(t, got.Subtotal.Equal(dec("200")), "subtotal %s", got.Subtotal)
		assert.True(t, got.Total.Equal(dec("200")))
		assert.True(t, got.BalanceDue.Equal(dec("200")))
	})

	t.Run("fixed discount then tax", func(t *testing.T) {
		// (1000 - 100) * 1.10 = 990
		got := ComputeTotals(items("10", "100"), dec("10"), dec("100"), models.DiscountTypeFixed, decimal.Zero)
		assert.True(t, got.TaxableAmount.Equal(dec("900")))
		assert.True(t, got.TaxAmount.Equal(dec("90")))
		assert.True(t, got.Total.Equal(dec("990")))
	})

	t.Run("percentage discount", func(t *testing.T) {
		// 1000 - 25% = 750, + 8% tax = 810
		got := ComputeTotals(items("10", "100"), dec("8"), dec("25"), models.DiscountTypePercentage, decimal.Zero)
		assert.True(t, got.DiscountValue.Equal(dec("250")))
		assert.True(t, got.Total.Equal(dec("810")))
	})

	t.Run("balance floored at zero", func(t *testing.T) {
		got := ComputeTotals(items("1", "100"), decimal.Zero, decimal.Zero, models.DiscountTypeFixed, dec("150"))
		assert.True(t, got.BalanceDue.IsZero())
	})

	t.Run("taxable amount may go negative", func(t *testing.T) {
		got := ComputeTotals(items("1", "50"), decimal.Zero, dec("80"), models.DiscountTypeFixed, decimal.Zero)
		assert.True(t, got.TaxableAmount.IsNegative())
	})
}

func TestApplyTotalsIdempotent(t *testing.T) {
	inv := &models.Invoice{
		Items:          items("3", "19.99", "1.5", "80"),
		TaxRate:        dec("7.5"),
		DiscountAmount: dec("10"),
		DiscountType:   models.DiscountTypePercentage,
		AmountPaid:     dec("20"),
	}

	ApplyTotals(inv)
	first := *inv
	ApplyTotals(inv)

	require.True(t, inv.Subtotal.Equal(first.Subtotal))
	require.True(t, inv.TaxAmount.Equal(first.TaxAmount))
	require.True(t, inv.Total.Equal(first.Total))
	require.True(t, inv.BalanceDue.Equal(first.BalanceDue))
	for i := range inv.Items {
		require.True(t, inv.Items[i].Amount.Equal(first.Items[i].Amount))
	}
}

func TestApplyTotalsOverridesClientValues(t *testing.T) {
	inv := &models.Invoice{
		Items:    items("2", "100"),
		Subtotal: dec("999999"), // Client-submitted garbage
		Total:    dec("1"),
	}
	ApplyTotals(inv)
	assert.True(t, inv.Subtotal.Equal(dec("200")))
	assert.True(t, inv.Total.Equal(dec("200")))
}
