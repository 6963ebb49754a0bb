package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTwoDecimalCurrencies(t *testing.T) {
	assert.Equal(t, "$1,234.50", Format(decimal.NewFromFloat(1234.5), "USD"))
	assert.Equal(t, "€0.99", Format(decimal.NewFromFloat(0.99), "EUR"))
	assert.Equal(t, "£1,000,000.00", Format(decimal.NewFromInt(1000000), "GBP"))
}

func TestFormatZeroDecimalCurrencies(t *testing.T) {
	// JPY and KRW carry no fractional part at all.
	assert.Equal(t, "¥1,500", Format(decimal.NewFromFloat(1500.49), "JPY"))
	assert.Equal(t, "₩12,345", Format(decimal.NewFromInt(12345), "KRW"))
}

func TestFormatThreeDecimalCurrencies(t *testing.T) {
	assert.Equal(t, "د.ك12.345", Format(decimal.NewFromFloat(12.345), "KWD"))
	assert.Equal(t, "﷼1.500", Format(decimal.NewFromFloat(1.5), "OMR"))
}

func TestFormatNegativeAmount(t *testing.T) {
	assert.Equal(t, "$-1,234.56", Format(decimal.NewFromFloat(-1234.56), "USD"))
}

func TestFormatUnknownCode(t *testing.T) {
	assert.Equal(t, "10.00 XXX", Format(decimal.NewFromInt(10), "xxx"))
}

func TestLookupCaseInsensitive(t *testing.T) {
	info, ok := Lookup("usd")
	require.True(t, ok)
	assert.Equal(t, "USD", info.Code)
	assert.Equal(t, 2, info.DecimalPlaces)
}

func TestAllSortedAndComplete(t *testing.T) {
	all := All()
	require.Len(t, all, len(currencies))
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Code, all[i].Code)
	}
}

func TestFallbackRatesCoverMajors(t *testing.T) {
	for _, code := range []string{"USD", "EUR", "GBP", "JPY"} {
		_, ok := fallbackRates[code]
		assert.True(t, ok, code)
	}
	assert.True(t, fallbackRates["USD"].Equal(decimal.NewFromInt(1)))
}
