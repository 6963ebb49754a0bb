// Package currency provides the supported-currency table, amount formatting
// and exchange-rate lookups with a static fallback.
package currency

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Info describes one supported currency.
type Info struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	DecimalPlaces int    `json:"decimal_places"`
}

// currencies is the static table of supported currencies. Decimal places are
// 0, 2 or 3 depending on the currency, not always 2.
var currencies = map[string]Info{
	"USD": {"USD", "US Dollar", "$", 2},
	"EUR": {"EUR", "Euro", "€", 2},
	"GBP": {"GBP", "British Pound", "£", 2},
	"JPY": {"JPY", "Japanese Yen", "¥", 0},
	"CAD": {"CAD", "Canadian Dollar", "C$", 2},
	"AUD": {"AUD", "Australian Dollar", "A$", 2},
	"CHF": {"CHF", "Swiss Franc", "CHF", 2},
	"CNY": {"CNY", "Chinese Yuan", "¥", 2},
	"INR": {"INR", "Indian Rupee", "₹", 2},
	"MXN": {"MXN", "Mexican Peso", "$", 2},
	"BRL": {"BRL", "Brazilian Real", "R$", 2},
	"KRW": {"KRW", "South Korean Won", "₩", 0},
	"SGD": {"SGD", "Singapore Dollar", "S$", 2},
	"HKD": {"HKD", "Hong Kong Dollar", "HK$", 2},
	"NOK": {"NOK", "Norwegian Krone", "kr", 2},
	"SEK": {"SEK", "Swedish Krona", "kr", 2},
	"DKK": {"DKK", "Danish Krone", "kr", 2},
	"NZD": {"NZD", "New Zealand Dollar", "NZ$", 2},
	"ZAR": {"ZAR", "South African Rand", "R", 2},
	"RUB": {"RUB", "Russian Ruble", "₽", 2},
	"TRY": {"TRY", "Turkish Lira", "₺", 2},
	"PLN": {"PLN", "Polish Zloty", "zł", 2},
	"THB": {"THB", "Thai Baht", "฿", 2},
	"IDR": {"IDR", "Indonesian Rupiah", "Rp", 0},
	"MYR": {"MYR", "Malaysian Ringgit", "RM", 2},
	"PHP": {"PHP", "Philippine Peso", "₱", 2},
	"CZK": {"CZK", "Czech Koruna", "Kč", 2},
	"ILS": {"ILS", "Israeli Shekel", "₪", 2},
	"CLP": {"CLP", "Chilean Peso", "$", 0},
	"AED": {"AED", "UAE Dirham", "د.إ", 2},
	"SAR": {"SAR", "Saudi Riyal", "﷼", 2},
	"TWD": {"TWD", "Taiwan Dollar", "NT$", 0},
	"ARS": {"ARS", "Argentine Peso", "$", 2},
	"COP": {"COP", "Colombian Peso", "$", 0},
	"PEN": {"PEN", "Peruvian Sol", "S/", 2},
	"VND": {"VND", "Vietnamese Dong", "₫", 0},
	"EGP": {"EGP", "Egyptian Pound", "E£", 2},
	"PKR": {"PKR", "Pakistani Rupee", "₨", 2},
	"NGN": {"NGN", "Nigerian Naira", "₦", 2},
	"BDT": {"BDT", "Bangladeshi Taka", "৳", 2},
	"UAH": {"UAH", "Ukrainian Hryvnia", "₴", 2},
	"RON": {"RON", "Romanian Leu", "lei", 2},
	"HUF": {"HUF", "Hungarian Forint", "Ft", 0},
	"BGN": {"BGN", "Bulgarian Lev", "лв", 2},
	"HRK": {"HRK", "Croatian Kuna", "kn", 2},
	"ISK": {"ISK", "Icelandic Krona", "kr", 0},
	"KES": {"KES", "Kenyan Shilling", "KSh", 2},
	"QAR": {"QAR", "Qatari Riyal", "﷼", 2},
	"KWD": {"KWD", "Kuwaiti Dinar", "د.ك", 3},
	"BHD": {"BHD", "Bahraini Dinar", ".د.ب", 3},
	"OMR": {"OMR", "Omani Rial", "﷼", 3},
}

// fallbackRates are static USD-base rates used whenever the live source is
// unavailable or unconfigured.
var fallbackRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromFloat(1.0),
	"EUR": decimal.NewFromFloat(0.92),
	"GBP": decimal.NewFromFloat(0.79),
	"JPY": decimal.NewFromFloat(149.5),
	"CAD": decimal.NewFromFloat(1.36),
	"AUD": decimal.NewFromFloat(1.53),
	"CHF": decimal.NewFromFloat(0.88),
	"CNY": decimal.NewFromFloat(7.24),
	"INR": decimal.NewFromFloat(83.12),
	"MXN": decimal.NewFromFloat(17.15),
	"BRL": decimal.NewFromFloat(4.97),
	"KRW": decimal.NewFromFloat(1298.5),
	"SGD": decimal.NewFromFloat(1.34),
	"HKD": decimal.NewFromFloat(7.82),
	"NOK": decimal.NewFromFloat(10.65),
	"SEK": decimal.NewFromFloat(10.42),
	"DKK": decimal.NewFromFloat(6.87),
	"NZD": decimal.NewFromFloat(1.64),
	"ZAR": decimal.NewFromFloat(18.75),
}

// Lookup returns the Info for a currency code.
func Lookup(code string) (Info, bool) {
	info, ok := currencies[strings.ToUpper(code)]
	return info, ok
}

// Supported reports whether the code appears in the static table.
func Supported(code string) bool {
	_, ok := Lookup(code)
	return ok
}

// All returns every supported currency sorted by code.
func All() []Info {
	out := make([]Info, 0, len(currencies))
	for _, info := range currencies {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Format renders an amount with the currency's decimal-place count, thousands
// grouping on the integer part, and the currency symbol prefixed. Unknown
// codes fall back to two decimal places with the code suffixed.
func Format(amount decimal.Decimal, code string) string {
	info, ok := Lookup(code)
	if !ok {
		return fmt.Sprintf("%s %s", amount.StringFixed(2), strings.ToUpper(code))
	}

	fixed := amount.StringFixed(int32(info.DecimalPlaces))

	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart := fixed
	fracPart := ""
	if idx := strings.IndexByte(fixed, '.'); idx >= 0 {
		intPart, fracPart = fixed[:idx], fixed[idx:]
	}

	grouped := groupThousands(intPart)
	if neg {
		grouped = "-" + grouped
	}
	return info.Symbol + grouped + fracPart
}

// groupThousands inserts comma separators into a plain digit string.
func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	b.Grow(n + n/3)
	lead := n % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
