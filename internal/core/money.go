// Package core holds the domain types and the pure computations of the
// client: the currency codec, the expense split allocator, and the ledger
// aggregator. Amounts are int64 minor currency units everywhere; no
// floating-point value ever appears on the settlement path.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the fallback currency code when no preference is stored.
const DefaultCurrency = "INR"

// CurrencySymbol maps a currency code to its display symbol. Unknown codes
// fall back to the INR symbol, matching the default currency.
func CurrencySymbol(code string) string {
	switch code {
	case "USD":
		return "$"
	case "EUR":
		return "€"
	default:
		return "₹"
	}
}

var hundred = decimal.NewFromInt(100)

// FormatMinor renders minor units as a display string with the currency
// symbol and two decimal places. The stored integer is never rounded;
// division by 100 happens only for display.
func FormatMinor(amountMinor int64, code string) string {
	neg := amountMinor < 0
	if neg {
		amountMinor = -amountMinor
	}
	s := CurrencySymbol(code) + strconv.FormatInt(amountMinor/100, 10) +
		"." + fmt.Sprintf("%02d", amountMinor%100)
	if neg {
		return "-" + s
	}
	return s
}

// ParseDecimalToMinor converts a user-typed decimal string to minor units,
// rounding half away from zero. Both dot and comma decimal separators are
// accepted. Returns ErrParseAmount for non-numeric input.
//
// Zero is a valid result here: custom split entries that round to zero are
// dropped by the allocator, not rejected by the parser. Positivity of the
// expense total is the allocator's rule.
func ParseDecimalToMinor(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, ErrParseAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrParseAmount, s)
	}
	return d.Mul(hundred).Round(0).IntPart(), nil
}

// FormatBalance renders a balance as its status label followed by the
// absolute amount, e.g. "owes ₹4.50".
func FormatBalance(b Balance, code string) string {
	return fmt.Sprintf("%s %s", b.Status(), FormatMinor(b.Magnitude(), code))
}
