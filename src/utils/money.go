package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var centsFactor = decimal.NewFromInt(100)

// ParseAmountToCents converts a user-entered amount string into integer cents.
// Currency markers ("S/", "$") and thousands separators are tolerated; the
// value is rounded half-up to two decimal places before conversion.
func ParseAmountToCents(s string) (int64, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "S/")
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative")
	}
	return d.Round(2).Mul(centsFactor).IntPart(), nil
}

// FormatCents renders integer cents as a plain decimal string with two
// fractional digits, e.g. 1250 -> "12.50".
func FormatCents(cents int64) string {
	return decimal.NewFromInt(cents).Div(centsFactor).StringFixed(2)
}
