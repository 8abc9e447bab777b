// Package validation holds the small input checks shared by the form-facing
// handlers. Validation failures become field-keyed messages; values are never
// silently corrected here.
package validation

// IsHexColor accepts the stored #RRGGBB form.
func IsHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// IsPanLast4 accepts exactly four decimal digits.
func IsPanLast4(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsExpiry validates a card expiry month/year pair.
func IsExpiry(month, year int) bool {
	return month >= 1 && month <= 12 && year >= 2000 && year <= 2100
}
