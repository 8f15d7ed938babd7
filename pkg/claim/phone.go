package claim

import "strings"

// NormalizePhone reduces a user-typed Indian mobile number to its ten
// national digits. Every non-digit is dropped, then a leading "91" country
// code (12 digits) or trunk "0" (11 digits) is removed.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	}

	if len(digits) != 10 {
		return "", ErrInvalidPhone
	}
	return digits, nil
}
