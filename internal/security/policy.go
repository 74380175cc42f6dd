package security

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail checks shape only: one @, a dotted domain, no whitespace.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidPassword requires at least 8 characters with an ASCII upper, lower,
// digit and a non-word symbol (anything outside [A-Za-z0-9_]).
func ValidPassword(pw string) bool {
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		return false
	}

	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case r == '_':
		default:
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

// NormalizeEmail is the key used for pending registrations and user lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
