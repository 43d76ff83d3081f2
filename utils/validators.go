package utils

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail checks the basic shape of an email address.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidUsername accepts 3-100 characters of letters, digits,
// underscores and hyphens.
func IsValidUsername(username string) bool {
	if len(username) < 3 || len(username) > 100 {
		return false
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

// IsStrongPassword requires at least 8 characters with a letter and a
// digit.
func IsStrongPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit := false, false
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	return hasLetter && hasDigit
}

// NormalizeSearch trims and collapses whitespace in a search term.
func NormalizeSearch(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
