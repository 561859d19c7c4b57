package validation

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// splitRe breaks a recipient list on commas, semicolons, and whitespace.
var splitRe = regexp.MustCompile(`[,\s;]+`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// NormalizeEmailList parses a loose cc/bcc field (comma, semicolon, or
// whitespace separated) and returns only the syntactically valid addresses.
func NormalizeEmailList(value string) []string {
	var out []string
	for _, part := range splitRe.Split(value, -1) {
		part = strings.TrimSpace(part)
		if part != "" && IsValidEmail(part) {
			out = append(out, part)
		}
	}
	return out
}
