package domain

import (
	"regexp"
	"strings"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NormalizeEmail trims and lowercases raw, failing with ErrInvalidEmail when
// the trimmed value is not of the form local@domain.tld. No part may contain
// whitespace of any kind, including the Unicode spaces RE2's \s leaves out.
func NormalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.IndexFunc(trimmed, unicode.IsSpace) >= 0 || !emailPattern.MatchString(trimmed) {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(trimmed), nil
}

func canonical(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
