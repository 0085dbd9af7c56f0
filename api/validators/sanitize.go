package validators

import "strings"

func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len([]rune(trimmed)) > maxLen {
		return string([]rune(trimmed)[:maxLen])
	}
	return trimmed
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// OptionalString trims input and returns nil when nothing is left.
func OptionalString(input string, maxLen int) *string {
	clean := SanitizeString(input, maxLen)
	if clean == "" {
		return nil
	}
	return &clean
}
