package identity

import "strings"

// NormalizeUsername performs case-insensitive canonicalization.
// Usernames are stored in this form.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail performs case-insensitive canonicalization for lookups.
// The as-typed spelling is kept for display.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeIdentifier canonicalizes a login identifier that may be either
// a username or an email. Both normalize the same way, and usernames can
// never contain '@', so one lookup key serves both columns.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
