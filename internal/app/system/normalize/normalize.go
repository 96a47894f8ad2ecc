// Package normalize provides canonicalization helpers applied at every
// write boundary so lookups never depend on caller formatting.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name, preserving case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Code canonicalizes an institute code: trimmed and upper-cased.
// Codes are the only institute key this service writes or compares.
func Code(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Role lowercases and trims a role string.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
