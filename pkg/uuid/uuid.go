// Package uuid provides time-ordered identifiers for CRM rows and API keys.
// UUID v7 is sortable by timestamp (better for database indexes than v4).
package uuid

import (
	guuid "github.com/google/uuid"
)

// UUID is a 16-byte RFC 9562 identifier.
type UUID = guuid.UUID

// NewV7 generates a new UUID v7.
// Falls back to a random v4 if the clock source fails, so callers never handle an error.
func NewV7() UUID {
	u, err := guuid.NewV7()
	if err != nil {
		return guuid.New()
	}
	return u
}

// NewString is NewV7().String().
func NewString() string {
	return NewV7().String()
}

// IsValid reports whether s is a canonical UUID string.
func IsValid(s string) bool {
	if len(s) != 36 {
		return false
	}
	return guuid.Validate(s) == nil
}
