// Package ctxkeys holds the typed context keys shared by middleware and handlers.
// It is a leaf package so api, api/middleware and api/handlers can all import it.
package ctxkeys

import "context"

// Key is the named type for all API context keys.
// context.Value compares type and value, so a Key never collides with a plain string key.
type Key string

const (
	// Credential is the raw API key taken from the configured header or a Bearer token.
	Credential Key = "credential"
)

// WithValue adds a ctxkeys.Key value to the context.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// String returns the value stored under key and whether it is present and non-empty.
func String(ctx context.Context, key Key) (string, bool) {
	v, ok := ctx.Value(key).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
