// Package session carries the presentation session identifier through a
// request context so per-session cache scoping can partition entries.
package session

import (
	"context"
	"strings"
)

// HeaderName is the HTTP header that carries a session id.
const HeaderName = "X-Session-ID"

// maxIDLength bounds ids accepted from clients.
const maxIDLength = 128

// contextKey is the type for session context keys
type contextKey string

const sessionContextKey contextKey = "session"

// WithID returns a context carrying the session id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionContextKey, id)
}

// FromContext returns the session id, or "" when none is set.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionContextKey).(string); ok {
		return id
	}
	return ""
}

// Normalize trims a client supplied id and rejects oversized values.
func Normalize(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxIDLength {
		return "", false
	}
	return id, true
}
