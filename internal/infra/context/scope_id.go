package context

import (
	"context"
)

type contextKey string

const contextKeyScopeID = contextKey("scopeID")

// ScopeIDFromContext extracts the transaction scope ID from the context.
// Returns the ID and true if present, or empty string and false if not present.
func ScopeIDFromContext(ctx context.Context) (string, bool) {
	scopeID, ok := ctx.Value(contextKeyScopeID).(string)

	return scopeID, ok
}

// WithScopeID creates a new context carrying the ID of the transaction scope
// that statements issued with it belong to.
func WithScopeID(ctx context.Context, scopeID string) context.Context {
	return context.WithValue(ctx, contextKeyScopeID, scopeID)
}
