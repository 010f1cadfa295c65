package logging

import (
	"context"
	"log/slog"

	context_ "github.com/mkrupp/homecase-blog/internal/infra/context"
)

// ScopeHandler wraps another slog.Handler and tags every record logged with a
// scope-bearing context with the ID of that transaction scope.
type ScopeHandler struct {
	next slog.Handler
}

var _ slog.Handler = (*ScopeHandler)(nil)

// NewScopeHandler wraps next.
func NewScopeHandler(next slog.Handler) *ScopeHandler {
	return &ScopeHandler{next: next}
}

// Handle implements slog.Handler.
func (h *ScopeHandler) Handle(ctx context.Context, r slog.Record) error {
	if scopeID, ok := context_.ScopeIDFromContext(ctx); ok {
		r.AddAttrs(slog.Group("scope", slog.String("id", scopeID)))
	}

	//nolint:wrapcheck
	return h.next.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ScopeHandler) WithAttrs(attrs []slog.Attr) Handler {
	return NewScopeHandler(h.next.WithAttrs(attrs))
}

// WithGroup implements slog.Handler.
func (h *ScopeHandler) WithGroup(name string) Handler {
	return NewScopeHandler(h.next.WithGroup(name))
}

// Enabled implements slog.Handler.
func (h *ScopeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}
