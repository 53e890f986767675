package logger

import (
	"context"
	"log/slog"
)

// ContextExtractor pulls an attribute out of a log call's context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

type accountKey struct{}

// ContextWithAccountID stores the account being worked on so every log call
// made with ctx carries it.
func ContextWithAccountID(ctx context.Context, id any) context.Context {
	return context.WithValue(ctx, accountKey{}, id)
}

// AccountFromContext is the extractor for ContextWithAccountID.
func AccountFromContext(ctx context.Context) (slog.Attr, bool) {
	if ctx == nil {
		return slog.Attr{}, false
	}
	id := ctx.Value(accountKey{})
	if id == nil {
		return slog.Attr{}, false
	}
	return AccountID(id), true
}

// contextHandler adds extractor attributes at Handle time so values stored
// in the context after the logger was built are still picked up.
type contextHandler struct {
	next       slog.Handler
	extractors []ContextExtractor
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	for _, ex := range h.extractors {
		if attr, ok := ex(ctx); ok {
			rec.AddAttrs(attr)
		}
	}
	return h.next.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), extractors: h.extractors}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), extractors: h.extractors}
}
