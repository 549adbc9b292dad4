package logx

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// MaskValue replaces sensitive attribute values in log output.
const MaskValue = "***REDACTED***"

// sensitiveKeys lists attribute keys whose values must never reach the log
// output. The portal credentials (ban, user_id, password) are the main
// concern; API keys for the transcription providers are covered too.
var sensitiveKeys = map[string]bool{
	"password":   true,
	"passwd":     true,
	"ban":        true,
	"user_id":    true,
	"userid":     true,
	"api_key":    true,
	"apikey":     true,
	"token":      true,
	"secret":     true,
	"credential": true,
	"cookie":     true,
}

// RedactingHandler wraps an slog.Handler and masks credential-bearing
// attributes before they reach the underlying handler. Wrapping a handler
// instead of building a custom logger keeps it compatible with any output
// format slog supports.
type RedactingHandler struct {
	handler slog.Handler
}

// NewRedactingHandler wraps handler with credential redaction. A nil handler
// falls back to slog.Default().Handler().
func NewRedactingHandler(handler slog.Handler) *RedactingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactingHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks sensitive attributes and passes the record on.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.maskAttr(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

// WithAttrs masks the attributes before adding them.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		maskedAttrs[i] = h.maskAttr(a)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(maskedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name)}
}

func (h *RedactingHandler) maskAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		maskedAttrs := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			maskedAttrs[i] = h.maskAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(maskedAttrs...)}
	}

	key := strings.ToLower(a.Key)
	if sensitiveKeys[key] || strings.Contains(key, "password") || strings.Contains(key, "secret") {
		return slog.String(a.Key, MaskValue)
	}
	return a
}

// NewLogger builds a *slog.Logger writing to w with credential redaction.
// verbose selects Debug level, otherwise Info; jsonOut selects the JSON
// handler instead of text.
func NewLogger(w io.Writer, verbose, jsonOut bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if jsonOut {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewRedactingHandler(inner))
}
