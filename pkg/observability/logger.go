package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Log keys owned by RunHandler.
const (
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"
	KeyService = "service"
	KeyEnv     = "env"
	KeyMode    = "mode"
	KeyDevice  = "device"
	KeyVendor  = "vendor"
)

type runKey struct{}

// runScope is the generation context a record was emitted under.
type runScope struct {
	device string
	vendor string
}

// WithRun returns ctx tagged with the device and vendor being generated.
// Records logged through a RunHandler with that context carry both keys,
// even from code that only sees the context.
func WithRun(ctx context.Context, device, vendor string) context.Context {
	return context.WithValue(ctx, runKey{}, runScope{device: device, vendor: vendor})
}

func runFromContext(ctx context.Context) (runScope, bool) {
	if ctx == nil {
		return runScope{}, false
	}

	scope, ok := ctx.Value(runKey{}).(runScope)

	return scope, ok
}

// RunHandler decorates records with the active span and the generation run
// found on the context. Service attributes are bound to the inner handler
// once, so a later WithGroup leaves them at the top level.
type RunHandler struct {
	next slog.Handler
}

// NewRunHandler wraps next with service metadata for the given mode.
func NewRunHandler(next slog.Handler, service, env string, mode AppMode) *RunHandler {
	static := make([]slog.Attr, 0, 3)
	static = append(static, slog.String(KeyService, service), slog.String(KeyMode, string(mode)))

	if env != "" {
		static = append(static, slog.String(KeyEnv, env))
	}

	return &RunHandler{next: next.WithAttrs(static)}
}

// Enabled reports whether next accepts level.
func (h *RunHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements [slog.Handler].
func (h *RunHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(KeyTraceID, sc.TraceID().String()),
			slog.String(KeySpanID, sc.SpanID().String()),
		)
	}

	if scope, ok := runFromContext(ctx); ok {
		if scope.device != "" {
			record.AddAttrs(slog.String(KeyDevice, scope.device))
		}

		if scope.vendor != "" {
			record.AddAttrs(slog.String(KeyVendor, scope.vendor))
		}
	}

	if err := h.next.Handle(ctx, record); err != nil {
		return fmt.Errorf("run handler: %w", err)
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (h *RunHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RunHandler{next: h.next.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (h *RunHandler) WithGroup(name string) slog.Handler {
	return &RunHandler{next: h.next.WithGroup(name)}
}
