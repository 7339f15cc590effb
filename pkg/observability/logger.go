package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/fixedkit/pkg/fault"
)

const (
	attrTraceID   = "trace_id"
	attrSpanID    = "span_id"
	attrService   = "service"
	attrEnv       = "env"
	attrMode      = "mode"
	attrFaultKind = "fault_kind"
	attrFaultSite = "fault_site"
)

type containerKey struct{}

// WithContainer returns a context whose log records carry the container name.
func WithContainer(ctx context.Context, container string) context.Context {
	return context.WithValue(ctx, containerKey{}, container)
}

// ContainerFromContext returns the container name set by [WithContainer].
func ContainerFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(containerKey{}).(string)

	return name, ok && name != ""
}

// TracingHandler is an [slog.Handler] that injects OpenTelemetry trace context
// (trace_id, span_id) and service metadata into every log record. Records
// logged under [WithContainer] also get a container attribute, and an error
// attribute carrying a container failure is expanded into its fault kind and
// raising site.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps an [slog.Handler]. Service attributes are attached
// to the inner handler up front so they stay at the top level under groups.
func NewTracingHandler(inner slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	attrs := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(appMode)),
	}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &TracingHandler{
		inner: inner.WithAttrs(attrs),
	}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds trace context attributes from the span context, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if name, ok := ContainerFromContext(ctx); ok {
		record.AddAttrs(slog.String(attrContainer, name))
	}

	record.AddAttrs(faultAttrs(record)...)

	err := th.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs returns a new TracingHandler with additional attributes.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup returns a new TracingHandler with a group prefix.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}

// faultAttrs describes the first error attribute of record that wraps a
// fault kind.
func faultAttrs(record slog.Record) []slog.Attr {
	var out []slog.Attr

	record.Attrs(func(a slog.Attr) bool {
		err, ok := a.Value.Any().(error)
		if !ok {
			return true
		}

		kind := fault.Of(err)
		if kind == nil {
			return true
		}

		out = append(out, slog.String(attrFaultKind, kind.Error()))

		var failure *fault.Failure
		if errors.As(err, &failure) {
			out = append(out, slog.String(attrFaultSite, failure.Site.String()))
		}

		return false
	})

	return out
}
