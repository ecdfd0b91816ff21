// tracing.go adapts OpenTelemetry tracing behind a small interface so the
// session service can record establishment spans without binding every
// caller to the otel API.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanEnder finishes a span. Pass nil for success or the error that failed
// the operation.
type SpanEnder func(err error)

// Tracer starts spans around session-establishment operations.
type Tracer interface {
	// StartSpan starts a span with the given name and string attributes.
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanEnder)
}

// NoopTracer records nothing. It is the default when tracing is not
// configured.
type NoopTracer struct{}

// StartSpan returns the context unchanged and a no-op ender.
func (NoopTracer) StartSpan(ctx context.Context, _ string, _ map[string]string) (context.Context, SpanEnder) {
	return ctx, func(error) {}
}

// OTelTracer records spans through the global OpenTelemetry provider.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer creates a tracer under the given service name.
func NewOTelTracer(serviceName string) *OTelTracer {
	if serviceName == "" {
		serviceName = "cryptexq"
	}
	return &OTelTracer{tracer: otel.Tracer(serviceName)}
}

// StartSpan starts an OpenTelemetry span with the given attributes.
func (t *OTelTracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanEnder) {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, attribute.String(k, v))
	}

	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(kvs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}
