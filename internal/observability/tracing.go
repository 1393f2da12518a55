package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies this module's spans to the configured collector.
const TracerName = "agentcore"

// NewTracerProvider builds an OpenTelemetry SDK trace provider that exports
// spans to the OTLP/gRPC endpoint, or a no-op provider if endpoint is empty
// (the common case for local/offline runs).
func NewTracerProvider(ctx context.Context, endpoint string) (*sdktrace.TracerProvider, error) {
	if endpoint == "" {
		return sdktrace.NewTracerProvider(), nil
	}
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter)), nil
}

// Tracer returns the process-wide tracer for turn/provider/tool spans.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartTurnSpan opens a span covering one full turn.
func StartTurnSpan(ctx context.Context, sessionID, provider, model string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "turn", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("provider", provider),
		attribute.String("model", model),
	))
}

// StartToolSpan opens a span covering one tool dispatch.
func StartToolSpan(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "tool.dispatch", trace.WithAttributes(
		attribute.String("tool.name", toolName),
	))
}
