// Package tracing wires OpenTelemetry spans into the API and the ingest pass.
//
// Spans carry the W3C trace context across requests; the trace ID is echoed
// in the X-Trace-Id response header. When span logging is enabled, finished
// spans are written to the structured log at debug level.
package tracing

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "news-archiver"

// Tracer returns the tracer used for every span in the application.
// It follows the globally installed provider, so Setup may run after package init.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Start opens a span named name with the given attributes.
//
// Example usage:
//
//	ctx, span := tracing.Start(ctx, "ingest.source", attribute.String("source", slug))
//	defer span.End()
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// Setup installs a tracer provider and the W3C propagators for service.
// With logSpans set, finished spans are logged through logger.
// The returned function flushes and stops the provider.
func Setup(service, version string, logSpans bool, logger *slog.Logger) func(context.Context) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", service),
			attribute.String("service.version", version),
		)),
	}
	if logSpans {
		opts = append(opts, sdktrace.WithBatcher(NewLogExporter(logger)))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown
}
