package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

// useRecorder installs an in-memory provider for the duration of the test.
func useRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	return exporter
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

/* ───────── middleware ───────── */

func TestMiddleware_RecordsServerSpan(t *testing.T) {
	exporter := useRecorder(t)

	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/articles/42", nil))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "GET /articles/42" {
		t.Errorf("span name = %q", span.Name)
	}
	if v, ok := attrValue(span.Attributes, "http.status_code"); !ok || v.AsInt64() != 404 {
		t.Errorf("http.status_code = %v", v)
	}
	if v, ok := attrValue(span.Attributes, "http.path"); !ok || v.AsString() != "/articles/42" {
		t.Errorf("http.path = %v", v)
	}
	if span.Status.Code == codes.Error {
		t.Error("4xx must not mark the span as failed")
	}
	if got := rr.Header().Get(TraceIDHeader); got != span.SpanContext.TraceID().String() {
		t.Errorf("%s = %q, want %q", TraceIDHeader, got, span.SpanContext.TraceID())
	}
}

func TestMiddleware_ServerErrorMarksSpan(t *testing.T) {
	exporter := useRecorder(t)

	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/stats", nil))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status.Code)
	}
}

func TestMiddleware_ContinuesIncomingTrace(t *testing.T) {
	exporter := useRecorder(t)

	const parent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	var inner string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, span := Start(r.Context(), "child")
		inner = span.SpanContext().TraceID().String()
		span.End()
	}))
	req := httptest.NewRequest(http.MethodGet, "/sources", nil)
	req.Header.Set("traceparent", parent)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	if got := rr.Header().Get(TraceIDHeader); got != traceID {
		t.Errorf("%s = %q, want %q", TraceIDHeader, got, traceID)
	}
	if inner != traceID {
		t.Errorf("child trace = %q, want %q", inner, traceID)
	}
	if n := len(exporter.GetSpans()); n != 2 {
		t.Errorf("expected 2 spans, got %d", n)
	}
}

func TestMiddleware_NoopProviderSetsNoHeader(t *testing.T) {
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(noop.NewTracerProvider())
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	rr := httptest.NewRecorder()
	Middleware(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rr.Header().Get(TraceIDHeader); got != "" {
		t.Errorf("expected no trace header, got %q", got)
	}
}

/* ───────── exporter ───────── */

func TestLogExporter_WritesSpans(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(NewLogExporter(logger)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, parent := tp.Tracer("test").Start(context.Background(), "ingest.pass")
	_, child := tp.Tracer("test").Start(ctx, "ingest.source")
	child.SetAttributes(attribute.String("source", "npr"))
	child.SetStatus(codes.Error, "feed unreachable")
	child.End()
	parent.End()

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), out)
	}
	if !strings.Contains(lines[0], `"span":"ingest.source"`) ||
		!strings.Contains(lines[0], `"source":"npr"`) ||
		!strings.Contains(lines[0], `"level":"WARN"`) ||
		!strings.Contains(lines[0], `"parent_id"`) {
		t.Errorf("child span log = %s", lines[0])
	}
	if !strings.Contains(lines[1], `"span":"ingest.pass"`) || !strings.Contains(lines[1], `"level":"DEBUG"`) {
		t.Errorf("parent span log = %s", lines[1])
	}
}

/* ───────── setup ───────── */

func TestSetup_InstallsProvider(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	shutdown := Setup("news-archiver-test", "dev", false, nil)
	_, span := Start(context.Background(), "check")
	if !span.SpanContext().IsValid() {
		t.Error("expected a valid span context after Setup")
	}
	span.End()

	fields := otel.GetTextMapPropagator().Fields()
	if !strings.Contains(strings.Join(fields, ","), "traceparent") {
		t.Errorf("propagator fields = %v", fields)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
