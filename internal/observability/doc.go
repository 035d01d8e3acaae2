// Package observability holds what the worker and the API share for watching
// themselves: slog setup in logging, Prometheus collectors in metrics and
// OpenTelemetry spans in tracing.
package observability
