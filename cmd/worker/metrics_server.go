package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	workerPkg "news-archiver/internal/infra/worker"
	"news-archiver/pkg/config"
)

// newMetricsMux serves the default Prometheus registry at /metrics.
func newMetricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	return mux
}

// startMetricsServer serves newMetricsMux on METRICS_PORT (default 9090)
// until ctx is cancelled.
func startMetricsServer(ctx context.Context, logger *slog.Logger) error {
	return workerPkg.Serve(ctx, &http.Server{
		Addr:         fmt.Sprintf(":%d", config.GetEnvPort("METRICS_PORT", 9090)),
		Handler:      newMetricsMux(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}, "metrics", logger)
}
