package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons reported on notify_dropped_total.
const (
	dropPoolFull    = "pool_full"
	dropCircuitOpen = "circuit_open"
	dropShutdown    = "shutdown"
)

var (
	dispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_dispatched_total",
		Help: "Articles handed to a notification channel",
	}, []string{"channel"})

	delivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_delivered_total",
		Help: "Notification deliveries by outcome (success or failure)",
	}, []string{"channel", "status"})

	deliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notify_delivery_duration_seconds",
		Help:    "Time spent delivering one notification, retries included",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
	}, []string{"channel"})

	dropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_dropped_total",
		Help: "Notifications abandoned before delivery",
	}, []string{"channel", "reason"})

	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notify_in_flight",
		Help: "Deliveries currently running",
	})

	channelsEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notify_channels_enabled",
		Help: "Configured notification channels",
	})
)

func observeDelivery(channel string, err error, took time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	delivered.WithLabelValues(channel, status).Inc()
	deliveryDuration.WithLabelValues(channel).Observe(took.Seconds())
}
