package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_decisions_total",
		Help: "Rate limit checks by limiter and result (allowed, denied)",
	}, []string{"limiter", "result"})

	activeKeys = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ratelimit_active_keys",
		Help: "Keys tracked by the rate limit store after the last cleanup",
	})

	evictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_evictions_total",
		Help: "Keys removed from the rate limit store by reason (expired, capacity)",
	}, []string{"reason"})
)
