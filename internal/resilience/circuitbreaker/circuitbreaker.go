// Package circuitbreaker wraps github.com/sony/gobreaker with the trip rules
// used for the store, the retrieval strategies and the notification channels.
package circuitbreaker

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var stateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "circuit_breaker_state",
	Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
}, []string{"name"})

// Config describes when a breaker trips and how it recovers.
type Config struct {
	// Name labels logs, metrics and health output.
	Name string

	// MaxRequests may pass while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counts. Zero never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// MinRequests is the sample size the trip rule needs.
	MinRequests uint32

	// FailureRatio trips once this share of at least MinRequests calls failed.
	// Zero trips on MinRequests consecutive failures instead.
	FailureRatio float64
}

// StoreConfig guards the archive database: five failures in a row open it for 30s.
func StoreConfig() Config {
	return Config{Name: "article-store", MaxRequests: 3, Interval: time.Minute, Timeout: 30 * time.Second, MinRequests: 5}
}

// ProxyConfig guards one reader proxy host so a dead proxy is skipped for the
// rest of the pass instead of costing a request per article.
func ProxyConfig(host string) Config {
	return Config{Name: "proxy-" + host, MaxRequests: 1, Interval: 10 * time.Minute, Timeout: 15 * time.Minute, MinRequests: 5, FailureRatio: 0.8}
}

// BrowserConfig guards the headless browser. Launches are expensive, so three
// consecutive failures are enough.
func BrowserConfig() Config {
	return Config{Name: "headless-browser", MaxRequests: 1, Interval: 10 * time.Minute, Timeout: 30 * time.Minute, MinRequests: 3}
}

// NotifyConfig guards one notification channel. Five failed deliveries in a
// row leave the webhook alone for five minutes.
func NotifyConfig(channel string) Config {
	return Config{Name: "notify-" + channel, MaxRequests: 1, Interval: 10 * time.Minute, Timeout: 5 * time.Minute, MinRequests: 5}
}

func (c Config) readyToTrip(counts gobreaker.Counts) bool {
	if c.FailureRatio <= 0 {
		return counts.ConsecutiveFailures >= c.MinRequests
	}
	if counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

// CircuitBreaker is a named gobreaker.CircuitBreaker that logs and exports
// its state transitions.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New builds a breaker from cfg.
func New(cfg Config) *CircuitBreaker {
	stateGauge.WithLabelValues(cfg.Name).Set(0)
	return &CircuitBreaker{
		name: cfg.Name,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: cfg.readyToTrip,
			OnStateChange: func(name string, from, to gobreaker.State) {
				stateGauge.WithLabelValues(name).Set(float64(to))
				slog.Warn("circuit breaker state changed",
					slog.String("circuit", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		}),
	}
}

// Execute runs fn unless the breaker is open, in which case it returns
// gobreaker.ErrOpenState (or ErrTooManyRequests while half-open).
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return cb.breaker.Execute(fn)
}

func (cb *CircuitBreaker) State() gobreaker.State { return cb.breaker.State() }

func (cb *CircuitBreaker) Name() string { return cb.name }

// IsOpen reports whether calls are currently being rejected.
func (cb *CircuitBreaker) IsOpen() bool { return cb.breaker.State() == gobreaker.StateOpen }
