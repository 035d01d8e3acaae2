package worker

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"news-archiver/internal/handler/http/respond"
)

// storeBreaker is the breaker whose open state makes the worker unhealthy.
// Open proxy, browser or notification breakers only degrade a pass.
const storeBreaker = "article-store"

// PassSummary describes the most recent ingest pass.
type PassSummary struct {
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
	Sources    int           `json:"sources"`
	Inserted   int           `json:"inserted"`
	Failed     int           `json:"failed"`
}

// BreakerStateFunc reports each named circuit breaker as "closed", "open" or "half-open".
type BreakerStateFunc func() map[string]string

// HealthServer answers the worker's health checks:
//
//	GET /health           liveness, always 200
//	GET /health/ready     200 with the last pass once scheduling started, 503 before and during shutdown
//	GET /health/breakers  breaker states, 503 while the store breaker is open
type HealthServer struct {
	addr     string
	logger   *slog.Logger
	ready    atomic.Bool
	lastPass atomic.Pointer[PassSummary]
	breakers BreakerStateFunc
}

type healthResponse struct {
	Status   string       `json:"status"`
	LastPass *PassSummary `json:"last_pass,omitempty"`
}

type breakersResponse struct {
	Healthy  bool              `json:"healthy"`
	Breakers map[string]string `json:"breakers"`
}

// NewHealthServer returns a server for addr that starts out not ready.
func NewHealthServer(addr string, logger *slog.Logger) *HealthServer {
	return &HealthServer{addr: addr, logger: logger}
}

// SetBreakerSource installs the function behind /health/breakers. Call before Start.
func (h *HealthServer) SetBreakerSource(fn BreakerStateFunc) {
	h.breakers = fn
}

func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, healthResponse{Status: "ok"})
	})
	mux.HandleFunc("GET /health/ready", h.readiness)
	mux.HandleFunc("GET /health/breakers", h.breakerStates)
	return mux
}

// Start serves the health endpoints until ctx is cancelled. See Serve.
func (h *HealthServer) Start(ctx context.Context) error {
	return Serve(ctx, &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, "health", h.logger)
}

func (h *HealthServer) SetReady(ready bool) {
	if h.ready.Swap(ready) != ready {
		h.logger.Info("worker readiness changed", slog.Bool("ready", ready))
	}
}

// RecordPass stores the summary reported by /health/ready.
func (h *HealthServer) RecordPass(summary PassSummary) {
	h.lastPass.Store(&summary)
}

// LastPass returns the most recent pass summary, or nil before the first pass completes.
func (h *HealthServer) LastPass() *PassSummary {
	return h.lastPass.Load()
}

func (h *HealthServer) readiness(w http.ResponseWriter, _ *http.Request) {
	if !h.ready.Load() {
		respond.JSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
		return
	}
	respond.JSON(w, http.StatusOK, healthResponse{Status: "ok", LastPass: h.LastPass()})
}

func (h *HealthServer) breakerStates(w http.ResponseWriter, _ *http.Request) {
	states := map[string]string{}
	if h.breakers != nil {
		states = h.breakers()
	}
	body := breakersResponse{Healthy: states[storeBreaker] != "open", Breakers: states}

	code := http.StatusOK
	if !body.Healthy {
		code = http.StatusServiceUnavailable
	}
	respond.JSON(w, code, body)
}
