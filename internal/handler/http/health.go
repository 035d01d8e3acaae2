// Package http holds the cross-cutting pieces of the read-only archive API:
// health checks, request logging, panic recovery, timeouts and request metrics.
// Resource handlers live in subpackages.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"news-archiver/internal/handler/http/respond"
	"news-archiver/internal/repository"
)

// Check states, from best to worst.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

var severity = map[string]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}

const (
	healthTimeout = 5 * time.Second
	readyTimeout  = 2 * time.Second

	// poolDegradedAt is the share of MaxOpenConns in use that degrades the database check.
	poolDegradedAt = 0.8
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"` // RFC 3339, UTC
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus is the outcome of one named check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Check inspects one dependency.
type Check func(ctx context.Context) CheckStatus

// DBPinger is the part of *sql.DB the health checks need.
type DBPinger interface {
	PingContext(ctx context.Context) error
	Stats() sql.DBStats
}

// HealthHandler runs every check concurrently and reports the worst result.
// Degraded checks keep a 200; a single unhealthy check turns it into a 503.
type HealthHandler struct {
	Version string
	Checks  map[string]Check
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]CheckStatus, len(h.Checks))
		overall = StatusHealthy
	)
	var g errgroup.Group
	for name, check := range h.Checks {
		g.Go(func() error {
			res := check(ctx)
			mu.Lock()
			defer mu.Unlock()
			results[name] = res
			if severity[res.Status] > severity[overall] {
				overall = res.Status
			}
			return nil
		})
	}
	_ = g.Wait()

	code := http.StatusOK
	if overall == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.JSON(w, code, HealthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    results,
		Version:   h.Version,
	})
}

// DatabaseCheck pings db and reports pool statistics. An unbounded pool or
// one at 80% utilization or more is degraded.
func DatabaseCheck(db DBPinger) Check {
	return func(ctx context.Context) CheckStatus {
		if db == nil {
			return CheckStatus{Status: StatusUnhealthy, Message: "not configured"}
		}
		if err := db.PingContext(ctx); err != nil {
			slog.Default().Warn("health: database ping failed", slog.String("error", respond.SanitizeError(err)))
			return CheckStatus{Status: StatusUnhealthy, Message: "database unreachable"}
		}

		stats := db.Stats()
		details := map[string]any{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		}
		if stats.MaxOpenConnections == 0 {
			return CheckStatus{Status: StatusDegraded, Message: "connection pool is unbounded", Details: details}
		}

		utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections)
		details["utilization_percent"] = utilization * 100
		if utilization >= poolDegradedAt {
			return CheckStatus{Status: StatusDegraded, Message: "connection pool utilization above 80%", Details: details}
		}
		return CheckStatus{Status: StatusHealthy, Details: details}
	}
}

// BreakerCheck maps the store circuit breaker onto a check: half-open is
// degraded and open is unhealthy.
func BreakerCheck(state func() string) Check {
	return func(context.Context) CheckStatus {
		s := state()
		check := CheckStatus{Status: StatusHealthy, Details: map[string]any{"state": s}}
		switch s {
		case "open":
			check.Status, check.Message = StatusUnhealthy, "store circuit breaker open"
		case "half-open":
			check.Status = StatusDegraded
		}
		return check
	}
}

// FreshnessCheck degrades when the newest archived article is older than
// staleAfter, which usually means the worker stopped polling. An empty
// archive is degraded too. Lookup errors are left to the database check.
func FreshnessCheck(stats func(context.Context) (*repository.Stats, error), staleAfter time.Duration) Check {
	return func(ctx context.Context) CheckStatus {
		s, err := stats(ctx)
		if err != nil {
			return CheckStatus{Status: StatusDegraded, Message: "archive statistics unavailable"}
		}
		if s.NewestArticle == nil {
			return CheckStatus{Status: StatusDegraded, Message: "archive is empty"}
		}
		age := time.Since(*s.NewestArticle)
		details := map[string]any{
			"total_articles": s.TotalArticles,
			"newest_article": s.NewestArticle.UTC().Format(time.RFC3339),
		}
		if age > staleAfter {
			return CheckStatus{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("no new articles for %s", age.Truncate(time.Minute)),
				Details: details,
			}
		}
		return CheckStatus{Status: StatusHealthy, Details: details}
	}
}

// ReadyHandler answers readiness checks: 200 once the database answers a ping.
type ReadyHandler struct {
	DB DBPinger
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	reason := ""
	switch {
	case h.DB == nil:
		reason = "database not configured"
	case h.DB.PingContext(ctx) != nil:
		reason = "database unreachable"
	}
	if reason != "" {
		respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": reason})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// LiveHandler answers liveness checks and always returns 200.
type LiveHandler struct{}

func (LiveHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
