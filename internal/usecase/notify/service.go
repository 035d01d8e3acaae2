package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"news-archiver/internal/domain/entity"
	"news-archiver/internal/resilience/circuitbreaker"
)

const (
	workerPoolTimeout   = 5 * time.Second  // wait for a free worker slot
	notificationTimeout = 30 * time.Second // one channel send, retries included
)

// Service dispatches article notifications to every channel.
// The zero value is not usable; create one with NewService.
type Service struct {
	channels   []Channel
	breakers   map[string]*circuitbreaker.CircuitBreaker
	workerPool chan struct{}
	logger     *slog.Logger

	wg             sync.WaitGroup
	mu             sync.RWMutex
	closed         bool
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// NewService creates a Service sending to channels with at most maxConcurrent
// sends in flight. Each channel sits behind its own circuit breaker.
func NewService(channels []Channel, maxConcurrent int, logger *slog.Logger) *Service {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		channels:       channels,
		breakers:       make(map[string]*circuitbreaker.CircuitBreaker, len(channels)),
		workerPool:     make(chan struct{}, maxConcurrent),
		logger:         logger,
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
	}
	for _, ch := range channels {
		s.breakers[ch.Name()] = circuitbreaker.New(circuitbreaker.NotifyConfig(ch.Name()))
	}
	channelsEnabled.Set(float64(len(channels)))
	return s
}

// Enabled reports whether any channel is configured.
func (s *Service) Enabled() bool {
	return len(s.channels) > 0
}

// NotifyNewArticle queues article for every channel and returns immediately.
// Delivery failures are logged and counted, never returned.
func (s *Service) NotifyNewArticle(_ context.Context, article *entity.Article) error {
	if article == nil || article.URL == "" || article.Headline == "" {
		return ErrInvalidArticle
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		for _, ch := range s.channels {
			dropped.WithLabelValues(ch.Name(), dropShutdown).Inc()
		}
		return ErrShutdown
	}

	for _, ch := range s.channels {
		dispatched.WithLabelValues(ch.Name()).Inc()
		s.wg.Add(1)
		go s.send(ch, article)
	}
	return nil
}

// send delivers one article to one channel.
func (s *Service) send(ch Channel, article *entity.Article) {
	defer s.wg.Done()
	inFlight.Inc()
	defer inFlight.Dec()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in notification channel",
				slog.String("channel", ch.Name()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	timer := time.NewTimer(workerPoolTimeout)
	defer timer.Stop()
	select {
	case s.workerPool <- struct{}{}:
		defer func() { <-s.workerPool }()
	case <-timer.C:
		dropped.WithLabelValues(ch.Name(), dropPoolFull).Inc()
		s.logger.Warn("notification dropped: worker pool full",
			slog.String("channel", ch.Name()),
			slog.Int64("article_id", article.ID))
		return
	case <-s.shutdownCtx.Done():
		dropped.WithLabelValues(ch.Name(), dropShutdown).Inc()
		return
	}

	ctx, cancel := context.WithTimeout(s.shutdownCtx, notificationTimeout)
	defer cancel()

	start := time.Now()
	_, err := s.breakers[ch.Name()].Execute(func() (interface{}, error) {
		return nil, ch.Send(ctx, article)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		dropped.WithLabelValues(ch.Name(), dropCircuitOpen).Inc()
		s.logger.Debug("notification skipped: circuit open",
			slog.String("channel", ch.Name()),
			slog.Int64("article_id", article.ID))
		return
	}

	observeDelivery(ch.Name(), err, time.Since(start))
	if err != nil {
		s.logger.Warn("notification failed",
			slog.String("channel", ch.Name()),
			slog.Int64("article_id", article.ID),
			slog.String("url", article.URL),
			slog.Any("error", err))
		return
	}
	s.logger.Debug("notification delivered",
		slog.String("channel", ch.Name()),
		slog.Int64("article_id", article.ID))
}

// BreakerStates reports breaker states keyed by breaker name, for health endpoints.
func (s *Service) BreakerStates() map[string]string {
	states := make(map[string]string, len(s.breakers))
	for _, b := range s.breakers {
		states[b.Name()] = b.State().String()
	}
	return states
}

// Shutdown stops accepting notifications and waits for in-flight sends.
// Sends still running when ctx expires are cancelled.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.shutdownCancel()
		return nil
	case <-ctx.Done():
		s.shutdownCancel()
		<-done
		return fmt.Errorf("notification shutdown: %w", ctx.Err())
	}
}
