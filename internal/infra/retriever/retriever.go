// Package retriever obtains full article bodies by walking an ordered chain
// of retrieval strategies until one yields a substantial sanitized document.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	neturl "net/url"

	"news-archiver/internal/infra/httpclient"
	"news-archiver/internal/infra/sanitizer"
	"news-archiver/internal/observability/metrics"
	"news-archiver/internal/resilience/circuitbreaker"
)

// MinBodyLength is the plain-text length a sanitized body must exceed for
// the chain to stop.
const MinBodyLength = 500

// Retriever runs the strategy chain.
type Retriever struct {
	light     []Strategy
	heavy     Strategy
	sanitizer *sanitizer.Sanitizer
	logger    *slog.Logger
}

// New creates a Retriever. heavy may be nil when no browser is available.
func New(light []Strategy, heavy Strategy, s *sanitizer.Sanitizer) *Retriever {
	return &Retriever{
		light:     light,
		heavy:     heavy,
		sanitizer: s,
		logger:    slog.Default(),
	}
}

// NewDefault creates a Retriever with DefaultStrategies over client.
func NewDefault(client httpclient.Fetcher, heavy Strategy) *Retriever {
	return New(DefaultStrategies(client), heavy, sanitizer.New())
}

// HasBrowser reports whether the heavyweight strategy is part of the chain.
func (r *Retriever) HasBrowser() bool {
	return r.heavy != nil
}

// Chain returns the strategies in the order Retrieve tries them. With
// preferHeavy the browser goes first, otherwise it is the last resort.
func (r *Retriever) Chain(preferHeavy bool) []Strategy {
	chain := make([]Strategy, 0, len(r.light)+1)
	if r.heavy != nil && preferHeavy {
		chain = append(chain, r.heavy)
	}
	chain = append(chain, r.light...)
	if r.heavy != nil && !preferHeavy {
		chain = append(chain, r.heavy)
	}
	return chain
}

// Retrieve returns the sanitized body of url from the first strategy whose
// output exceeds MinBodyLength characters of text. It reports false when
// every strategy failed; strategy errors and panics never escape.
func (r *Retriever) Retrieve(ctx context.Context, url string, preferHeavy bool) (string, bool) {
	pageURL, _ := neturl.Parse(url)
	for _, s := range r.Chain(preferHeavy) {
		raw, err := attempt(ctx, s, url)
		if err != nil {
			metrics.RecordRetrievalAttempt(s.Name(), metrics.RetrievalError)
			r.logger.Debug("retrieval strategy failed",
				slog.String("strategy", s.Name()),
				slog.String("url", url),
				slog.Bool("permanent", httpclient.IsPermanent(err)),
				slog.Any("error", err))
			continue
		}

		doc, ok := r.sanitizer.Extract(raw, pageURL)
		if !ok || doc.TextLength <= MinBodyLength {
			metrics.RecordRetrievalAttempt(s.Name(), metrics.RetrievalRejected)
			r.logger.Debug("retrieval strategy yielded no usable body",
				slog.String("strategy", s.Name()),
				slog.String("url", url))
			continue
		}

		metrics.RecordRetrievalAttempt(s.Name(), metrics.RetrievalSuccess)
		r.logger.Debug("retrieval succeeded",
			slog.String("strategy", s.Name()),
			slog.String("url", url),
			slog.Int("text_length", doc.TextLength))
		return doc.HTML, true
	}

	r.logger.Debug("all retrieval strategies failed", slog.String("url", url))
	return "", false
}

// attempt runs one strategy and converts a panic into an error.
func attempt(ctx context.Context, s Strategy, url string) (raw string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("strategy %s panicked: %v", s.Name(), rec)
		}
	}()
	return s.Attempt(ctx, url)
}

type breakerHolder interface {
	Breaker() *circuitbreaker.CircuitBreaker
}

// BreakerStates reports the state of every circuit breaker in the chain,
// keyed by breaker name.
func (r *Retriever) BreakerStates() map[string]string {
	states := map[string]string{}
	for _, s := range r.Chain(false) {
		bh, ok := s.(breakerHolder)
		if !ok || bh.Breaker() == nil {
			continue
		}
		states[bh.Breaker().Name()] = bh.Breaker().State().String()
	}
	return states
}
