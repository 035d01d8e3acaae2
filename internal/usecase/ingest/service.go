package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"news-archiver/internal/domain/entity"
	"news-archiver/internal/infra/enricher"
	"news-archiver/internal/infra/feed"
	"news-archiver/internal/observability/logging"
	"news-archiver/internal/observability/metrics"
	"news-archiver/internal/observability/tracing"
	"news-archiver/internal/repository"
)

// Delays are the politeness pauses taken between outbound requests.
type Delays struct {
	EnrichMin, EnrichMax time.Duration
	BypassMin, BypassMax time.Duration
	BetweenSources       time.Duration
}

// DefaultDelays returns the production politeness delays.
func DefaultDelays() Delays {
	return Delays{
		EnrichMin:      500 * time.Millisecond,
		EnrichMax:      1000 * time.Millisecond,
		BypassMin:      1500 * time.Millisecond,
		BypassMax:      2500 * time.Millisecond,
		BetweenSources: 2 * time.Second,
	}
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// PassStats summarizes one polling pass.
type PassStats struct {
	Sources    int
	Candidates int
	Inserted   int
	Skipped    int
	Failed     int
	PerSource  map[string]int // inserted articles per source slug
	Duration   time.Duration
}

// Service runs polling passes over a set of sources.
type Service struct {
	articles    repository.ArticleRepository
	checkpoints repository.CheckpointRepository
	feeds       FeedParser
	enricher    Enricher
	retriever   Retriever
	resolver    Resolver
	images      ImageCache
	notifier    ArticleNotifier

	delays Delays
	sleep  SleepFunc
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDelays overrides the politeness delays.
func WithDelays(d Delays) Option {
	return func(s *Service) { s.delays = d }
}

// WithSleep replaces the function used to wait out politeness delays.
func WithSleep(fn SleepFunc) Option {
	return func(s *Service) { s.sleep = fn }
}

// WithClock replaces the discovery timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier announces every newly created article through n.
func WithNotifier(n ArticleNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the logger used for pass and source events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates an ingest Service.
//
// Parameters:
//   - articles, checkpoints: the archive store
//   - feeds: feed normalizer used for every feed URL of a source
//   - enr: metadata enricher (nil disables enrichment)
//   - ret: full-text retriever (nil disables retrieval even for bypass sources)
//   - res: redirect resolver (nil keeps candidate URLs as they are)
//   - images: preview image cache (nil disables image caching)
func NewService(
	articles repository.ArticleRepository,
	checkpoints repository.CheckpointRepository,
	feeds FeedParser,
	enr Enricher,
	ret Retriever,
	res Resolver,
	images ImageCache,
	opts ...Option,
) *Service {
	s := &Service{
		articles:    articles,
		checkpoints: checkpoints,
		feeds:       feeds,
		enricher:    enr,
		retriever:   ret,
		resolver:    res,
		images:      images,
		delays:      DefaultDelays(),
		sleep:       sleepContext,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunPass processes sources in order. A failing source is logged and counted
// and the pass moves on. ctx is consulted only between sources, so a
// cancellation lets the current source finish; the partial stats are returned
// together with ctx.Err().
func (s *Service) RunPass(ctx context.Context, sources []entity.Source, enrich bool) (*PassStats, error) {
	start := time.Now()
	stats := &PassStats{PerSource: make(map[string]int, len(sources))}

	ctx, span := tracing.Start(ctx, "ingest.pass", attribute.Int("sources", len(sources)))
	finish := func() {
		stats.Duration = time.Since(start)
		metrics.RecordPassDuration(stats.Duration)
		span.SetAttributes(
			attribute.Int("inserted", stats.Inserted),
			attribute.Int("failed", stats.Failed),
		)
		span.End()
		s.logger.Info("pass completed",
			slog.Int("sources", stats.Sources),
			slog.Int("candidates", stats.Candidates),
			slog.Int("inserted", stats.Inserted),
			slog.Int("skipped", stats.Skipped),
			slog.Int("failed", stats.Failed),
			slog.Duration("duration", stats.Duration))
	}

	for i := range sources {
		if err := ctx.Err(); err != nil {
			finish()
			return stats, err
		}

		src := &sources[i]
		if !src.HasDiscovery() {
			s.logger.Debug("source has no feeds or hints, skipping", slog.String("source", src.Slug))
			continue
		}

		result, err := s.processSource(ctx, src, enrich)
		stats.Sources++
		stats.Candidates += result.candidates
		stats.Skipped += result.skipped
		if err != nil {
			stats.Failed++
			metrics.RecordSourceFailure(src.Slug)
			s.logger.Error("source failed",
				slog.String("source", src.Slug),
				slog.Any("error", err))
		} else {
			stats.Inserted += result.inserted
			stats.PerSource[src.Slug] = result.inserted
		}

		if i < len(sources)-1 && s.delays.BetweenSources > 0 {
			if err := s.sleep(ctx, s.delays.BetweenSources); err != nil {
				finish()
				return stats, err
			}
		}
	}

	finish()
	return stats, nil
}

// ProcessSource polls a single source and returns the number of newly
// archived articles. Panics are recovered and reported as errors.
func (s *Service) ProcessSource(ctx context.Context, src entity.Source, enrich bool) (int, error) {
	result, err := s.processSource(ctx, &src, enrich)
	return result.inserted, err
}

type sourceResult struct {
	candidates int
	inserted   int
	skipped    int
}

func (s *Service) processSource(ctx context.Context, src *entity.Source, enrich bool) (result sourceResult, err error) {
	// Work inside a source is not interrupted by cancellation.
	ctx = context.WithoutCancel(ctx)
	sourceStart := time.Now()
	logger := logging.WithSource(s.logger, src.Slug)

	ctx, span := tracing.Start(ctx, "ingest.source", attribute.String("source", src.Slug))
	defer func() {
		span.SetAttributes(
			attribute.Int("candidates", result.candidates),
			attribute.Int("inserted", result.inserted),
		)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing source %s: %v", src.Slug, r)
			logger.Debug("source panic stack", slog.String("stack", string(debug.Stack())))
		}
	}()

	var all []entity.Candidate
	for _, feedURL := range src.FeedURLs {
		all = append(all, s.feeds.Parse(ctx, feedURL)...)
	}
	candidates := DedupCandidates(all)
	result.candidates = len(candidates)

	for i := range candidates {
		created, err := s.processCandidate(ctx, src, &candidates[i], enrich)
		if err != nil {
			result.skipped++
			metrics.RecordSkipped(src.Slug, "error")
			logger.Debug("candidate failed",
				slog.String("url", candidates[i].URL),
				slog.Any("error", err))
			continue
		}
		if created {
			result.inserted++
		} else {
			result.skipped++
		}
	}

	cp := entity.SourceCheckpoint{
		SourceSlug:    src.Slug,
		LastCheckedAt: s.now().UTC(),
		ArticlesFound: result.inserted,
	}
	if err := s.checkpoints.Upsert(ctx, cp); err != nil {
		return result, fmt.Errorf("upsert checkpoint: %w", err)
	}

	metrics.RecordSourcePass(src.Slug, result.candidates, result.inserted)
	logger.Info("source processed",
		slog.Int("candidates", result.candidates),
		slog.Int("inserted", result.inserted),
		slog.Duration("duration", time.Since(sourceStart)))
	return result, nil
}

// processCandidate archives one candidate and reports whether a row was created.
// A panic is recovered and returned as an error so the rest of the source,
// and its checkpoint, still go ahead.
func (s *Service) processCandidate(ctx context.Context, src *entity.Source, c *entity.Candidate, enrich bool) (created bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			created = false
			err = fmt.Errorf("panic while processing %s: %v", c.URL, r)
			s.logger.Debug("candidate panic stack",
				slog.String("source", src.Slug),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	if s.resolver != nil {
		c.URL = s.resolver.Resolve(ctx, c.URL)
	}

	exists, err := s.articles.ExistsByURL(ctx, c.URL)
	if err != nil {
		return false, fmt.Errorf("ExistsByURL: %w", err)
	}
	if exists {
		metrics.RecordSkipped(src.Slug, "exists")
		return false, nil
	}

	if enrich && s.enricher != nil && (c.PreviewImageURL == "" || c.Description == "") {
		applyMetadata(c, s.enricher.Enrich(ctx, c.URL))
		s.pause(ctx, s.delays.EnrichMin, s.delays.EnrichMax)
	}

	var body string
	if src.BypassEnabled && s.retriever != nil {
		if text, ok := s.retriever.Retrieve(ctx, c.URL, src.PreferHeavyRetrieval); ok {
			body = text
		}
		s.pause(ctx, s.delays.BypassMin, s.delays.BypassMax)
	}

	var local string
	if s.images != nil && c.PreviewImageURL != "" {
		local = s.images.Store(ctx, src.Slug, c.PreviewImageURL)
	}

	article := c.ToArticle(src, body, local, s.now().UTC())
	created, err = s.articles.InsertIfAbsent(ctx, article)
	if err != nil {
		return false, fmt.Errorf("InsertIfAbsent: %w", err)
	}
	if !created {
		// another writer archived the URL after the existence check
		metrics.RecordSkipped(src.Slug, "conflict")
		return false, nil
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyNewArticle(ctx, article); err != nil {
			s.logger.Warn("notification not queued",
				slog.String("url", article.URL),
				slog.Any("error", err))
		}
	}
	return true, nil
}

// applyMetadata fills empty candidate fields from page metadata.
func applyMetadata(c *entity.Candidate, md enricher.Metadata) {
	if c.PreviewImageURL == "" {
		c.PreviewImageURL = md.Image
	}
	if c.Description == "" && md.Description != "" {
		c.Description = feed.Truncate(md.Description, feed.MaxDescriptionLength)
	}
	if c.Headline == "" {
		c.Headline = md.Title
	}
	if c.Byline == "" {
		c.Byline = md.Author
	}
	if c.PublishedAt == nil && md.PublishedAt != nil {
		t := md.PublishedAt.UTC()
		c.PublishedAt = &t
	}
}

func (s *Service) pause(ctx context.Context, lo, hi time.Duration) {
	d := lo
	if hi > lo {
		d += rand.N(hi - lo + 1)
	}
	if d > 0 {
		_ = s.sleep(ctx, d)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
