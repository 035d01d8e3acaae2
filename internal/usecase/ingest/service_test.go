package ingest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"news-archiver/internal/domain/entity"
	"news-archiver/internal/infra/enricher"
	"news-archiver/internal/repository"
	"news-archiver/internal/usecase/ingest"
)

/* ───────── fakes ───────── */

// memArticles is an in-memory ArticleRepository keyed by URL.
type memArticles struct {
	mu        sync.Mutex
	byURL     map[string]*entity.Article
	nextID    int64
	insertErr error
	existsErr error
}

func newMemArticles() *memArticles {
	return &memArticles{byURL: map[string]*entity.Article{}}
}

func (m *memArticles) InsertIfAbsent(_ context.Context, a *entity.Article) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return false, m.insertErr
	}
	if _, ok := m.byURL[a.URL]; ok {
		return false, nil
	}
	m.nextID++
	a.ID = m.nextID
	m.byURL[a.URL] = a
	return true, nil
}

func (m *memArticles) ExistsByURL(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.byURL[url]
	return ok, nil
}

func (m *memArticles) GetByURL(_ context.Context, url string) (*entity.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byURL[url], nil
}

func (m *memArticles) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byURL)
}

// unused by the coordinator
func (m *memArticles) Get(context.Context, int64) (*entity.Article, error) { return nil, nil }
func (m *memArticles) List(context.Context, repository.ArticleFilter) ([]*entity.Article, error) {
	return nil, nil
}
func (m *memArticles) Count(context.Context, repository.ArticleFilter) (int64, error) { return 0, nil }
func (m *memArticles) Search(context.Context, string, repository.SearchFilter) ([]*entity.Article, error) {
	return nil, nil
}
func (m *memArticles) CountBySource(context.Context) ([]repository.SourceCount, error) {
	return nil, nil
}
func (m *memArticles) CountByCategory(context.Context) ([]repository.CategoryCount, error) {
	return nil, nil
}
func (m *memArticles) Stats(context.Context) (*repository.Stats, error) { return nil, nil }

type memCheckpoints struct {
	bySlug    map[string]entity.SourceCheckpoint
	upsertErr error
}

func newMemCheckpoints() *memCheckpoints {
	return &memCheckpoints{bySlug: map[string]entity.SourceCheckpoint{}}
}

func (m *memCheckpoints) Upsert(_ context.Context, cp entity.SourceCheckpoint) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.bySlug[cp.SourceSlug] = cp
	return nil
}

func (m *memCheckpoints) Get(_ context.Context, slug string) (*entity.SourceCheckpoint, error) {
	cp, ok := m.bySlug[slug]
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

func (m *memCheckpoints) List(context.Context) ([]*entity.SourceCheckpoint, error) { return nil, nil }

// stubFeeds serves candidates per feed URL; hooks run before a feed is returned.
type stubFeeds struct {
	items map[string][]entity.Candidate
	hooks map[string]func()
	calls []string
}

func (s *stubFeeds) Parse(_ context.Context, feedURL string) []entity.Candidate {
	s.calls = append(s.calls, feedURL)
	if hook := s.hooks[feedURL]; hook != nil {
		hook()
	}
	// copy so the coordinator's in-place edits do not leak between passes
	return append([]entity.Candidate(nil), s.items[feedURL]...)
}

type stubEnricher struct {
	md    enricher.Metadata
	calls []string
}

func (s *stubEnricher) Enrich(_ context.Context, url string) enricher.Metadata {
	s.calls = append(s.calls, url)
	return s.md
}

type retrieveCall struct {
	url         string
	preferHeavy bool
}

type stubRetriever struct {
	body  string
	ok    bool
	calls []retrieveCall
}

func (s *stubRetriever) Retrieve(_ context.Context, url string, preferHeavy bool) (string, bool) {
	s.calls = append(s.calls, retrieveCall{url, preferHeavy})
	return s.body, s.ok
}

type mapResolver map[string]string

func (m mapResolver) Resolve(_ context.Context, url string) string {
	if to, ok := m[url]; ok {
		return to
	}
	return url
}

type stubImages struct{ calls []string }

func (s *stubImages) Store(_ context.Context, slug, imageURL string) string {
	s.calls = append(s.calls, imageURL)
	return slug + "/cached.jpg"
}

// sleepRecorder records politeness delays instead of waiting.
type sleepRecorder struct{ delays []time.Duration }

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

/* ───────── helpers ───────── */

var fixedNow = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	articles    *memArticles
	checkpoints *memCheckpoints
	feeds       *stubFeeds
	enricher    *stubEnricher
	retriever   *stubRetriever
	images      *stubImages
	sleeps      *sleepRecorder
	resolver    mapResolver
}

func newFixture() *fixture {
	return &fixture{
		articles:    newMemArticles(),
		checkpoints: newMemCheckpoints(),
		feeds:       &stubFeeds{items: map[string][]entity.Candidate{}, hooks: map[string]func(){}},
		enricher:    &stubEnricher{},
		retriever:   &stubRetriever{},
		images:      &stubImages{},
		sleeps:      &sleepRecorder{},
		resolver:    mapResolver{},
	}
}

func (f *fixture) service() *ingest.Service {
	return ingest.NewService(
		f.articles, f.checkpoints, f.feeds, f.enricher, f.retriever, f.resolver, f.images,
		ingest.WithSleep(f.sleeps.sleep),
		ingest.WithClock(func() time.Time { return fixedNow }),
		ingest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func source(slug string, feeds ...string) entity.Source {
	return entity.Source{Slug: slug, Name: slug + " news", Category: "world", FeedURLs: feeds}
}

func complete(url string) entity.Candidate {
	return entity.Candidate{
		URL:             url,
		Headline:        "Headline " + url,
		Description:     "Description",
		PreviewImageURL: url + "/img.jpg",
	}
}

/* ───────── 1. pass semantics ───────── */

func TestRunPass_Idempotent(t *testing.T) {
	f := newFixture()
	f.feeds.items["https://a.example/feed"] = []entity.Candidate{complete("https://a.example/1"), complete("https://a.example/2")}
	svc := f.service()
	sources := []entity.Source{source("a", "https://a.example/feed")}

	first, err := svc.RunPass(context.Background(), sources, true)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if first.Inserted != 2 {
		t.Fatalf("first pass inserted = %d, want 2", first.Inserted)
	}

	second, err := svc.RunPass(context.Background(), sources, true)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if second.Inserted != 0 || second.Skipped != 2 {
		t.Errorf("second pass inserted=%d skipped=%d, want 0/2", second.Inserted, second.Skipped)
	}
	if f.articles.count() != 2 {
		t.Errorf("store holds %d articles, want 2", f.articles.count())
	}
	cp, _ := f.checkpoints.Get(context.Background(), "a")
	if cp == nil || cp.ArticlesFound != 0 || !cp.LastCheckedAt.Equal(fixedNow) {
		t.Errorf("checkpoint after second pass = %+v", cp)
	}
}

func TestRunPass_DedupAcrossFeeds(t *testing.T) {
	f := newFixture()
	first := complete("https://a.example/shared")
	first.Headline = "from feed one"
	dup := complete("https://a.example/shared")
	dup.Headline = "from feed two"
	f.feeds.items["https://a.example/one"] = []entity.Candidate{first}
	f.feeds.items["https://a.example/two"] = []entity.Candidate{dup, complete("https://a.example/other")}

	stats, err := f.service().RunPass(context.Background(),
		[]entity.Source{source("a", "https://a.example/one", "https://a.example/two")}, false)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Candidates != 2 || stats.Inserted != 2 {
		t.Errorf("candidates=%d inserted=%d, want 2/2", stats.Candidates, stats.Inserted)
	}
	got, _ := f.articles.GetByURL(context.Background(), "https://a.example/shared")
	if got == nil || got.Headline != "from feed one" {
		t.Errorf("expected first occurrence to win, got %+v", got)
	}
}

func TestRunPass_SkipsSourcesWithoutDiscovery(t *testing.T) {
	f := newFixture()
	stats, err := f.service().RunPass(context.Background(), []entity.Source{{Slug: "empty", Name: "Empty"}}, true)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Sources != 0 || stats.Failed != 0 {
		t.Errorf("sources=%d failed=%d, want 0/0", stats.Sources, stats.Failed)
	}
	if len(f.checkpoints.bySlug) != 0 {
		t.Errorf("expected no checkpoint, got %v", f.checkpoints.bySlug)
	}
}

func TestRunPass_CheckpointWithZeroArticles(t *testing.T) {
	f := newFixture()
	stats, err := f.service().RunPass(context.Background(), []entity.Source{source("quiet", "https://q.example/feed")}, true)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Sources != 1 || stats.PerSource["quiet"] != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
	cp, _ := f.checkpoints.Get(context.Background(), "quiet")
	if cp == nil || cp.ArticlesFound != 0 {
		t.Errorf("expected zero-count checkpoint, got %+v", cp)
	}
}

func TestRunPass_InterSourceDelay(t *testing.T) {
	f := newFixture()
	sources := []entity.Source{
		source("a", "https://a.example/feed"),
		source("b", "https://b.example/feed"),
		source("c", "https://c.example/feed"),
	}
	if _, err := f.service().RunPass(context.Background(), sources, false); err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	// no candidates, so only the inter-source delays were taken
	want := []time.Duration{2 * time.Second, 2 * time.Second}
	if len(f.sleeps.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", f.sleeps.delays, want)
	}
	for i, d := range want {
		if f.sleeps.delays[i] != d {
			t.Errorf("delay[%d] = %v, want %v", i, f.sleeps.delays[i], d)
		}
	}
}

/* ───────── 2. failure isolation ───────── */

type panickingFeeds struct {
	*stubFeeds
	panicOn string
}

func (p panickingFeeds) Parse(ctx context.Context, feedURL string) []entity.Candidate {
	if feedURL == p.panicOn {
		panic("feed exploded")
	}
	return p.stubFeeds.Parse(ctx, feedURL)
}

func TestRunPass_PanicIsolatedToSource(t *testing.T) {
	f := newFixture()
	f.feeds.items["https://b.example/feed"] = []entity.Candidate{complete("https://b.example/1")}
	svc := ingest.NewService(
		f.articles, f.checkpoints,
		panickingFeeds{stubFeeds: f.feeds, panicOn: "https://a.example/feed"},
		f.enricher, f.retriever, f.resolver, f.images,
		ingest.WithSleep(f.sleeps.sleep),
		ingest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	stats, err := svc.RunPass(context.Background(), []entity.Source{
		source("a", "https://a.example/feed"),
		source("b", "https://b.example/feed"),
	}, false)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Failed != 1 || stats.Inserted != 1 || stats.Sources != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if _, ok := f.checkpoints.bySlug["a"]; ok {
		t.Error("failed source must not be checkpointed")
	}
	if _, ok := f.checkpoints.bySlug["b"]; !ok {
		t.Error("expected checkpoint for source b")
	}
}

func TestProcessSource_PanicBecomesError(t *testing.T) {
	f := newFixture()
	svc := ingest.NewService(
		f.articles, f.checkpoints,
		panickingFeeds{stubFeeds: f.feeds, panicOn: "https://a.example/feed"},
		nil, nil, nil, nil,
		ingest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	n, err := svc.ProcessSource(context.Background(), source("a", "https://a.example/feed"), false)
	if err == nil {
		t.Fatal("expected error from panicking source")
	}
	if n != 0 {
		t.Errorf("inserted = %d, want 0", n)
	}
}

func TestRunPass_CandidateErrorsAreSkipped(t *testing.T) {
	f := newFixture()
	f.articles.insertErr = errors.New("connection reset")
	f.feeds.items["https://a.example/feed"] = []entity.Candidate{complete("https://a.example/1")}

	stats, err := f.service().RunPass(context.Background(), []entity.Source{source("a", "https://a.example/feed")}, false)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Failed != 0 || stats.Skipped != 1 || stats.Inserted != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// panickingImages panics for one image URL and caches the rest.
type panickingImages struct {
	*stubImages
	panicOn string
}

func (p panickingImages) Store(ctx context.Context, slug, imageURL string) string {
	if imageURL == p.panicOn {
		panic("decoder exploded")
	}
	return p.stubImages.Store(ctx, slug, imageURL)
}

func TestRunPass_CandidatePanicIsSkipped(t *testing.T) {
	f := newFixture()
	f.feeds.items["https://a.example/feed"] = []entity.Candidate{
		complete("https://a.example/1"),
		complete("https://a.example/2"),
	}
	svc := ingest.NewService(
		f.articles, f.checkpoints, f.feeds, f.enricher, f.retriever, f.resolver,
		panickingImages{stubImages: f.images, panicOn: "https://a.example/1/img.jpg"},
		ingest.WithSleep(f.sleeps.sleep),
		ingest.WithClock(func() time.Time { return fixedNow }),
		ingest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	stats, err := svc.RunPass(context.Background(), []entity.Source{source("a", "https://a.example/feed")}, false)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Failed != 0 || stats.Skipped != 1 || stats.Inserted != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if got, _ := f.articles.GetByURL(context.Background(), "https://a.example/2"); got == nil {
		t.Error("candidate after the panic was not archived")
	}
	cp, ok := f.checkpoints.bySlug["a"]
	if !ok {
		t.Fatal("source with a panicking candidate must still be checkpointed")
	}
	if cp.ArticlesFound != 1 || !cp.LastCheckedAt.Equal(fixedNow) {
		t.Errorf("checkpoint = %+v", cp)
	}
}

func TestRunPass_CheckpointFailureFailsSource(t *testing.T) {
	f := newFixture()
	f.checkpoints.upsertErr = errors.New("store unavailable")
	f.feeds.items["https://a.example/feed"] = []entity.Candidate{complete("https://a.example/1")}

	stats, err := f.service().RunPass(context.Background(), []entity.Source{source("a", "https://a.example/feed")}, false)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("failed = %d, want 1", stats.Failed)
	}
}

/* ───────── 3. cancellation ───────── */

func TestRunPass_CancellationFinishesCurrentSource(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.feeds.items["https://a.example/feed"] = []entity.Candidate{complete("https://a.example/1"), complete("https://a.example/2")}
	f.feeds.items["https://b.example/feed"] = []entity.Candidate{complete("https://b.example/1")}
	f.feeds.hooks["https://a.example/feed"] = cancel

	stats, err := f.service().RunPass(ctx, []entity.Source{
		source("a", "https://a.example/feed"),
		source("b", "https://b.example/feed"),
	}, false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if stats.PerSource["a"] != 2 {
		t.Errorf("source a inserted %d, want 2 (current source completes)", stats.PerSource["a"])
	}
	if _, ok := f.checkpoints.bySlug["a"]; !ok {
		t.Error("expected checkpoint for the completed source")
	}
	for _, call := range f.feeds.calls {
		if call == "https://b.example/feed" {
			t.Error("source b must not be processed after cancellation")
		}
	}
}

func TestRunPass_CancelledBeforeStart(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := f.service().RunPass(ctx, []entity.Source{source("a", "https://a.example/feed")}, false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if stats.Sources != 0 || len(f.feeds.calls) != 0 {
		t.Errorf("expected nothing processed, stats=%+v calls=%v", stats, f.feeds.calls)
	}
}

/* ───────── 4. candidate pipeline ───────── */

func TestRunPass_ResolvesBeforeExistenceCheck(t *testing.T) {
	f := newFixture()
	f.resolver["https://news.google.com/rss/articles/abc"] = "https://publisher.example/story"
	_, _ = f.articles.InsertIfAbsent(context.Background(), &entity.Article{URL: "https://publisher.example/story"})
	f.feeds.items["https://g.example/feed"] = []entity.Candidate{complete("https://news.google.com/rss/articles/abc")}

	stats, err := f.service().RunPass(context.Background(), []entity.Source{source("g", "https://g.example/feed")}, true)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Inserted != 0 || stats.Skipped != 1 {
		t.Errorf("inserted=%d skipped=%d, want 0/1", stats.Inserted, stats.Skipped)
	}
	if f.articles.count() != 1 {
		t.Errorf("store holds %d, want 1", f.articles.count())
	}
}

func TestRunPass_EnrichmentFillsOnlyEmptyFields(t *testing.T) {
	published := time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC)
	f := newFixture()
	f.enricher.md = enricher.Metadata{
		Image:       "https://a.example/og.jpg",
		Description: "from open graph",
		Title:       "OG title",
		Author:      "OG author",
		PublishedAt: &published,
	}
	f.feeds.items["https://a.example/feed"] = []entity.Candidate{
		{URL: "https://a.example/1", Headline: "Feed headline", Description: "feed description"},
	}

	if _, err := f.service().RunPass(context.Background(), []entity.Source{source("a", "https://a.example/feed")}, true); err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	got, _ := f.articles.GetByURL(context.Background(), "https://a.example/1")
	if got == nil {
		t.Fatal("article not stored")
	}
	if got.Headline != "Feed headline" || got.Description != "feed description" {
		t.Errorf("feed fields overwritten: %+v", got)
	}
	if got.PreviewImageURL != "https://a.example/og.jpg" || got.Byline != "OG author" {
		t.Errorf("empty fields not filled: %+v", got)
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(published) {
		t.Errorf("PublishedAt = %v, want %v", got.PublishedAt, published)
	}
	if got.PreviewImageLocal != "a/cached.jpg" {
		t.Errorf("PreviewImageLocal = %q", got.PreviewImageLocal)
	}
	if len(f.sleeps.delays) != 1 {
		t.Fatalf("delays = %v, want one enrichment delay", f.sleeps.delays)
	}
	if d := f.sleeps.delays[0]; d < 500*time.Millisecond || d > time.Second {
		t.Errorf("enrichment delay %v outside [0.5s, 1s]", d)
	}
}

func TestRunPass_EnrichmentConditions(t *testing.T) {
	tests := []struct {
		name      string
		candidate entity.Candidate
		enrich    bool
		wantCalls int
	}{
		{name: "complete candidate", candidate: complete("https://a.example/1"), enrich: true, wantCalls: 0},
		{name: "missing image", candidate: entity.Candidate{URL: "https://a.example/1", Description: "d"}, enrich: true, wantCalls: 1},
		{name: "missing description", candidate: entity.Candidate{URL: "https://a.example/1", PreviewImageURL: "https://a.example/i.jpg"}, enrich: true, wantCalls: 1},
		{name: "enrichment disabled", candidate: entity.Candidate{URL: "https://a.example/1"}, enrich: false, wantCalls: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.feeds.items["https://a.example/feed"] = []entity.Candidate{tt.candidate}
			if _, err := f.service().RunPass(context.Background(), []entity.Source{source("a", "https://a.example/feed")}, tt.enrich); err != nil {
				t.Fatalf("RunPass: %v", err)
			}
			if len(f.enricher.calls) != tt.wantCalls {
				t.Errorf("enrich calls = %d, want %d", len(f.enricher.calls), tt.wantCalls)
			}
		})
	}
}

func TestRunPass_LongDescriptionFromEnrichmentIsTruncated(t *testing.T) {
	f := newFixture()
	long := make([]rune, 800)
	for i := range long {
		long[i] = 'x'
	}
	f.enricher.md = enricher.Metadata{Description: string(long)}
	f.feeds.items["https://a.example/feed"] = []entity.Candidate{{URL: "https://a.example/1"}}

	if _, err := f.service().RunPass(context.Background(), []entity.Source{source("a", "https://a.example/feed")}, true); err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	got, _ := f.articles.GetByURL(context.Background(), "https://a.example/1")
	if n := len([]rune(got.Description)); n != 500 {
		t.Errorf("description length = %d, want 500", n)
	}
}

func TestRunPass_BypassRetrieval(t *testing.T) {
	tests := []struct {
		name        string
		bypass      bool
		preferHeavy bool
		ok          bool
		wantBody    string
		wantCalls   int
	}{
		{name: "bypass disabled", bypass: false, wantCalls: 0},
		{name: "bypass retrieves body", bypass: true, ok: true, wantBody: "<p>full text</p>", wantCalls: 1},
		{name: "prefer heavy forwarded", bypass: true, preferHeavy: true, ok: true, wantBody: "<p>full text</p>", wantCalls: 1},
		{name: "retrieval failure stores empty body", bypass: true, ok: false, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.retriever.body = "<p>full text</p>"
			f.retriever.ok = tt.ok
			f.feeds.items["https://a.example/feed"] = []entity.Candidate{complete("https://a.example/1")}
			src := source("a", "https://a.example/feed")
			src.BypassEnabled = tt.bypass
			src.PreferHeavyRetrieval = tt.preferHeavy

			if _, err := f.service().RunPass(context.Background(), []entity.Source{src}, true); err != nil {
				t.Fatalf("RunPass: %v", err)
			}
			if len(f.retriever.calls) != tt.wantCalls {
				t.Fatalf("retrieve calls = %d, want %d", len(f.retriever.calls), tt.wantCalls)
			}
			if tt.wantCalls > 0 {
				if f.retriever.calls[0].preferHeavy != tt.preferHeavy {
					t.Errorf("preferHeavy = %v, want %v", f.retriever.calls[0].preferHeavy, tt.preferHeavy)
				}
				if d := f.sleeps.delays[0]; d < 1500*time.Millisecond || d > 2500*time.Millisecond {
					t.Errorf("bypass delay %v outside [1.5s, 2.5s]", d)
				}
			}
			got, _ := f.articles.GetByURL(context.Background(), "https://a.example/1")
			if got == nil || got.Body != tt.wantBody {
				t.Errorf("body = %q, want %q", got.Body, tt.wantBody)
			}
		})
	}
}

func TestRunPass_ArticleFields(t *testing.T) {
	f := newFixture()
	c := complete("https://a.example/1")
	c.Tags = []string{"politics"}
	f.feeds.items["https://a.example/feed"] = []entity.Candidate{c}

	if _, err := f.service().RunPass(context.Background(), []entity.Source{source("a", "https://a.example/feed")}, false); err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	got, _ := f.articles.GetByURL(context.Background(), "https://a.example/1")
	if got.SourceSlug != "a" || got.SourceName != "a news" || got.Category != "world" {
		t.Errorf("source fields = %q %q %q", got.SourceSlug, got.SourceName, got.Category)
	}
	if !got.DiscoveredAt.Equal(fixedNow) {
		t.Errorf("DiscoveredAt = %v, want %v", got.DiscoveredAt, fixedNow)
	}
	if got.PublishedAt != nil {
		t.Errorf("PublishedAt should stay unset, got %v", got.PublishedAt)
	}
	if len(got.ImageURLs) != 1 || got.ImageURLs[0] != c.PreviewImageURL {
		t.Errorf("ImageURLs = %v", got.ImageURLs)
	}
	if len(f.images.calls) != 1 {
		t.Errorf("image cache calls = %d, want 1", len(f.images.calls))
	}
}

/* ───────── 5. notifications ───────── */

type recordingNotifier struct {
	urls []string
	err  error
}

func (r *recordingNotifier) NotifyNewArticle(_ context.Context, a *entity.Article) error {
	r.urls = append(r.urls, a.URL)
	return r.err
}

func TestRunPass_NotifiesOnlyNewArticles(t *testing.T) {
	f := newFixture()
	f.feeds.items["https://a.example/feed"] = []entity.Candidate{complete("https://a.example/1"), complete("https://a.example/2")}
	n := &recordingNotifier{}
	svc := ingest.NewService(
		f.articles, f.checkpoints, f.feeds, f.enricher, f.retriever, f.resolver, f.images,
		ingest.WithSleep(f.sleeps.sleep),
		ingest.WithClock(func() time.Time { return fixedNow }),
		ingest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		ingest.WithNotifier(n),
	)
	sources := []entity.Source{source("a", "https://a.example/feed")}

	if _, err := svc.RunPass(context.Background(), sources, false); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if _, err := svc.RunPass(context.Background(), sources, false); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(n.urls) != 2 || n.urls[0] != "https://a.example/1" || n.urls[1] != "https://a.example/2" {
		t.Errorf("notified %v, want the two new articles once each", n.urls)
	}
}

func TestRunPass_NotifierErrorDoesNotFailCandidate(t *testing.T) {
	f := newFixture()
	f.feeds.items["https://a.example/feed"] = []entity.Candidate{complete("https://a.example/1")}
	n := &recordingNotifier{err: errors.New("shut down")}
	svc := ingest.NewService(
		f.articles, f.checkpoints, f.feeds, f.enricher, f.retriever, f.resolver, f.images,
		ingest.WithSleep(f.sleeps.sleep),
		ingest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		ingest.WithNotifier(n),
	)

	stats, err := svc.RunPass(context.Background(), []entity.Source{source("a", "https://a.example/feed")}, false)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Inserted != 1 {
		t.Errorf("inserted = %d, want 1", stats.Inserted)
	}
}
