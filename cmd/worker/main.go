package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"news-archiver/internal/config"
	"news-archiver/internal/domain/entity"
	"news-archiver/internal/handler/http/respond"
	pgRepo "news-archiver/internal/infra/adapter/persistence/postgres"
	"news-archiver/internal/infra/db"
	"news-archiver/internal/infra/enricher"
	"news-archiver/internal/infra/feed"
	"news-archiver/internal/infra/httpclient"
	"news-archiver/internal/infra/imagecache"
	"news-archiver/internal/infra/notifier"
	"news-archiver/internal/infra/resolver"
	"news-archiver/internal/infra/retriever"
	workerPkg "news-archiver/internal/infra/worker"
	"news-archiver/internal/observability/logging"
	"news-archiver/internal/observability/metrics"
	"news-archiver/internal/observability/tracing"
	"news-archiver/internal/repository"
	"news-archiver/internal/resilience/circuitbreaker"
	ingestUC "news-archiver/internal/usecase/ingest"
	notifyUC "news-archiver/internal/usecase/notify"
	envconfig "news-archiver/pkg/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		return 1
	}
	logger.Info("worker configuration loaded",
		slog.String("schedule", workerConfig.Schedule()),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("pass_timeout", workerConfig.PassTimeout),
		slog.Bool("run_once", workerConfig.RunOnce),
		slog.Bool("enrich", workerConfig.EnrichEnabled),
		slog.Int("health_port", workerConfig.HealthPort))

	shutdownTracing := tracing.Setup("news-archiver-worker", envconfig.GetEnvString("VERSION", "dev"), workerConfig.TraceSpans, logger)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("failed to flush spans", slog.Any("error", err))
		}
	}()

	// A broken sources file is the one unrecoverable configuration error.
	sources, err := loadSources(workerConfig)
	if err != nil {
		logger.Error("failed to load sources", slog.String("file", workerConfig.SourcesFile), slog.Any("error", err))
		return 1
	}
	logger.Info("sources loaded", slog.Int("count", len(sources)), slog.String("only", workerConfig.OnlySource))

	database, err := db.Open(ctx)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", respond.SanitizeError(err)))
		return 1
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	if err := db.MigrateUp(ctx, database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		return 1
	}

	store := circuitbreaker.NewStoreBreaker(database)
	articleRepo := pgRepo.NewArticleRepo(store)
	checkpointRepo := pgRepo.NewCheckpointRepo(store)

	notifySvc := setupNotifyService(logger)
	defer shutdownNotifyService(logger, notifySvc)

	svc, ret := setupIngestService(logger, workerConfig, articleRepo, checkpointRepo, notifySvc)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	healthServer.SetBreakerSource(func() map[string]string {
		states := ret.BreakerStates()
		states[circuitbreaker.StoreConfig().Name] = store.State().String()
		for name, state := range notifySvc.BreakerStates() {
			states[name] = state
		}
		return states
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := healthServer.Start(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := startMetricsServer(gctx, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	job := &passJob{
		logger:   logger,
		svc:      svc,
		sources:  sources,
		cfg:      workerConfig,
		metrics:  workerMetrics,
		health:   healthServer,
		articles: articleRepo,
	}

	if workerConfig.RunOnce {
		healthServer.SetReady(true)
		job.run(ctx)
		stop()
	} else if err := startCronWorker(gctx, logger, job, workerConfig, healthServer); err != nil {
		logger.Error("failed to start scheduler", slog.Any("error", err))
		return 1
	}

	if err := g.Wait(); err != nil {
		logger.Error("worker stopped with error", slog.Any("error", err))
		return 1
	}
	logger.Info("worker stopped")
	return 0
}

// loadSources reads the sources file and narrows it to the sources to poll.
func loadSources(cfg *workerPkg.WorkerConfig) ([]entity.Source, error) {
	all, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}
	return config.SelectSources(all, cfg.OnlySource)
}

// setupIngestService wires the fetch client, normalizer, enricher, retriever
// chain, resolver and image cache into the ingest coordinator.
func setupIngestService(
	logger *slog.Logger,
	cfg *workerPkg.WorkerConfig,
	articleRepo repository.ArticleRepository,
	checkpointRepo repository.CheckpointRepository,
	notifySvc *notifyUC.Service,
) (*ingestUC.Service, *retriever.Retriever) {
	fetchConfig, err := httpclient.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("invalid fetch configuration, using defaults", slog.Any("error", err))
		fetchConfig = httpclient.DefaultConfig()
	}
	client := httpclient.New(fetchConfig)

	// Only a detected browser becomes the heavy strategy; a typed nil would
	// otherwise land in the chain.
	var heavy retriever.Strategy
	browser, found := retriever.DetectBrowser(cfg.BrowserPath)
	if found {
		heavy = browser
	}
	ret := retriever.NewDefault(client, heavy)
	if ret.HasBrowser() {
		logger.Info("headless browser available", slog.String("path", browser.ExecPath()))
	} else {
		logger.Info("no headless browser found, browser retrieval disabled")
	}

	delays := ingestUC.DefaultDelays()
	delays.BetweenSources = cfg.SourceDelay
	opts := []ingestUC.Option{ingestUC.WithLogger(logger), ingestUC.WithDelays(delays)}
	if notifySvc.Enabled() {
		opts = append(opts, ingestUC.WithNotifier(notifySvc))
	}

	svc := ingestUC.NewService(
		articleRepo,
		checkpointRepo,
		feed.NewParser(client),
		enricher.New(client),
		ret,
		resolver.New(client, resolver.DefaultHosts),
		imagecache.New(cfg.ImagesDir, client),
		opts...,
	)
	return svc, ret
}

// setupNotifyService builds the new-article notifier from the NOTIFY_* variables.
// An invalid configuration disables notifications instead of stopping the worker.
func setupNotifyService(logger *slog.Logger) *notifyUC.Service {
	cfg, err := notifier.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("invalid notification configuration, notifications disabled", slog.Any("error", err))
		cfg = notifier.Config{}
	}
	channels := notifyUC.ChannelsFromConfig(cfg)
	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, ch.Name())
	}
	logger.Info("notification channels configured", slog.Any("channels", names))
	return notifyUC.NewService(channels, notifyMaxConcurrent, logger)
}

const (
	notifyMaxConcurrent   = 10
	notifyShutdownTimeout = 30 * time.Second
)

func shutdownNotifyService(logger *slog.Logger, svc *notifyUC.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyShutdownTimeout)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		logger.Warn("notifications still pending at shutdown", slog.Any("error", err))
	}
}

// startCronWorker runs one pass immediately, then schedules passes until ctx
// is cancelled. Overlapping runs are skipped. It returns once the in-flight
// pass has stopped.
func startCronWorker(ctx context.Context, logger *slog.Logger, job *passJob, cfg *workerPkg.WorkerConfig, healthServer *workerPkg.HealthServer) error {
	cronLogger := cronSlogLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger)),
	)

	// The startup pass shares the skip lock with scheduled runs.
	scheduled := cron.NewChain(cron.SkipIfStillRunning(cronLogger)).Then(cron.FuncJob(func() {
		job.run(ctx)
	}))
	if _, err := c.AddJob(cfg.Schedule(), scheduled); err != nil {
		return fmt.Errorf("add cron job %q: %w", cfg.Schedule(), err)
	}
	c.Start()

	startup := make(chan struct{})
	go func() {
		defer close(startup)
		scheduled.Run()
	}()

	// Mark as ready after cron is set up
	healthServer.SetReady(true)
	logger.Info("worker started", slog.String("schedule", cfg.Schedule()), slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	healthServer.SetReady(false)
	logger.Info("shutdown requested, waiting for the current source to finish")
	<-c.Stop().Done()
	// the startup run is not tracked by the scheduler
	<-startup
	return nil
}

// passJob executes one ingest pass with timeout, metrics and health reporting.
type passJob struct {
	logger   *slog.Logger
	svc      *ingestUC.Service
	sources  []entity.Source
	cfg      *workerPkg.WorkerConfig
	metrics  *workerPkg.WorkerMetrics
	health   *workerPkg.HealthServer
	articles repository.ArticleRepository
}

func (j *passJob) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	startTime := time.Now()
	j.metrics.RecordPassRun(workerPkg.StatusStarted)
	j.logger.Info("pass started", slog.Int("sources", len(j.sources)))

	passCtx, cancel := context.WithTimeout(ctx, j.cfg.PassTimeout)
	defer cancel()

	stats, err := j.svc.RunPass(passCtx, j.sources, j.cfg.EnrichEnabled)
	duration := time.Since(startTime)
	j.metrics.RecordPassDuration(duration.Seconds())
	j.metrics.RecordSourcesProcessed(stats.Sources)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		j.logger.Error("pass timed out", slog.Duration("timeout", j.cfg.PassTimeout), slog.Int("sources_done", stats.Sources))
		j.metrics.RecordPassRun(workerPkg.StatusFailure)
	case err != nil:
		j.logger.Warn("pass interrupted", slog.Any("error", respond.SanitizeError(err)), slog.Int("sources_done", stats.Sources))
		j.metrics.RecordPassRun(workerPkg.StatusSkipped)
	default:
		j.metrics.RecordPassRun(workerPkg.StatusSuccess)
		j.metrics.RecordLastSuccess()
	}

	j.health.RecordPass(workerPkg.PassSummary{
		FinishedAt: time.Now().UTC(),
		Duration:   duration,
		Sources:    stats.Sources,
		Inserted:   stats.Inserted,
		Failed:     stats.Failed,
	})

	// Refresh the archive size gauge; shutdown must not abort this.
	if total, err := j.articles.Stats(context.WithoutCancel(ctx)); err == nil {
		metrics.UpdateArticlesTotal(total.TotalArticles)
	}
}

// cronSlogLogger adapts slog to the cron.Logger interface.
type cronSlogLogger struct {
	logger *slog.Logger
}

func (l cronSlogLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronSlogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
