package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"news-archiver/internal/common/pagination"
	pgRepo "news-archiver/internal/infra/adapter/persistence/postgres"
	"news-archiver/internal/infra/db"
	"news-archiver/internal/observability/logging"
	"news-archiver/internal/observability/tracing"
	"news-archiver/internal/resilience/circuitbreaker"
	"news-archiver/pkg/config"
	"news-archiver/pkg/ratelimit"

	artUC "news-archiver/internal/usecase/article"

	hhttp "news-archiver/internal/handler/http"
	harticle "news-archiver/internal/handler/http/article"
	"news-archiver/internal/handler/http/middleware"
	"news-archiver/internal/handler/http/requestid"
	"news-archiver/internal/handler/http/respond"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadServerConfig()
	shutdownTracing := tracing.Setup("news-archiver-api", cfg.version, cfg.traceSpans, logger)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("failed to flush spans", slog.Any("error", err))
		}
	}()

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
	artSvc := artUC.Service{
		Repo:        pgRepo.NewArticleRepo(store),
		Checkpoints: pgRepo.NewCheckpointRepo(store),
	}

	limits, err := setupRateLimits(ctx, logger)
	if err != nil {
		logger.Error("failed to configure rate limits", slog.Any("error", err))
		return 1
	}

	mux := setupRoutes(routeDeps{
		db:           database,
		version:      cfg.version,
		imagesDir:    cfg.imagesDir,
		articles:     artSvc,
		breakerState: func() string { return store.State().String() },
		staleAfter:   cfg.staleAfter,
		searchLimit:  limits.search,
	})

	handler, err := applyMiddleware(logger, mux, cfg.requestTimeout, limits.ip)
	if err != nil {
		logger.Error("failed to configure middleware", slog.Any("error", err))
		return 1
	}

	if err := runServer(ctx, logger, handler, cfg); err != nil {
		logger.Error("server failed", slog.Any("error", err))
		return 1
	}
	logger.Info("server stopped")
	return 0
}

// serverConfig holds the API process settings.
type serverConfig struct {
	port           int
	version        string
	imagesDir      string
	requestTimeout time.Duration
	staleAfter     time.Duration
	traceSpans     bool
}

// loadServerConfig reads API_PORT, VERSION, IMAGES_DIR, REQUEST_TIMEOUT,
// HEALTH_STALE_AFTER and TRACE_SPANS.
func loadServerConfig() serverConfig {
	return serverConfig{
		port:           config.GetEnvPort("API_PORT", 8080),
		version:        config.GetEnvString("VERSION", "dev"),
		imagesDir:      config.GetEnvString("IMAGES_DIR", "data/images"),
		requestTimeout: config.GetEnvPositiveDuration("REQUEST_TIMEOUT", 15*time.Second),
		staleAfter:     config.GetEnvPositiveDuration("HEALTH_STALE_AFTER", 24*time.Hour),
		traceSpans:     config.GetEnvBool("TRACE_SPANS", false),
	}
}

type routeDeps struct {
	db           hhttp.DBPinger
	version      string
	imagesDir    string
	articles     artUC.Service
	breakerState func() string
	staleAfter   time.Duration
	searchLimit  func(http.Handler) http.Handler
}

// setupRoutes registers the health checks, metrics, the image cache and the archive routes.
func setupRoutes(deps routeDeps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /health", &hhttp.HealthHandler{
		Version: deps.version,
		Checks: map[string]hhttp.Check{
			"database":      hhttp.DatabaseCheck(deps.db),
			"store_breaker": hhttp.BreakerCheck(deps.breakerState),
			"archive":       hhttp.FreshnessCheck(deps.articles.Stats, deps.staleAfter),
		},
	})
	mux.Handle("GET /health/ready", &hhttp.ReadyHandler{DB: deps.db})
	mux.Handle("GET /health/live", hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())
	mux.Handle("GET "+harticle.ImagesPrefix, http.StripPrefix(harticle.ImagesPrefix, hhttp.ImagesHandler(deps.imagesDir)))

	harticle.Register(mux, deps.articles, pagination.LoadFromEnv(), deps.searchLimit)
	return mux
}

// rateLimits holds the per-IP middlewares. Both are nil when rate limiting is disabled.
type rateLimits struct {
	ip     func(http.Handler) http.Handler
	search func(http.Handler) http.Handler
}

// setupRateLimits builds the global and search limiters over one shared store
// and prunes the store in the background until ctx is done.
func setupRateLimits(ctx context.Context, logger *slog.Logger) (rateLimits, error) {
	cfg := ratelimit.LoadConfig()
	if !cfg.Enabled {
		logger.Info("rate limiting disabled")
		return rateLimits{}, nil
	}
	proxies, err := middleware.LoadTrustedProxyConfig()
	if err != nil {
		return rateLimits{}, fmt.Errorf("load trusted proxy configuration: %w", err)
	}
	extractor := middleware.NewTrustedProxyExtractor(proxies, logger)

	store := ratelimit.NewMemoryStore(cfg.MaxKeys)
	go store.RunCleanup(ctx, cfg.CleanupInterval, cfg.IPWindow, ratelimit.SystemClock{})

	ip := ratelimit.NewLimiter("ip", cfg.IPLimit, cfg.IPWindow, store, nil)
	search := ratelimit.NewLimiter("search", cfg.SearchLimit, cfg.IPWindow, store, nil)
	logger.Info("rate limiting enabled",
		slog.Int("ip_limit", cfg.IPLimit),
		slog.Int("search_limit", cfg.SearchLimit),
		slog.Duration("window", cfg.IPWindow),
		slog.Bool("trust_proxy", proxies.Enabled))

	return rateLimits{
		ip:     middleware.NewIPRateLimiter(ip, extractor, logger).Middleware,
		search: middleware.NewIPRateLimiter(search, extractor, logger).Middleware,
	}, nil
}

// applyMiddleware wraps the handler with the middleware chain. A nil ipLimit
// leaves requests unlimited.
// Order: CORS → Request ID → Tracing → Recovery → Logging → IP rate limit → URI limit → Timeout → Metrics
func applyMiddleware(logger *slog.Logger, handler http.Handler, timeout time.Duration, ipLimit func(http.Handler) http.Handler) (http.Handler, error) {
	chain := []func(http.Handler) http.Handler{}

	corsConfig, err := middleware.LoadCORSConfig()
	if err != nil {
		return nil, fmt.Errorf("load CORS configuration: %w", err)
	}
	if corsConfig != nil {
		corsConfig.Logger = logger
		chain = append(chain, middleware.CORS(*corsConfig))
		logger.Info("CORS enabled",
			slog.Any("allowed_origins", corsConfig.AllowedOrigins),
			slog.Int("max_age", corsConfig.MaxAge))
	}

	chain = append(chain,
		requestid.Middleware,
		tracing.Middleware,
		hhttp.Recover(logger),
		hhttp.Logging(logger),
	)
	if ipLimit != nil {
		chain = append(chain, ipLimit)
	}
	chain = append(chain,
		hhttp.LimitURI,
		hhttp.Timeout(timeout),
		hhttp.MetricsMiddleware,
	)
	return hhttp.Chain(handler, chain...), nil
}

// runServer serves until ctx is cancelled, then drains in-flight requests.
func runServer(ctx context.Context, logger *slog.Logger, handler http.Handler, cfg serverConfig) error {
	addr := fmt.Sprintf(":%d", cfg.port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		IdleTimeout:       60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", slog.String("addr", addr), slog.String("version", cfg.version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
