// Command feedcheck fetches every feed in the sources file once and reports
// which ones are healthy. It exits non-zero when any feed is broken.
//
// Usage:
//
//	feedcheck [-sources configs/sources.yaml] [-only slug] [-json]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"

	"news-archiver/internal/config"
	"news-archiver/internal/domain/entity"
	"news-archiver/internal/infra/feed"
	"news-archiver/internal/infra/httpclient"
	"news-archiver/internal/observability/logging"
)

// options are read from the environment first; flags override them.
type options struct {
	SourcesFile string        `env:"SOURCES_FILE" envDefault:"configs/sources.yaml"`
	OnlySource  string        `env:"ONLY_SOURCE"`
	Timeout     time.Duration `env:"FEEDCHECK_TIMEOUT" envDefault:"30s"`
	Delay       time.Duration `env:"FEEDCHECK_DELAY" envDefault:"500ms"`
	JSON        bool          `env:"FEEDCHECK_JSON"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	// A .env file is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to read .env", slog.Any("error", err))
	}

	opts, err := parseOptions(args)
	if err != nil {
		logger.Error("invalid options", slog.Any("error", err))
		return 2
	}

	all, err := config.LoadSources(opts.SourcesFile)
	if err != nil {
		logger.Error("failed to load sources", slog.String("file", opts.SourcesFile), slog.Any("error", err))
		return 1
	}
	sources, err := config.SelectSources(all, opts.OnlySource)
	if err != nil {
		logger.Error("failed to select sources", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetchConfig, err := httpclient.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("invalid fetch configuration, using defaults", slog.Any("error", err))
		fetchConfig = httpclient.DefaultConfig()
	}
	client := httpclient.New(fetchConfig)

	results := check(ctx, client, sources, opts, sleepContext)

	if opts.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			logger.Error("failed to write report", slog.Any("error", err))
			return 1
		}
	} else {
		for _, line := range renderTable(results) {
			_, _ = fmt.Fprintln(stdout, line)
		}
	}

	for _, d := range results {
		if !d.Healthy() {
			return 1
		}
	}
	return 0
}

func parseOptions(args []string) (options, error) {
	var opts options
	if err := env.Parse(&opts); err != nil {
		return opts, fmt.Errorf("environment: %w", err)
	}

	fset := flag.NewFlagSet("feedcheck", flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	fset.StringVar(&opts.SourcesFile, "sources", opts.SourcesFile, "YAML file listing the sources")
	fset.StringVar(&opts.OnlySource, "only", opts.OnlySource, "check a single source slug")
	fset.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "per-feed fetch timeout")
	fset.DurationVar(&opts.Delay, "delay", opts.Delay, "pause between feeds")
	fset.BoolVar(&opts.JSON, "json", opts.JSON, "write the report as JSON")
	if err := fset.Parse(args); err != nil {
		return opts, err
	}
	if opts.Timeout <= 0 {
		return opts, fmt.Errorf("timeout must be positive, got %s", opts.Timeout)
	}
	return opts, nil
}

// check diagnoses each feed of each source in order, pausing between requests.
func check(ctx context.Context, client httpclient.Fetcher, sources []entity.Source, opts options, sleep func(context.Context, time.Duration) error) []feed.Diagnostic {
	var results []feed.Diagnostic
	first := true
	for _, src := range sources {
		for _, feedURL := range src.FeedURLs {
			if !first && opts.Delay > 0 {
				if err := sleep(ctx, opts.Delay); err != nil {
					return results
				}
			}
			first = false
			d := feed.Diagnose(ctx, client, src.Slug, feedURL, opts.Timeout)
			slog.Debug("feed checked", slog.String("source", src.Slug), slog.String("feed", feedURL), slog.String("status", d.Status))
			results = append(results, d)
		}
	}
	return results
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
