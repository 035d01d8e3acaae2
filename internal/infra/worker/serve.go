package worker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// shutdownGrace bounds how long in-flight health and scrape requests may take
// once the worker is stopping.
const shutdownGrace = 5 * time.Second

// Serve runs srv until ctx is cancelled and then shuts it down gracefully.
// It returns http.ErrServerClosed after a clean shutdown and the listen error
// when the server could not start.
func Serve(ctx context.Context, srv *http.Server, name string, logger *slog.Logger) error {
	logger = logger.With(slog.String("server", name), slog.String("addr", srv.Addr))

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("server starting")
		listenErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
		return err
	}
	logger.Info("server stopped")
	return http.ErrServerClosed
}
