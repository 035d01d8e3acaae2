// Package logging provides structured logging helpers on top of log/slog.
//
// Both executables log JSON to stdout by default. Pass summaries are logged at
// info, source failures at error and per-candidate failures at debug.
//
// Example usage:
//
//	logger := logging.NewLogger()
//	slog.SetDefault(logger)
//
//	func handleRequest(ctx context.Context) {
//	    logger := logging.WithRequestID(ctx, slog.Default())
//	    logger.Info("processing request")
//	}
package logging
