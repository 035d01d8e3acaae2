package notify

import "errors"

var (
	// ErrInvalidArticle is returned for a nil article or one without URL or headline.
	ErrInvalidArticle = errors.New("invalid article: url and headline are required")

	// ErrShutdown is returned once Shutdown has been called.
	ErrShutdown = errors.New("notification service is shut down")
)
