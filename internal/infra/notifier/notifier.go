// Package notifier posts newly archived articles to chat webhooks (Slack, Discord).
// Each notifier rate limits itself to the service's webhook quota and retries
// transient failures; callers only see the final outcome.
package notifier

import (
	"context"

	"news-archiver/internal/domain/entity"
)

// Notifier sends one article notification.
type Notifier interface {
	// NotifyArticle posts article to the webhook. The error is non-nil only
	// after retries are exhausted or the failure is permanent.
	NotifyArticle(ctx context.Context, article *entity.Article) error
}

// NoOpNotifier discards every notification. It stands in for disabled channels.
type NoOpNotifier struct{}

// NotifyArticle implements Notifier.
func (NoOpNotifier) NotifyArticle(context.Context, *entity.Article) error { return nil }
