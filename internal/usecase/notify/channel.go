// Package notify fans newly archived articles out to the configured chat
// channels. Dispatch is asynchronous and bounded: a slow or failing webhook
// never holds up an ingest pass.
package notify

import (
	"context"

	"news-archiver/internal/domain/entity"
	"news-archiver/internal/infra/notifier"
)

// Channel is one notification destination.
type Channel interface {
	// Name is the lowercase channel identifier used in logs and metric labels.
	Name() string
	// Send delivers one article. Implementations retry on their own.
	Send(ctx context.Context, article *entity.Article) error
}

// notifierChannel adapts a notifier.Notifier to Channel.
type notifierChannel struct {
	name     string
	notifier notifier.Notifier
}

// NewChannel wraps n as a Channel called name.
func NewChannel(name string, n notifier.Notifier) Channel {
	return &notifierChannel{name: name, notifier: n}
}

func (c *notifierChannel) Name() string { return c.name }

func (c *notifierChannel) Send(ctx context.Context, article *entity.Article) error {
	return c.notifier.NotifyArticle(ctx, article)
}

// ChannelsFromConfig builds a channel per configured webhook.
func ChannelsFromConfig(cfg notifier.Config) []Channel {
	var channels []Channel
	if cfg.SlackWebhookURL != "" {
		channels = append(channels, NewChannel("slack", notifier.NewSlackNotifier(cfg.SlackWebhookURL, cfg.Timeout)))
	}
	if cfg.DiscordWebhookURL != "" {
		channels = append(channels, NewChannel("discord", notifier.NewDiscordNotifier(cfg.DiscordWebhookURL, cfg.Timeout)))
	}
	return channels
}
