package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"news-archiver/internal/domain/entity"

	"golang.org/x/time/rate"
)

// Discord embed limits.
const (
	maxTitleLength       = 256
	maxDescriptionLength = 4096
	discordTruncation    = "..."

	discordBlueColor = 5793266 // #5865F2
)

// DiscordNotifier posts articles to a Discord webhook as embeds.
type DiscordNotifier struct {
	hook *webhook
}

// NewDiscordNotifier creates a DiscordNotifier limited to 30 requests per
// minute with bursts of 3, the webhook quota.
func NewDiscordNotifier(webhookURL string, timeout time.Duration) *DiscordNotifier {
	return &DiscordNotifier{hook: &webhook{
		service:    "discord",
		url:        webhookURL,
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(0.5, 3),
		retry:      webhookRetry(),
		retryAfter: discordRetryAfter,
		logger:     slog.Default(),
	}}
}

// DiscordPayload is the webhook body.
type DiscordPayload struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed is one rich embed.
type DiscordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url"`
	Color       int                 `json:"color"`
	Footer      DiscordEmbedFooter  `json:"footer"`
	Timestamp   string              `json:"timestamp"`
	Thumbnail   *DiscordEmbedObject `json:"thumbnail,omitempty"`
}

// DiscordEmbedFooter is the embed footer.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// DiscordEmbedObject references an image by URL.
type DiscordEmbedObject struct {
	URL string `json:"url"`
}

// discordErrorResponse is the body of a Discord error; retry_after is in seconds.
type discordErrorResponse struct {
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
}

func buildDiscordPayload(a *entity.Article) DiscordPayload {
	embed := DiscordEmbed{
		Title:       truncate(a.Headline, maxTitleLength, discordTruncation),
		Description: truncate(a.Description, maxDescriptionLength, discordTruncation),
		URL:         a.URL,
		Color:       discordBlueColor,
		Footer:      DiscordEmbedFooter{Text: a.SourceName + " · " + a.Category},
		Timestamp:   a.EffectiveDate().UTC().Format(time.RFC3339),
	}
	if a.PreviewImageURL != "" {
		embed.Thumbnail = &DiscordEmbedObject{URL: a.PreviewImageURL}
	}
	return DiscordPayload{Embeds: []DiscordEmbed{embed}}
}

// discordRetryAfter prefers retry_after from the JSON body over the header.
func discordRetryAfter(resp *http.Response, body []byte) time.Duration {
	var e discordErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter * float64(time.Second))
	}
	return headerRetryAfter(resp)
}

// NotifyArticle implements Notifier.
func (d *DiscordNotifier) NotifyArticle(ctx context.Context, article *entity.Article) error {
	return d.hook.send(ctx, article, buildDiscordPayload(article))
}
