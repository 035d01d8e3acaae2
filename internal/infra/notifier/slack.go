package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"news-archiver/internal/domain/entity"

	"golang.org/x/time/rate"
)

// Slack Block Kit limits.
const (
	maxSectionTextLength = 3000
	maxFallbackLength    = 150
	slackTruncation      = "..."
)

// SlackNotifier posts articles to a Slack Incoming Webhook using Block Kit.
type SlackNotifier struct {
	hook *webhook
}

// NewSlackNotifier creates a SlackNotifier limited to 1 request per second,
// the Incoming Webhook quota.
func NewSlackNotifier(webhookURL string, timeout time.Duration) *SlackNotifier {
	return &SlackNotifier{hook: &webhook{
		service: "slack",
		url:     webhookURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(1, 1),
		retry:   webhookRetry(),
		retryAfter: func(resp *http.Response, _ []byte) time.Duration {
			return headerRetryAfter(resp)
		},
		logger: slog.Default(),
	}}
}

// SlackPayload is the webhook body.
type SlackPayload struct {
	Text   string       `json:"text"` // notification fallback
	Blocks []SlackBlock `json:"blocks"`
}

// SlackBlock is a Block Kit block.
type SlackBlock struct {
	Type      string            `json:"type"`
	Text      *SlackTextObject  `json:"text,omitempty"`
	Elements  []SlackTextObject `json:"elements,omitempty"`
	Accessory *SlackImage       `json:"accessory,omitempty"`
}

// SlackTextObject is a mrkdwn or plain_text object.
type SlackTextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SlackImage is an image accessory.
type SlackImage struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
	AltText  string `json:"alt_text"`
}

// buildPayload renders the headline as a link, the description below it and
// a context line with source, category and date.
func buildSlackPayload(a *entity.Article) SlackPayload {
	fallback := truncate(fmt.Sprintf("%s - %s", a.Headline, a.SourceName), maxFallbackLength, slackTruncation)

	section := fmt.Sprintf("*<%s|%s>*", a.URL, a.Headline)
	if a.Description != "" {
		section += "\n\n" + a.Description
	}
	sectionBlock := SlackBlock{
		Type: "section",
		Text: &SlackTextObject{Type: "mrkdwn", Text: truncate(section, maxSectionTextLength, slackTruncation)},
	}
	if a.PreviewImageURL != "" {
		sectionBlock.Accessory = &SlackImage{Type: "image", ImageURL: a.PreviewImageURL, AltText: a.Headline}
	}

	contextText := fmt.Sprintf("%s • %s • %s", a.SourceName, a.Category, a.EffectiveDate().UTC().Format(time.RFC3339))
	return SlackPayload{
		Text: fallback,
		Blocks: []SlackBlock{
			sectionBlock,
			{Type: "context", Elements: []SlackTextObject{{Type: "mrkdwn", Text: contextText}}},
		},
	}
}

// NotifyArticle implements Notifier.
func (s *SlackNotifier) NotifyArticle(ctx context.Context, article *entity.Article) error {
	return s.hook.send(ctx, article, buildSlackPayload(article))
}
