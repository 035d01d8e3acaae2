package notifier

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"news-archiver/pkg/config"
)

// Config holds the webhook settings. An empty URL disables that service.
type Config struct {
	SlackWebhookURL   string
	DiscordWebhookURL string
	Timeout           time.Duration
}

// LoadConfigFromEnv reads NOTIFY_SLACK_WEBHOOK_URL, NOTIFY_DISCORD_WEBHOOK_URL
// and NOTIFY_TIMEOUT (default 10s). Webhook URLs must be https.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		SlackWebhookURL:   strings.TrimSpace(config.GetEnvString("NOTIFY_SLACK_WEBHOOK_URL", "")),
		DiscordWebhookURL: strings.TrimSpace(config.GetEnvString("NOTIFY_DISCORD_WEBHOOK_URL", "")),
		Timeout:           config.GetEnvDuration("NOTIFY_TIMEOUT", 10*time.Second),
	}
	if cfg.Timeout <= 0 {
		return Config{}, fmt.Errorf("NOTIFY_TIMEOUT must be positive, got %s", cfg.Timeout)
	}
	for name, raw := range map[string]string{
		"NOTIFY_SLACK_WEBHOOK_URL":   cfg.SlackWebhookURL,
		"NOTIFY_DISCORD_WEBHOOK_URL": cfg.DiscordWebhookURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			// the value is a secret; never echo it
			return Config{}, fmt.Errorf("%s must be an https URL", name)
		}
	}
	return cfg, nil
}
