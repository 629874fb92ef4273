package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/slack-go/slack"
	"github.com/spf13/viper"
)

// ErrNotConfigured is returned when Slack notifications are enabled without credentials.
var ErrNotConfigured = errors.New("slack notifications are not configured")

// SlackNotifier posts messages to Slack, either through an incoming
// webhook or as a bot with chat.postMessage.
type SlackNotifier struct {
	WebhookURL string
	Client     *http.Client

	api     *slack.Client
	channel string
}

// NewSlackNotifier creates a SlackNotifier that posts to an incoming webhook.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		WebhookURL: webhookURL,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// NewSlackBotNotifier creates a SlackNotifier that posts to channel with a bot token.
func NewSlackBotNotifier(token, channel string, opts ...slack.Option) *SlackNotifier {
	return &SlackNotifier{
		api:     slack.New(token, opts...),
		channel: channel,
	}
}

// FromConfig builds a notifier from the notifications.slack.* keys. The
// webhook wins when both a webhook and a bot token are available.
func FromConfig() (*SlackNotifier, error) {
	if url := viper.GetString("notifications.slack.webhook_url"); url != "" {
		return NewSlackNotifier(url), nil
	}
	token := os.Getenv("SLACK_BOT_USER_TOKEN")
	if token == "" {
		return nil, ErrNotConfigured
	}
	return NewSlackBotNotifier(token, viper.GetString("notifications.slack.channel")), nil
}

// Notify sends message to the configured destination.
func (s *SlackNotifier) Notify(ctx context.Context, message string) error {
	if s.WebhookURL != "" {
		client := s.Client
		if client == nil {
			client = http.DefaultClient
		}
		msg := &slack.WebhookMessage{Text: message}
		if err := slack.PostWebhookCustomHTTPContext(ctx, s.WebhookURL, client, msg); err != nil {
			return fmt.Errorf("failed to send slack notification: %w", err)
		}
		return nil
	}

	if s.api == nil {
		return ErrNotConfigured
	}
	if _, _, err := s.api.PostMessageContext(ctx, s.channel, slack.MsgOptionText(message, false)); err != nil {
		return fmt.Errorf("failed to post slack message to %s: %w", s.channel, err)
	}
	return nil
}
