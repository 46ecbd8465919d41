package communication

import (
	"context"
	"fmt"

	"axiapac.com/biometrics/config"
	"github.com/slack-go/slack"
)

// Notifier posts operational messages about sync runs.
type Notifier interface {
	Info(ctx context.Context, message string) error
	Error(ctx context.Context, message string) error
}

type Slack struct {
	client  *slack.Client
	options config.SlackConfig
}

// NewNotifier returns a Slack notifier, or a no-op one when no token is configured.
func NewNotifier(cfg config.SlackConfig, options ...slack.Option) Notifier {
	if !cfg.Enabled() {
		return nopNotifier{}
	}
	return NewSlack(cfg, options...)
}

func NewSlack(cfg config.SlackConfig, options ...slack.Option) *Slack {
	client := slack.New(cfg.Token, options...)
	return &Slack{client: client, options: cfg}
}

func (s *Slack) postMessage(ctx context.Context, channelID, message string) error {
	if channelID == "" {
		return nil
	}
	_, _, err := s.client.PostMessageContext(ctx,
		channelID,
		slack.MsgOptionText(message, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

func (s *Slack) Info(ctx context.Context, message string) error {
	return s.postMessage(ctx, s.options.InfoChannelID, message)
}

// Error posts to the error channel, falling back to the info channel.
func (s *Slack) Error(ctx context.Context, message string) error {
	channel := s.options.ErrorChannelID
	if channel == "" {
		channel = s.options.InfoChannelID
	}
	return s.postMessage(ctx, channel, message)
}

type nopNotifier struct{}

func (nopNotifier) Info(context.Context, string) error  { return nil }
func (nopNotifier) Error(context.Context, string) error { return nil }
