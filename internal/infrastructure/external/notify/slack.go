// Package notify implements the notification collaborator.
package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/dispatchcrew/airdispatch/pkg/config"
)

// SlackNotifier delivers notify actions to Slack channels
type SlackNotifier struct {
	client         *slack.Client
	defaultChannel string
}

// NewSlackNotifier creates a Slack-backed notifier
func NewSlackNotifier(cfg *config.SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		client:         slack.New(cfg.Token),
		defaultChannel: cfg.DefaultChannel,
	}
}

// Notify posts the message and returns the message timestamp as the
// created resource id
func (n *SlackNotifier) Notify(ctx context.Context, channel, message string) (string, error) {
	if channel == "" {
		channel = n.defaultChannel
	}
	_, ts, err := n.client.PostMessageContext(ctx, channel,
		slack.MsgOptionText(message, false),
	)
	if err != nil {
		return "", fmt.Errorf("failed to post slack message: %w", err)
	}
	return ts, nil
}

// Ping checks Slack connectivity for the readiness probe
func (n *SlackNotifier) Ping(ctx context.Context) error {
	_, err := n.client.AuthTestContext(ctx)
	return err
}
