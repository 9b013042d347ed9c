package notify

import (
	"context"
	"fmt"
	"net/http"
)

// discordLimit is the maximum length of a webhook message.
const discordLimit = 2000

// DiscordSender posts alerts to a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a sender for a webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: sendTimeout},
	}
}

// Send posts the alert with the title in bold, truncated to the webhook limit.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	content := fmt.Sprintf("**%s**\n%s", title, message)
	if r := []rune(content); len(r) > discordLimit {
		content = string(r[:discordLimit-1]) + "…"
	}
	if err := postJSON(ctx, d.client, d.webhookURL, map[string]string{"content": content}); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string { return "discord" }
