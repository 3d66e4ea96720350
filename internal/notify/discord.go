package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/jonathan/quote-repost/internal/logging"
	"github.com/jonathan/quote-repost/internal/types"
)

// DefaultUsername is the display name used for webhook posts
const DefaultUsername = "QuoteRepostBot"

// DiscordConfig configures a webhook notifier
type DiscordConfig struct {
	WebhookURL string
	Username   string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultDiscordConfig returns the webhook defaults for the given URL
func DefaultDiscordConfig(webhookURL string) DiscordConfig {
	return DiscordConfig{
		WebhookURL: webhookURL,
		Username:   DefaultUsername,
		Timeout:    10 * time.Second,
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// DiscordNotifier posts notifications to a Discord webhook
type DiscordNotifier struct {
	config   DiscordConfig
	client   *http.Client
	executor failsafe.Executor[*http.Response]
	logger   logging.Logger
}

type webhookPayload struct {
	Content  string `json:"content"`
	Username string `json:"username"`
}

// NewDiscordNotifier creates a webhook notifier
func NewDiscordNotifier(config DiscordConfig, logger logging.Logger) (*DiscordNotifier, error) {
	if config.WebhookURL == "" {
		return nil, fmt.Errorf("discord webhook URL is required")
	}
	if config.Username == "" {
		config.Username = DefaultUsername
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 500 * time.Millisecond
	}
	if config.MaxDelay < config.BaseDelay {
		config.MaxDelay = config.BaseDelay
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}

	return &DiscordNotifier{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		executor: failsafe.With(newRetryPolicy(config)),
		logger:   logging.OrDiscard(logger),
	}, nil
}

//nolint:bodyclose // *http.Response is a type parameter here
func newRetryPolicy(config DiscordConfig) retrypolicy.RetryPolicy[*http.Response] {
	return retrypolicy.NewBuilder[*http.Response]().
		HandleIf(shouldRetry).
		WithBackoff(config.BaseDelay, config.MaxDelay).
		WithMaxRetries(config.MaxRetries).
		ReturnLastFailure().
		Build()
}

// shouldRetry retries transport errors, rate limits and server errors
func shouldRetry(resp *http.Response, err error) bool {
	if err != nil || resp == nil {
		return true
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}

// Notify formats the notification and posts it, split across as many
// messages as the content limit requires.
func (d *DiscordNotifier) Notify(ctx context.Context, n types.Notification) error {
	chunks := SplitMessage(FormatNotification(n), MaxMessageLength)
	for i, chunk := range chunks {
		if err := d.post(ctx, chunk); err != nil {
			return fmt.Errorf("discord message %d/%d for %s: %w", i+1, len(chunks), n.SourceID, err)
		}
	}

	d.logger.WithFields(logging.Fields{
		"post_id":  n.SourceID,
		"drafts":   len(n.Drafts),
		"messages": len(chunks),
	}).Info("Discord notification sent")
	return nil
}

func (d *DiscordNotifier) post(ctx context.Context, content string) error {
	body, err := json.Marshal(webhookPayload{Content: content, Username: d.config.Username})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	resp, err := d.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.WebhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.client.Do(req)
		if shouldRetry(resp, err) && resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		return resp, err
	})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}
