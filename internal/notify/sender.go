package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/report"
)

const defaultTimeout = 10 * time.Second

// Destination selects where a message goes. Channel takes precedence
// over User when both are set.
type Destination struct {
	// Channel is "#name" or a channel ID.
	Channel string `json:"channel,omitempty"`

	// User is a user ID, with or without a leading "@".
	User string `json:"user,omitempty"`
}

// Target returns the value sent in the payload's channel field, or "" to
// use the webhook's default destination.
func (d Destination) Target() string {
	if c := strings.TrimSpace(d.Channel); c != "" {
		return c
	}
	if u := strings.TrimSpace(d.User); u != "" {
		if !strings.HasPrefix(u, "@") {
			u = "@" + u
		}
		return u
	}
	return ""
}

// IsDirect reports whether the destination is a user rather than a channel.
func (d Destination) IsDirect() bool {
	return strings.TrimSpace(d.Channel) == "" && strings.TrimSpace(d.User) != ""
}

// Message is the webhook request body.
type Message struct {
	Text    string         `json:"text"`
	Channel string         `json:"channel,omitempty"`
	Blocks  []report.Block `json:"blocks,omitempty"`
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Option configures a WebhookSender.
type Option func(*WebhookSender)

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(s *WebhookSender) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *WebhookSender) { s.client = c }
}

// WebhookSender posts messages to an incoming-webhook URL.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender returns a sender for url.
func NewWebhookSender(url string, opts ...Option) (*WebhookSender, error) {
	if strings.TrimSpace(url) == "" {
		return nil, ErrNotConfigured
	}
	s := &WebhookSender{url: url, client: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send posts msg once.
//
// Returns:
//   - nil on a 2xx response
//   - *DeliveryError on any other status
//   - an error wrapping ErrDeliveryFailed when the request could not be made
func (s *WebhookSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrDeliveryFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_, _ = io.Copy(io.Discard, resp.Body)
	return &DeliveryError{StatusCode: resp.StatusCode, Body: string(snippet)}
}
