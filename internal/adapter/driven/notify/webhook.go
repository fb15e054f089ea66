package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/shalaykin1/forknews/internal/domain/model"
)

// WebhookSender POSTs release alerts as JSON to a configured endpoint. The
// dedupe key travels both in the body and in the X-Forknews-Dedupe-Key
// header so sinks that support replacement (ntfy-style topics, chat threads)
// can collapse repeated alerts for one repository.
type WebhookSender struct {
	url        string
	httpClient *http.Client
	maxTries   uint
}

// webhookPayload is the JSON body posted to the webhook endpoint.
type webhookPayload struct {
	DedupeKey string `json:"dedupe_key"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	URL       string `json:"url"`
}

// WebhookOption configures a WebhookSender.
type WebhookOption func(*WebhookSender)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(s *WebhookSender) {
		s.httpClient = client
	}
}

// WithMaxTries sets how many delivery attempts are made before giving up.
func WithMaxTries(n uint) WebhookOption {
	return func(s *WebhookSender) {
		s.maxTries = n
	}
}

// NewWebhookSender creates a webhook sender targeting url.
func NewWebhookSender(url string, opts ...WebhookOption) *WebhookSender {
	s := &WebhookSender{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxTries: 3,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the sender name.
func (s *WebhookSender) Name() string {
	return "webhook"
}

// Send posts the notification, retrying transient failures with exponential
// backoff. A 4xx response is permanent: the payload will not get better.
func (s *WebhookSender) Send(ctx context.Context, n model.Notification) error {
	body, err := json.Marshal(webhookPayload{
		DedupeKey: n.DedupeKey,
		Title:     n.Title,
		Body:      n.Body,
		URL:       n.URL,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	operation := func() (struct{}, error) {
		return struct{}{}, s.post(ctx, body, n.DedupeKey)
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxTries),
	)
	if err != nil {
		return fmt.Errorf("deliver webhook notification: %w", err)
	}

	return nil
}

func (s *WebhookSender) post(ctx context.Context, body []byte, dedupeKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forknews-Dedupe-Key", dedupeKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return backoff.Permanent(fmt.Errorf("webhook rejected with status %d", resp.StatusCode))
	default:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
}
