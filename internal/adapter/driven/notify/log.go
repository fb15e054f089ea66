package notify

import (
	"context"
	"log/slog"

	"github.com/shalaykin1/forknews/internal/domain/model"
)

// LogSender writes release alerts to the structured log. It is the default
// sink when no webhook is configured, so a detected update is never silently
// dropped.
type LogSender struct{}

// NewLogSender creates a log-backed sender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Name returns the sender name.
func (s *LogSender) Name() string {
	return "log"
}

// Send logs the notification.
func (s *LogSender) Send(_ context.Context, n model.Notification) error {
	slog.Info("new release",
		"dedupe_key", n.DedupeKey,
		"title", n.Title,
		"body", n.Body,
		"url", n.URL,
	)
	return nil
}
