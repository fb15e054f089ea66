// Package notify implements the Notifier port: it fans release alerts out to
// one or more configured senders.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shalaykin1/forknews/internal/domain/model"
	"github.com/shalaykin1/forknews/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Notifier = (*Dispatcher)(nil)

// sendTimeout bounds a single sender invocation so a hung sink cannot stall
// the poll cycle that raised the alert.
const sendTimeout = 30 * time.Second

// Sender delivers a single notification to one sink.
type Sender interface {
	// Send delivers the notification. Returns an error if delivery failed.
	Send(ctx context.Context, n model.Notification) error

	// Name returns the sender's name for logging purposes.
	Name() string
}

// Dispatcher routes notifications to registered senders. Sender failures and
// panics are contained here: Notify never propagates them, matching the
// contract that a broken sink must not fail a poll cycle.
type Dispatcher struct {
	mu      sync.RWMutex
	senders []Sender
}

// NewDispatcher creates a dispatcher with the given initial senders.
func NewDispatcher(senders ...Sender) *Dispatcher {
	return &Dispatcher{senders: senders}
}

// Register adds a sender to the dispatcher.
func (d *Dispatcher) Register(sender Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.senders = append(d.senders, sender)
}

// Notify delivers n to every registered sender. With no senders registered
// it is a silent no-op, the analog of a revoked notification permission.
func (d *Dispatcher) Notify(ctx context.Context, n model.Notification) error {
	d.mu.RLock()
	senders := make([]Sender, len(d.senders))
	copy(senders, d.senders)
	d.mu.RUnlock()

	for _, sender := range senders {
		d.sendWithRecover(ctx, sender, n)
	}

	return nil
}

// sendWithRecover sends a notification and recovers from sender panics.
func (d *Dispatcher) sendWithRecover(ctx context.Context, sender Sender, n model.Notification) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("panic in notification sender",
				"sender", sender.Name(),
				"panic", v,
			)
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := sender.Send(sendCtx, n); err != nil {
		slog.Error("notification dispatch failed",
			"sender", sender.Name(),
			"dedupe_key", n.DedupeKey,
			"error", err,
		)
	}
}
