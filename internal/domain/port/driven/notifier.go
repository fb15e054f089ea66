package driven

import (
	"context"

	"github.com/shalaykin1/forknews/internal/domain/model"
)

// Notifier is the driven port for raising user-visible release alerts.
// Implementations must be safe to call when the underlying sink is
// unavailable or unconfigured: a failed dispatch is an error to log, never
// a reason to fail a poll cycle.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}
