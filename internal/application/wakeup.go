package application

import (
	"errors"
	"math/rand"
	"time"
)

// ErrExactSchedulingUnavailable is returned by ExactWakeup when the
// high-precision timer capability is not granted. The scheduler treats it as
// a signal to degrade, never as a cycle failure.
var ErrExactSchedulingUnavailable = errors.New("exact scheduling unavailable")

// WakeupStrategy arms a one-shot timer that fires near the given absolute
// time. Strategies are ranked; the scheduler probes them in order at every
// re-arm and takes the first that succeeds. A strategy is one-shot by
// contract: firing does not re-arm it.
type WakeupStrategy interface {
	// Name identifies the strategy in logs and diagnostics.
	Name() string

	// Arm schedules fire to run close to at. It returns a cancel function
	// on success. Arm must not block.
	Arm(at time.Time, fire func()) (cancel func(), err error)
}

// ExactWakeup fires at the requested absolute time. It models the
// high-precision wake-up path that needs an elevated capability; when the
// capability is withheld Arm fails and the scheduler falls through to the
// next strategy.
type ExactWakeup struct {
	Enabled bool
}

// Name returns the strategy name.
func (e *ExactWakeup) Name() string { return "exact" }

// Arm schedules fire at the absolute time, or fails when the capability is
// not granted.
func (e *ExactWakeup) Arm(at time.Time, fire func()) (func(), error) {
	if !e.Enabled {
		return nil, ErrExactSchedulingUnavailable
	}

	t := time.AfterFunc(time.Until(at), fire)
	return func() { t.Stop() }, nil
}

// InexactWakeup fires within a tolerance window after the requested time.
// It needs no capability and is the graceful-degradation tier: precision is
// traded for availability. The window is randomized so a fleet of watchers
// does not thundering-herd the API.
type InexactWakeup struct {
	// Tolerance is the maximum extra delay added past the requested time.
	Tolerance time.Duration
}

// Name returns the strategy name.
func (i *InexactWakeup) Name() string { return "inexact" }

// Arm schedules fire within [at, at+Tolerance].
func (i *InexactWakeup) Arm(at time.Time, fire func()) (func(), error) {
	delay := time.Until(at)
	if i.Tolerance > 0 {
		delay += time.Duration(rand.Int63n(int64(i.Tolerance)))
	}

	t := time.AfterFunc(delay, fire)
	return func() { t.Stop() }, nil
}
