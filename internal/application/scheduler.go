package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/shalaykin1/forknews/internal/domain/model"
)

// backstopFloor is the minimum interval for the durable periodic job tier.
// The fine-grained cadence below this floor is the timer strategies' job;
// the periodic job only guarantees the watcher never stops entirely.
const backstopFloor = 15 * time.Minute

// TriggerSource identifies which path requested a poll cycle.
type TriggerSource string

const (
	// TriggerTimer is a firing of the armed one-shot wake-up.
	TriggerTimer TriggerSource = "timer"

	// TriggerJob is a firing of the periodic backstop job.
	TriggerJob TriggerSource = "job"

	// TriggerManual is an explicit refresh request from the API.
	TriggerManual TriggerSource = "manual"
)

// CycleTrigger is the message every trigger path posts to request a cycle.
// The handler is the same regardless of how the token was produced.
type CycleTrigger struct {
	Token  string
	Source TriggerSource
	At     time.Time
}

// CycleRunner runs one poll cycle to completion.
type CycleRunner interface {
	RunCycle(ctx context.Context) (model.CycleReport, error)
}

// Scheduler keeps the poll cycle running at the configured cadence. It
// layers three trigger tiers: a ranked chain of one-shot wake-up strategies
// re-armed after every cycle, a gocron periodic job as the durable backstop,
// and manual refresh requests. All three funnel into one trigger channel so
// cycle behavior is identical regardless of source, and a pending trigger
// supersedes new ones so cycles never stack.
type Scheduler struct {
	runner     CycleRunner
	strategies []WakeupStrategy
	interval   time.Duration

	cron      gocron.Scheduler
	triggerCh chan CycleTrigger

	mu          sync.Mutex
	cancelTimer func()
	armedWith   string
}

// NewScheduler creates a Scheduler. Strategies are consulted in the given
// order at every re-arm; at least one must be infallible (InexactWakeup) or
// polling stalls until the backstop job fires.
func NewScheduler(runner CycleRunner, interval time.Duration, strategies ...WakeupStrategy) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create backstop scheduler: %w", err)
	}

	s := &Scheduler{
		runner:     runner,
		strategies: strategies,
		interval:   interval,
		cron:       cron,
		triggerCh:  make(chan CycleTrigger, 1),
	}

	backstop := interval
	if backstop < backstopFloor {
		backstop = backstopFloor
	}

	_, err = cron.NewJob(
		gocron.DurationJob(backstop),
		gocron.NewTask(func() { s.post(TriggerJob) }),
		gocron.WithName("poll-backstop"),
	)
	if err != nil {
		return nil, fmt.Errorf("create backstop job: %w", err)
	}

	return s, nil
}

// Start runs the scheduler loop until ctx is canceled. It fires an
// immediate first cycle, then alternates run-cycle and re-arm forever.
// Start blocks.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.post(TriggerManual)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			slog.Info("scheduler stopped")
			return

		case trig := <-s.triggerCh:
			s.runOnce(ctx, trig)
			s.rearm()
		}
	}
}

// TriggerNow requests an immediate cycle, returning false when a cycle
// request is already pending. The pending request covers this one: the
// upcoming cycle reads fresh state, so dropping the duplicate loses nothing.
func (s *Scheduler) TriggerNow() bool {
	return s.post(TriggerManual)
}

// post enqueues a trigger unless one is already pending.
func (s *Scheduler) post(source TriggerSource) bool {
	trig := CycleTrigger{
		Token:  uuid.NewString(),
		Source: source,
		At:     time.Now().UTC(),
	}

	select {
	case s.triggerCh <- trig:
		return true
	default:
		slog.Debug("cycle trigger superseded by pending request",
			"source", source,
		)
		return false
	}
}

// runOnce executes one cycle for a trigger. A whole-cycle failure (store
// unreachable) is logged and left for the next trigger tier to retry; it
// never crashes the loop.
func (s *Scheduler) runOnce(ctx context.Context, trig CycleTrigger) {
	slog.Info("poll cycle starting",
		"token", trig.Token,
		"source", trig.Source,
	)

	report, err := s.runner.RunCycle(ctx)
	if err != nil {
		slog.Error("poll cycle failed, will retry on next trigger",
			"token", trig.Token,
			"source", trig.Source,
			"error", err,
		)
		return
	}

	slog.Debug("poll cycle report",
		"token", trig.Token,
		"checked", report.Checked,
		"updated", report.Updated,
		"failed", report.Failed,
	)
}

// rearm cancels any armed timer and arms the next one-shot wake-up via the
// first strategy that accepts it. The timer is re-armed after every cycle,
// including job-triggered ones, so the fine cadence never silently decays to
// the backstop's coarser period. Arm failure on one strategy falls through
// to the next; degradation is logged, never fatal.
func (s *Scheduler) rearm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}

	at := time.Now().Add(s.interval)

	for rank, strategy := range s.strategies {
		cancel, err := strategy.Arm(at, func() { s.post(TriggerTimer) })
		if err != nil {
			slog.Warn("wake-up strategy unavailable, degrading",
				"strategy", strategy.Name(),
				"error", err,
			)
			continue
		}

		if rank > 0 && s.armedWith != strategy.Name() {
			slog.Info("scheduling precision degraded",
				"strategy", strategy.Name(),
				"interval", s.interval,
			)
		}

		s.cancelTimer = cancel
		s.armedWith = strategy.Name()
		return
	}

	// Every strategy refused. The backstop job still fires, so polling
	// continues at reduced cadence.
	s.armedWith = ""
	slog.Error("no wake-up strategy could arm, relying on backstop job")
}

// ArmedWith reports which strategy currently holds the armed timer, for
// diagnostics. Empty means only the backstop job is active.
func (s *Scheduler) ArmedWith() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armedWith
}

// shutdown cancels the armed timer and stops the backstop job so no
// orphaned wake-ups remain.
func (s *Scheduler) shutdown() {
	s.mu.Lock()
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}
	s.mu.Unlock()

	if err := s.cron.Shutdown(); err != nil {
		slog.Error("backstop scheduler shutdown failed", "error", err)
	}
}
