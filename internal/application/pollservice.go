package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shalaykin1/forknews/internal/domain/model"
	"github.com/shalaykin1/forknews/internal/domain/port/driven"
)

// PollService is the poll cycle orchestrator: one call to RunCycle walks
// every notification-enabled repository, invokes the diff engine per
// repository, and forwards positive decisions to the notifier.
type PollService struct {
	updates       *UpdateService
	repoStore     driven.RepoStore
	notifier      driven.Notifier
	fetchTimeout  time.Duration
	maxConcurrent int
}

// NewPollService creates a PollService with all required dependencies.
// fetchTimeout bounds each per-repository check; maxConcurrent bounds how
// many checks run at once.
func NewPollService(
	updates *UpdateService,
	repoStore driven.RepoStore,
	notifier driven.Notifier,
	fetchTimeout time.Duration,
	maxConcurrent int,
) *PollService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &PollService{
		updates:       updates,
		repoStore:     repoStore,
		notifier:      notifier,
		fetchTimeout:  fetchTimeout,
		maxConcurrent: maxConcurrent,
	}
}

// RunCycle performs one full poll over all enabled repositories and returns
// a report of what happened. Per-repository failures are contained: a slow
// or broken repository never starves the others. Only a store failure
// before iteration starts is a whole-cycle error; the scheduler treats that
// as retryable.
func (s *PollService) RunCycle(ctx context.Context) (model.CycleReport, error) {
	start := time.Now()

	repos, err := s.repoStore.ListEnabled(ctx)
	if err != nil {
		return model.CycleReport{}, fmt.Errorf("load enabled repositories: %w", err)
	}

	var updated, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, repo := range repos {
		g.Go(func() error {
			switch s.checkOne(gctx, repo) {
			case checkedUpdated:
				updated.Add(1)
			case checkedFailed:
				failed.Add(1)
			}
			return nil
		})
	}

	// Worker funcs never return errors; the group exists for its limit and
	// context plumbing.
	_ = g.Wait()

	report := model.CycleReport{
		Checked: len(repos),
		Updated: int(updated.Load()),
		Failed:  int(failed.Load()),
	}

	slog.Info("poll cycle complete",
		"checked", report.Checked,
		"updated", report.Updated,
		"failed", report.Failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return report, nil
}

// checkOutcome classifies what happened to a single repository in a cycle.
type checkOutcome int

const (
	checkedUnchanged checkOutcome = iota
	checkedUpdated
	checkedFailed
)

// checkOne runs the diff engine for a single repository under its own
// timeout and dispatches a notification when the decision calls for one.
func (s *PollService) checkOne(ctx context.Context, repo model.TrackedRepository) checkOutcome {
	checkCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	decision, updated, err := s.updates.CheckRepository(checkCtx, repo.ID)
	if err != nil {
		logCheckFailure(repo, err)
		return checkedFailed
	}

	if decision != model.Notify || updated == nil {
		return checkedUnchanged
	}

	n := buildNotification(*updated)
	if err := s.notifier.Notify(ctx, n); err != nil {
		// Dispatch failure never fails the cycle; the unseen flag is
		// already persisted and the list endpoint still surfaces the update.
		slog.Error("notification dispatch failed",
			"repo", repo.FullName(),
			"error", err,
		)
	}

	return checkedUpdated
}

// logCheckFailure logs a per-repository failure at a level matching its
// class: transient errors are routine, a vanished repository is worth a
// warning for the user to resolve manually.
func logCheckFailure(repo model.TrackedRepository, err error) {
	switch {
	case errors.Is(err, driven.ErrReleaseNotFound):
		slog.Warn("repository missing upstream, keeping record",
			"repo", repo.FullName(),
			"error", err,
		)
	case driven.IsTransient(err):
		slog.Info("repository check failed, will retry next cycle",
			"repo", repo.FullName(),
			"error", err,
		)
	default:
		slog.Error("repository check failed",
			"repo", repo.FullName(),
			"error", err,
		)
	}
}

// buildNotification renders the alert for a freshly detected release.
func buildNotification(repo model.TrackedRepository) model.Notification {
	tag := ""
	if repo.LatestReleaseTag != nil {
		tag = *repo.LatestReleaseTag
	}
	url := repo.URL
	if repo.LatestReleaseURL != nil {
		url = *repo.LatestReleaseURL
	}

	return model.Notification{
		DedupeKey: fmt.Sprintf("repo-%d", repo.ID),
		Title:     fmt.Sprintf("%s: new release", repo.Name),
		Body:      fmt.Sprintf("Version %s is available", tag),
		URL:       url,
	}
}
