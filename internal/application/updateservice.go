// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shalaykin1/forknews/internal/domain/model"
	"github.com/shalaykin1/forknews/internal/domain/port/driven"
)

// UpdateService is the diff and state transition engine. Each tracked
// repository moves through three states: never polled (no stored tag), seen
// and current, and seen with an unacknowledged update. The stored tag is the
// sole identity check; titles and URLs are refreshed but never compared.
type UpdateService struct {
	source    driven.ReleaseSource
	repoStore driven.RepoStore
}

// NewUpdateService creates an UpdateService with its dependencies.
func NewUpdateService(source driven.ReleaseSource, repoStore driven.RepoStore) *UpdateService {
	return &UpdateService{
		source:    source,
		repoStore: repoStore,
	}
}

// CheckRepository polls a single repository and applies the state
// transition. It re-reads the record from the store at decision time rather
// than trusting a snapshot passed in by the caller: an acknowledge or a
// second trigger path may have committed since the cycle loaded its list,
// and comparing against stale state would lose that update.
//
// On a fetch failure the check timestamp is still recorded, the stored
// release state is untouched, and the fetch error is returned for the
// orchestrator to classify.
func (s *UpdateService) CheckRepository(ctx context.Context, id int64) (model.Decision, *model.TrackedRepository, error) {
	repo, err := s.repoStore.GetByID(ctx, id)
	if err != nil {
		return model.NoNotify, nil, fmt.Errorf("load repository %d: %w", id, err)
	}
	if repo == nil {
		return model.NoNotify, nil, fmt.Errorf("repository %d: %w", id, driven.ErrRepoNotFound)
	}

	now := time.Now().UTC()

	rel, err := s.source.Fetch(ctx, repo.Owner, repo.Name)
	if err != nil {
		if touchErr := s.repoStore.TouchChecked(ctx, id, now); touchErr != nil {
			return model.NoNotify, nil, fmt.Errorf("record failed check for %s: %w", repo.FullName(), touchErr)
		}
		return model.NoNotify, nil, err
	}

	decision, err := s.apply(ctx, repo, *rel, now)
	if err != nil {
		return model.NoNotify, nil, err
	}

	updated, err := s.repoStore.GetByID(ctx, id)
	if err != nil {
		return model.NoNotify, nil, fmt.Errorf("reload repository %d: %w", id, err)
	}

	return decision, updated, nil
}

// apply is the transition function: given the freshly read record and the
// fetched descriptor, it commits the new record state and returns the
// notification decision.
func (s *UpdateService) apply(ctx context.Context, repo *model.TrackedRepository, rel model.Release, now time.Time) (model.Decision, error) {
	switch {
	case !repo.Seen():
		// First observation is a baseline, not an event.
		if err := s.repoStore.UpdateRelease(ctx, repo.ID, rel, now, false); err != nil {
			return model.NoNotify, fmt.Errorf("store first release for %s: %w", repo.FullName(), err)
		}
		return model.NoNotify, nil

	case *repo.LatestReleaseTag == rel.Tag:
		// Same tag: refresh descriptive fields in case the title or
		// prerelease flag changed upstream, leave the unseen flag alone.
		if err := s.repoStore.RefreshRelease(ctx, repo.ID, rel, now); err != nil {
			return model.NoNotify, fmt.Errorf("refresh release for %s: %w", repo.FullName(), err)
		}
		return model.NoNotify, nil

	default:
		if err := s.repoStore.UpdateRelease(ctx, repo.ID, rel, now, true); err != nil {
			return model.NoNotify, fmt.Errorf("store new release for %s: %w", repo.FullName(), err)
		}
		return model.Notify, nil
	}
}

// Acknowledge clears the unseen flag for a repository, typically because the
// user opened the release link. It is independent of polling: it may race a
// concurrent poll and whichever write commits last wins, which is acceptable
// because the user already saw the information that triggered the call.
func (s *UpdateService) Acknowledge(ctx context.Context, id int64) error {
	return s.repoStore.Acknowledge(ctx, id)
}
