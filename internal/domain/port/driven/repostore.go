package driven

import (
	"context"
	"errors"
	"time"

	"github.com/shalaykin1/forknews/internal/domain/model"
)

// Sentinel errors returned by RepoStore implementations.
var (
	// ErrRepoNotFound indicates the requested repository does not exist.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrRepoAlreadyExists indicates a repository with the same owner/name
	// is already tracked.
	ErrRepoAlreadyExists = errors.New("repository already exists")
)

// RepoStore defines the driven port for tracked-repository persistence.
// It is the only shared mutable resource in the system; every mutation is
// scoped to a single row and commits atomically.
//
// UpdateRelease and RefreshRelease both store the release descriptor and the
// check timestamp; they differ in what happens to the unseen flag.
// UpdateRelease sets it explicitly (false on first observation, true on a
// detected change), RefreshRelease leaves it untouched so an unacknowledged
// update survives a same-tag poll. TouchChecked records a poll attempt that
// produced no usable descriptor.
type RepoStore interface {
	Add(ctx context.Context, repo model.TrackedRepository) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.TrackedRepository, error)
	GetByFullName(ctx context.Context, owner, name string) (*model.TrackedRepository, error)
	ListAll(ctx context.Context) ([]model.TrackedRepository, error)
	ListEnabled(ctx context.Context) ([]model.TrackedRepository, error)
	Count(ctx context.Context) (int, error)

	UpdateRelease(ctx context.Context, id int64, rel model.Release, checkedAt time.Time, hasUnseen bool) error
	RefreshRelease(ctx context.Context, id int64, rel model.Release, checkedAt time.Time) error
	TouchChecked(ctx context.Context, id int64, checkedAt time.Time) error

	Acknowledge(ctx context.Context, id int64) error
	SetNotificationsEnabled(ctx context.Context, id int64, enabled bool) error
	SetDisplayOrder(ctx context.Context, id int64, order int) error
	Remove(ctx context.Context, id int64) error
}
