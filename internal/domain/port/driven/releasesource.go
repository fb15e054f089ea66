// Package driven declares the outbound ports the application services
// depend on, together with the sentinel errors adapters map onto.
package driven

import (
	"context"
	"errors"
	"fmt"

	"github.com/shalaykin1/forknews/internal/domain/model"
)

// ErrReleaseNotFound indicates the repository is gone upstream (deleted,
// renamed, or has no visible releases endpoint). The record is kept and left
// for the user to resolve; it is never auto-deleted.
var ErrReleaseNotFound = errors.New("release not found")

// TransientError wraps a retryable fetch failure (network, rate limit,
// auth). The orchestrator retries the repository on the next cycle.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient fetch error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ReleaseSource is the driven port for fetching the newest release of a
// repository from a remote hosting service. Implementations are pure I/O:
// they never touch the record store.
//
// Fetch returns ErrReleaseNotFound when the repository is missing upstream
// and a TransientError for anything worth retrying next cycle.
type ReleaseSource interface {
	Fetch(ctx context.Context, owner, name string) (*model.Release, error)
}
