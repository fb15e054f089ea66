// Package model contains the domain types shared by all adapters and services.
package model

import "time"

// Release is a snapshot of a repository's newest release as fetched from the
// remote source. Tag identity is the only field the diff engine compares.
type Release struct {
	Tag          string
	Title        string
	URL          string
	PublishedAt  time.Time
	IsPrerelease bool
}

// Decision is the diff engine's verdict for one poll of one repository.
type Decision int

const (
	// NoNotify means no user-visible event: first observation, or the tag
	// is unchanged.
	NoNotify Decision = iota

	// Notify means a tag change was detected and stored; the orchestrator
	// should dispatch a notification.
	Notify
)

// String returns a log-friendly name for the decision.
func (d Decision) String() string {
	if d == Notify {
		return "notify"
	}
	return "no-notify"
}

// CycleReport summarizes one full poll cycle over all enabled repositories.
type CycleReport struct {
	Checked int
	Updated int
	Failed  int
}
