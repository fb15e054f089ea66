package model

import "time"

// TrackedRepository is a GitHub repository watched by ForkNews. The release
// fields mirror the most recently observed release; they are nil until the
// first successful poll and never return to nil afterwards.
type TrackedRepository struct {
	ID      int64
	Owner   string
	Name    string
	URL     string
	AddedAt time.Time

	LatestReleaseTag   *string
	LatestReleaseURL   *string
	LatestReleaseTitle *string
	PublishedAt        *time.Time
	IsPrerelease       bool

	// HasUnseenUpdate is true exactly when the last poll observed a tag
	// change the user has not acknowledged yet.
	HasUnseenUpdate      bool
	NotificationsEnabled bool
	DisplayOrder         int
	LastCheckedAt        time.Time
}

// FullName returns the "owner/name" source key.
func (r TrackedRepository) FullName() string {
	return r.Owner + "/" + r.Name
}

// Seen reports whether the repository has ever been successfully polled.
func (r TrackedRepository) Seen() bool {
	return r.LatestReleaseTag != nil
}
