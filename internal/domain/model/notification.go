package model

// Notification is a user-visible alert about a new release. DedupeKey is
// derived from the repository id so repeated alerts for the same repository
// replace each other at the sink instead of stacking.
type Notification struct {
	DedupeKey string
	Title     string
	Body      string
	URL       string
}
