package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shalaykin1/forknews/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it with the given status code. If
// marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// RepositoryResponse is the JSON representation of a tracked repository.
type RepositoryResponse struct {
	ID                   int64  `json:"id"`
	Owner                string `json:"owner"`
	Name                 string `json:"name"`
	URL                  string `json:"url"`
	AddedAt              string `json:"added_at"`
	LatestReleaseTag     string `json:"latest_release_tag,omitempty"`
	LatestReleaseURL     string `json:"latest_release_url,omitempty"`
	LatestReleaseTitle   string `json:"latest_release_title,omitempty"`
	PublishedAt          string `json:"published_at,omitempty"`
	IsPrerelease         bool   `json:"is_prerelease"`
	HasUnseenUpdate      bool   `json:"has_unseen_update"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	DisplayOrder         int    `json:"display_order"`
	LastCheckedAt        string `json:"last_checked_at,omitempty"`
}

// AddRepositoryRequest is the body for POST /repositories. Either a GitHub
// URL or an explicit owner/name pair is accepted.
type AddRepositoryRequest struct {
	URL   string `json:"url,omitempty"`
	Owner string `json:"owner,omitempty"`
	Name  string `json:"name,omitempty"`
}

// SetNotificationsRequest is the body for the notifications toggle.
type SetNotificationsRequest struct {
	Enabled bool `json:"enabled"`
}

// SetOrderRequest is the body for the display-order update.
type SetOrderRequest struct {
	Order int `json:"order"`
}

// RefreshResponse reports whether a manual refresh was accepted or folded
// into an already-pending cycle.
type RefreshResponse struct {
	Accepted bool `json:"accepted"`
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toRepositoryResponse maps a domain record to its JSON form.
func toRepositoryResponse(repo model.TrackedRepository) RepositoryResponse {
	resp := RepositoryResponse{
		ID:                   repo.ID,
		Owner:                repo.Owner,
		Name:                 repo.Name,
		URL:                  repo.URL,
		AddedAt:              repo.AddedAt.UTC().Format(time.RFC3339),
		IsPrerelease:         repo.IsPrerelease,
		HasUnseenUpdate:      repo.HasUnseenUpdate,
		NotificationsEnabled: repo.NotificationsEnabled,
		DisplayOrder:         repo.DisplayOrder,
	}

	if repo.LatestReleaseTag != nil {
		resp.LatestReleaseTag = *repo.LatestReleaseTag
	}
	if repo.LatestReleaseURL != nil {
		resp.LatestReleaseURL = *repo.LatestReleaseURL
	}
	if repo.LatestReleaseTitle != nil {
		resp.LatestReleaseTitle = *repo.LatestReleaseTitle
	}
	if repo.PublishedAt != nil {
		resp.PublishedAt = repo.PublishedAt.UTC().Format(time.RFC3339)
	}
	if !repo.LastCheckedAt.IsZero() {
		resp.LastCheckedAt = repo.LastCheckedAt.UTC().Format(time.RFC3339)
	}

	return resp
}
