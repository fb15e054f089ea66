// Package httphandler is the HTTP driving adapter that serves the REST API.
// It stands in for the original client UI: every user action it exposes
// (add, delete, acknowledge, toggle, reorder, refresh) maps to one store or
// service operation.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shalaykin1/forknews/internal/application"
	"github.com/shalaykin1/forknews/internal/domain/model"
	"github.com/shalaykin1/forknews/internal/domain/port/driven"
)

// Refresher accepts a request for an immediate poll cycle. It reports false
// when the request was folded into an already-pending cycle.
type Refresher interface {
	TriggerNow() bool
}

// Handler serves the REST API.
type Handler struct {
	repoStore driven.RepoStore
	updates   *application.UpdateService
	refresher Refresher
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	repoStore driven.RepoStore,
	updates *application.UpdateService,
	refresher Refresher,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		repoStore: repoStore,
		updates:   updates,
		refresher: refresher,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/repositories", h.ListRepositories)
	mux.HandleFunc("POST /api/v1/repositories", h.AddRepository)
	mux.HandleFunc("DELETE /api/v1/repositories/{id}", h.RemoveRepository)
	mux.HandleFunc("POST /api/v1/repositories/{id}/acknowledge", h.AcknowledgeRepository)
	mux.HandleFunc("PUT /api/v1/repositories/{id}/notifications", h.SetNotifications)
	mux.HandleFunc("PUT /api/v1/repositories/{id}/order", h.SetOrder)
	mux.HandleFunc("POST /api/v1/refresh", h.Refresh)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListRepositories returns all tracked repositories in display order.
func (h *Handler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := h.repoStore.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list repositories", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RepositoryResponse, 0, len(repos))
	for _, repo := range repos {
		resp = append(resp, toRepositoryResponse(repo))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddRepository adds a repository to the watch list and requests an
// immediate poll so its baseline release is captured promptly.
func (h *Handler) AddRepository(w http.ResponseWriter, r *http.Request) {
	var req AddRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	repo, err := repoFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	repo.AddedAt = time.Now().UTC()

	id, err := h.repoStore.Add(r.Context(), repo)
	if err != nil {
		if errors.Is(err, driven.ErrRepoAlreadyExists) {
			writeError(w, http.StatusConflict, "repository already tracked")
			return
		}
		h.logger.Error("failed to add repository", "repo", repo.FullName(), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	repo.ID = id

	if h.refresher != nil {
		h.refresher.TriggerNow()
	}

	writeJSON(w, http.StatusCreated, toRepositoryResponse(repo))
}

// RemoveRepository deletes a tracked repository.
func (h *Handler) RemoveRepository(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.repoStore.Remove(r.Context(), id); err != nil {
		if errors.Is(err, driven.ErrRepoNotFound) {
			writeError(w, http.StatusNotFound, "repository not found")
			return
		}
		h.logger.Error("failed to remove repository", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AcknowledgeRepository clears the unseen-update flag, marking the release
// as viewed.
func (h *Handler) AcknowledgeRepository(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.updates.Acknowledge(r.Context(), id); err != nil {
		if errors.Is(err, driven.ErrRepoNotFound) {
			writeError(w, http.StatusNotFound, "repository not found")
			return
		}
		h.logger.Error("failed to acknowledge repository", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetNotifications toggles whether the repository participates in polling.
func (h *Handler) SetNotifications(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req SetNotificationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.repoStore.SetNotificationsEnabled(r.Context(), id, req.Enabled); err != nil {
		if errors.Is(err, driven.ErrRepoNotFound) {
			writeError(w, http.StatusNotFound, "repository not found")
			return
		}
		h.logger.Error("failed to toggle notifications", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetOrder updates the presentation order of a repository.
func (h *Handler) SetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req SetOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.repoStore.SetDisplayOrder(r.Context(), id, req.Order); err != nil {
		if errors.Is(err, driven.ErrRepoNotFound) {
			writeError(w, http.StatusNotFound, "repository not found")
			return
		}
		h.logger.Error("failed to set display order", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Refresh requests an immediate poll cycle. Returns 202 either way; the
// body reports whether the request was accepted or superseded by a pending
// one.
func (h *Handler) Refresh(w http.ResponseWriter, _ *http.Request) {
	if h.refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "polling is not running")
		return
	}

	accepted := h.refresher.TriggerNow()
	writeJSON(w, http.StatusAccepted, RefreshResponse{Accepted: accepted})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// pathID parses the {id} path segment, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid repository id")
		return 0, false
	}
	return id, true
}

// repoFromRequest builds a TrackedRepository from an add request, accepting
// either a GitHub URL or an explicit owner/name pair.
func repoFromRequest(req AddRepositoryRequest) (model.TrackedRepository, error) {
	if req.URL != "" {
		return application.ParseRepositoryURL(req.URL)
	}
	return application.ParseRepositoryURL("https://github.com/" + req.Owner + "/" + req.Name)
}
