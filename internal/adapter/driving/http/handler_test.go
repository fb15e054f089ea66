package httphandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/shalaykin1/forknews/internal/adapter/driving/http"
	"github.com/shalaykin1/forknews/internal/application"
	"github.com/shalaykin1/forknews/internal/domain/model"
	"github.com/shalaykin1/forknews/internal/domain/port/driven"
)

// fakeStore is a map-backed RepoStore for handler tests.
type fakeStore struct {
	mu     sync.Mutex
	repos  map[int64]*model.TrackedRepository
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{repos: make(map[int64]*model.TrackedRepository)}
}

func (f *fakeStore) Add(_ context.Context, repo model.TrackedRepository) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.repos {
		if existing.Owner == repo.Owner && existing.Name == repo.Name {
			return 0, driven.ErrRepoAlreadyExists
		}
	}

	f.nextID++
	repo.ID = f.nextID
	f.repos[repo.ID] = &repo
	return repo.ID, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*model.TrackedRepository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	repo, ok := f.repos[id]
	if !ok {
		return nil, nil
	}
	copied := *repo
	return &copied, nil
}

func (f *fakeStore) GetByFullName(_ context.Context, owner, name string) (*model.TrackedRepository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, repo := range f.repos {
		if repo.Owner == owner && repo.Name == name {
			copied := *repo
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]model.TrackedRepository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.TrackedRepository
	for id := int64(1); id <= f.nextID; id++ {
		if repo, ok := f.repos[id]; ok {
			out = append(out, *repo)
		}
	}
	return out, nil
}

func (f *fakeStore) ListEnabled(ctx context.Context) ([]model.TrackedRepository, error) {
	return f.ListAll(ctx)
}

func (f *fakeStore) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.repos), nil
}

func (f *fakeStore) UpdateRelease(_ context.Context, id int64, rel model.Release, checkedAt time.Time, hasUnseen bool) error {
	return f.mutate(id, func(repo *model.TrackedRepository) {
		repo.LatestReleaseTag = &rel.Tag
		repo.HasUnseenUpdate = hasUnseen
		repo.LastCheckedAt = checkedAt
	})
}

func (f *fakeStore) RefreshRelease(_ context.Context, id int64, rel model.Release, checkedAt time.Time) error {
	return f.mutate(id, func(repo *model.TrackedRepository) {
		repo.LatestReleaseTag = &rel.Tag
		repo.LastCheckedAt = checkedAt
	})
}

func (f *fakeStore) TouchChecked(_ context.Context, id int64, checkedAt time.Time) error {
	return f.mutate(id, func(repo *model.TrackedRepository) { repo.LastCheckedAt = checkedAt })
}

func (f *fakeStore) Acknowledge(_ context.Context, id int64) error {
	return f.mutate(id, func(repo *model.TrackedRepository) { repo.HasUnseenUpdate = false })
}

func (f *fakeStore) SetNotificationsEnabled(_ context.Context, id int64, enabled bool) error {
	return f.mutate(id, func(repo *model.TrackedRepository) { repo.NotificationsEnabled = enabled })
}

func (f *fakeStore) SetDisplayOrder(_ context.Context, id int64, order int) error {
	return f.mutate(id, func(repo *model.TrackedRepository) { repo.DisplayOrder = order })
}

func (f *fakeStore) Remove(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.repos[id]; !ok {
		return driven.ErrRepoNotFound
	}
	delete(f.repos, id)
	return nil
}

func (f *fakeStore) mutate(id int64, fn func(*model.TrackedRepository)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	repo, ok := f.repos[id]
	if !ok {
		return driven.ErrRepoNotFound
	}
	fn(repo)
	return nil
}

// noSource satisfies the release source port; handler tests never fetch.
type noSource struct{}

func (noSource) Fetch(_ context.Context, owner, name string) (*model.Release, error) {
	return nil, fmt.Errorf("fetch %s/%s: %w", owner, name, driven.ErrReleaseNotFound)
}

// stubRefresher records trigger requests.
type stubRefresher struct {
	triggered int
	accepted  bool
}

func (s *stubRefresher) TriggerNow() bool {
	s.triggered++
	return s.accepted
}

func newTestHandler(store *fakeStore, refresher httphandler.Refresher) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	updates := application.NewUpdateService(noSource{}, store)
	h := httphandler.NewHandler(store, updates, refresher, logger)
	return httphandler.NewServeMux(h, logger)
}

func addTracked(t *testing.T, store *fakeStore, owner, name string) int64 {
	t.Helper()

	id, err := store.Add(context.Background(), model.TrackedRepository{
		Owner:                owner,
		Name:                 name,
		URL:                  "https://github.com/" + owner + "/" + name,
		AddedAt:              time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		NotificationsEnabled: true,
	})
	require.NoError(t, err)
	return id
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestListRepositories(t *testing.T) {
	store := newFakeStore()
	addTracked(t, store, "alice", "alpha")
	addTracked(t, store, "bob", "beta")

	handler := newTestHandler(store, &stubRefresher{})

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/repositories", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []httphandler.RepositoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)

	assert.Equal(t, "alice", resp[0].Owner)
	assert.Equal(t, "bob", resp[1].Owner)
}

func TestListRepositories_Empty(t *testing.T) {
	handler := newTestHandler(newFakeStore(), &stubRefresher{})

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/repositories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestAddRepository_ByURL(t *testing.T) {
	store := newFakeStore()
	refresher := &stubRefresher{accepted: true}
	handler := newTestHandler(store, refresher)

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/repositories",
		httphandler.AddRepositoryRequest{URL: "https://github.com/octocat/hello-world"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp httphandler.RepositoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "octocat", resp.Owner)
	assert.Equal(t, "hello-world", resp.Name)
	assert.True(t, resp.NotificationsEnabled)
	assert.Positive(t, resp.ID)

	assert.Equal(t, 1, refresher.triggered, "adding should request a prompt poll")
}

func TestAddRepository_ByOwnerName(t *testing.T) {
	store := newFakeStore()
	handler := newTestHandler(store, &stubRefresher{})

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/repositories",
		httphandler.AddRepositoryRequest{Owner: "octocat", Name: "hello-world"})
	require.Equal(t, http.StatusCreated, rec.Code)

	got, err := store.GetByFullName(context.Background(), "octocat", "hello-world")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://github.com/octocat/hello-world", got.URL)
}

func TestAddRepository_InvalidURL(t *testing.T) {
	handler := newTestHandler(newFakeStore(), &stubRefresher{})

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/repositories",
		httphandler.AddRepositoryRequest{URL: "https://example.com/not/github"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddRepository_Duplicate(t *testing.T) {
	store := newFakeStore()
	addTracked(t, store, "octocat", "hello-world")
	handler := newTestHandler(store, &stubRefresher{})

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/repositories",
		httphandler.AddRepositoryRequest{URL: "https://github.com/octocat/hello-world"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRemoveRepository(t *testing.T) {
	store := newFakeStore()
	id := addTracked(t, store, "octocat", "hello-world")
	handler := newTestHandler(store, &stubRefresher{})

	rec := doRequest(t, handler, http.MethodDelete, fmt.Sprintf("/api/v1/repositories/%d", id), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRemoveRepository_NotFound(t *testing.T) {
	handler := newTestHandler(newFakeStore(), &stubRefresher{})

	rec := doRequest(t, handler, http.MethodDelete, "/api/v1/repositories/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveRepository_InvalidID(t *testing.T) {
	handler := newTestHandler(newFakeStore(), &stubRefresher{})

	rec := doRequest(t, handler, http.MethodDelete, "/api/v1/repositories/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcknowledgeRepository(t *testing.T) {
	store := newFakeStore()
	id := addTracked(t, store, "octocat", "hello-world")
	require.NoError(t, store.mutate(id, func(repo *model.TrackedRepository) {
		repo.HasUnseenUpdate = true
	}))
	handler := newTestHandler(store, &stubRefresher{})

	rec := doRequest(t, handler, http.MethodPost, fmt.Sprintf("/api/v1/repositories/%d/acknowledge", id), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	got, err := store.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, got.HasUnseenUpdate)
}

func TestAcknowledgeRepository_NotFound(t *testing.T) {
	handler := newTestHandler(newFakeStore(), &stubRefresher{})

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/repositories/999/acknowledge", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetNotifications(t *testing.T) {
	store := newFakeStore()
	id := addTracked(t, store, "octocat", "hello-world")
	handler := newTestHandler(store, &stubRefresher{})

	rec := doRequest(t, handler, http.MethodPut, fmt.Sprintf("/api/v1/repositories/%d/notifications", id),
		httphandler.SetNotificationsRequest{Enabled: false})
	require.Equal(t, http.StatusNoContent, rec.Code)

	got, err := store.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, got.NotificationsEnabled)
}

func TestSetOrder(t *testing.T) {
	store := newFakeStore()
	id := addTracked(t, store, "octocat", "hello-world")
	handler := newTestHandler(store, &stubRefresher{})

	rec := doRequest(t, handler, http.MethodPut, fmt.Sprintf("/api/v1/repositories/%d/order", id),
		httphandler.SetOrderRequest{Order: 3})
	require.Equal(t, http.StatusNoContent, rec.Code)

	got, err := store.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 3, got.DisplayOrder)
}

func TestRefresh(t *testing.T) {
	refresher := &stubRefresher{accepted: true}
	handler := newTestHandler(newFakeStore(), refresher)

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/refresh", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp httphandler.RefreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
	assert.Equal(t, 1, refresher.triggered)
}

func TestRefresh_Superseded(t *testing.T) {
	handler := newTestHandler(newFakeStore(), &stubRefresher{accepted: false})

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/refresh", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp httphandler.RefreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Accepted, "a pending cycle covers the request")
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(newFakeStore(), &stubRefresher{})

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}
