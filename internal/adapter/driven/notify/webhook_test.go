package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shalaykin1/forknews/internal/adapter/driven/notify"
	"github.com/shalaykin1/forknews/internal/domain/model"
)

func testNotification() model.Notification {
	return model.Notification{
		DedupeKey: "repo-42",
		Title:     "hello: new release",
		Body:      "Version v2.0.0 is available",
		URL:       "https://github.com/octocat/hello/releases/tag/v2.0.0",
	}
}

func TestWebhookSender_Send(t *testing.T) {
	var gotBody map[string]string
	var gotDedupe string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDedupe = r.Header.Get("X-Forknews-Dedupe-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	sender := notify.NewWebhookSender(server.URL, notify.WithHTTPClient(server.Client()))

	err := sender.Send(context.Background(), testNotification())
	require.NoError(t, err)

	assert.Equal(t, "repo-42", gotDedupe)
	assert.Equal(t, "hello: new release", gotBody["title"])
	assert.Equal(t, "Version v2.0.0 is available", gotBody["body"])
	assert.Equal(t, "repo-42", gotBody["dedupe_key"])
}

func TestWebhookSender_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	sender := notify.NewWebhookSender(server.URL,
		notify.WithHTTPClient(server.Client()),
		notify.WithMaxTries(5),
	)

	err := sender.Send(context.Background(), testNotification())
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
}

func TestWebhookSender_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	sender := notify.NewWebhookSender(server.URL,
		notify.WithHTTPClient(server.Client()),
		notify.WithMaxTries(5),
	)

	err := sender.Send(context.Background(), testNotification())
	require.Error(t, err)
	assert.Equal(t, int64(1), calls.Load(), "a rejected payload must not be retried")
}

func TestWebhookSender_GivesUpAfterMaxTries(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	sender := notify.NewWebhookSender(server.URL,
		notify.WithHTTPClient(server.Client()),
		notify.WithMaxTries(2),
	)

	err := sender.Send(context.Background(), testNotification())
	require.Error(t, err)
	assert.Equal(t, int64(2), calls.Load())
}
