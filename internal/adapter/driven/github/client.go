// Package github implements the ReleaseSource port using the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/gregjones/httpcache"

	"github.com/shalaykin1/forknews/internal/domain/model"
	"github.com/shalaykin1/forknews/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReleaseSource = (*Client)(nil)

// releaseListPageSize bounds the primary list query. The newest non-draft
// entry is all the diff engine needs; one page is plenty.
const releaseListPageSize = 20

// Client implements the driven.ReleaseSource port using the go-github
// library.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport
// stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client)
//
// token may be empty: unauthenticated requests work against public
// repositories with lower rate limits.
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)

	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// Fetch retrieves the newest release for owner/name. The primary query lists
// releases newest-first (it is the only endpoint that surfaces
// pre-releases); when it fails or returns nothing usable, Fetch falls back
// to the latest-stable endpoint. The first successful result wins.
//
// A 404 from both queries maps to driven.ErrReleaseNotFound; every other
// failure is wrapped as a TransientError for retry on the next cycle.
func (c *Client) Fetch(ctx context.Context, owner, name string) (*model.Release, error) {
	rel, listErr := c.fetchFromList(ctx, owner, name)
	if listErr == nil && rel != nil {
		return rel, nil
	}

	if listErr != nil {
		slog.Debug("release list query failed, falling back to latest",
			"repo", owner+"/"+name,
			"error", listErr,
		)
	}

	rel, latestErr := c.fetchLatest(ctx, owner, name)
	if latestErr == nil {
		return rel, nil
	}

	if isNotFound(latestErr) && (listErr == nil || isNotFound(listErr)) {
		return nil, fmt.Errorf("fetch release for %s/%s: %w", owner, name, driven.ErrReleaseNotFound)
	}

	return nil, driven.Transient(fmt.Errorf("fetch release for %s/%s: %w", owner, name, latestErr))
}

// fetchFromList runs the primary list-releases query and returns the newest
// non-draft entry, or nil when the repository has no visible releases.
func (c *Client) fetchFromList(ctx context.Context, owner, name string) (*model.Release, error) {
	opts := &gh.ListOptions{PerPage: releaseListPageSize}

	releases, resp, err := c.gh.Repositories.ListReleases(ctx, owner, name, opts)
	if err != nil {
		return nil, err
	}

	logRateLimit(resp, owner+"/"+name+"/releases", len(releases))

	for _, r := range releases {
		if r.GetDraft() {
			continue
		}
		return mapRelease(r), nil
	}

	return nil, nil
}

// fetchLatest runs the stable fallback query. It excludes pre-releases by
// API contract.
func (c *Client) fetchLatest(ctx context.Context, owner, name string) (*model.Release, error) {
	release, resp, err := c.gh.Repositories.GetLatestRelease(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	logRateLimit(resp, owner+"/"+name+"/releases/latest", 1)

	return mapRelease(release), nil
}

// mapRelease converts a go-github RepositoryRelease to a domain Release.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapRelease(r *gh.RepositoryRelease) *model.Release {
	return &model.Release{
		Tag:          r.GetTagName(),
		Title:        r.GetName(),
		URL:          r.GetHTMLURL(),
		PublishedAt:  r.GetPublishedAt().Time,
		IsPrerelease: r.GetPrerelease(),
	}
}

// isNotFound reports whether err is a GitHub 404 response.
func isNotFound(err error) bool {
	var ghErr *gh.ErrorResponse
	return errors.As(err, &ghErr) &&
		ghErr.Response != nil &&
		ghErr.Response.StatusCode == http.StatusNotFound
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
