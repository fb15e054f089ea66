package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shalaykin1/forknews/internal/domain/model"
	"github.com/shalaykin1/forknews/internal/domain/port/driven"
)

// DefaultRepositoryURLs are seeded into an empty store on first launch so a
// fresh install has something to watch.
var DefaultRepositoryURLs = []string{
	"https://github.com/coffincolors/winlator/",
	"https://github.com/StevenMXZ/Winlator-Ludashi/",
	"https://github.com/brunodev85/winlator/",
	"https://github.com/K11MCH1/AdrenoToolsDrivers/",
	"https://github.com/StevenMXZ/freedreno_turnip-CI/",
	"https://github.com/Shalaykin1/ForkNews/",
}

var githubURLPattern = regexp.MustCompile(`github\.com/([^/\s]+)/([^/\s]+)`)

// ParseRepositoryURL builds a TrackedRepository from a GitHub URL like
// https://github.com/owner/repo. A trailing .git suffix and slashes are
// stripped. Returns an error for anything that does not name a repository.
func ParseRepositoryURL(rawURL string) (model.TrackedRepository, error) {
	match := githubURLPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return model.TrackedRepository{}, fmt.Errorf("not a GitHub repository URL: %q", rawURL)
	}

	owner := match[1]
	name := strings.TrimSuffix(strings.TrimSuffix(match[2], "/"), ".git")
	if owner == "" || name == "" {
		return model.TrackedRepository{}, fmt.Errorf("not a GitHub repository URL: %q", rawURL)
	}

	return model.TrackedRepository{
		Owner:                owner,
		Name:                 name,
		URL:                  "https://github.com/" + owner + "/" + name,
		NotificationsEnabled: true,
	}, nil
}

// SeedDefaultRepositories inserts the default watch list into an empty
// store. It runs once: any existing record disables it for good, so user
// deletions are never resurrected.
func SeedDefaultRepositories(ctx context.Context, store driven.RepoStore) error {
	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count repositories: %w", err)
	}
	if count > 0 {
		return nil
	}

	seeded := 0
	for order, rawURL := range DefaultRepositoryURLs {
		repo, err := ParseRepositoryURL(rawURL)
		if err != nil {
			slog.Error("skipping malformed default repository", "url", rawURL, "error", err)
			continue
		}

		repo.AddedAt = time.Now().UTC()
		repo.DisplayOrder = order

		if _, err := store.Add(ctx, repo); err != nil {
			slog.Error("seeding default repository failed", "repo", repo.FullName(), "error", err)
			continue
		}
		seeded++
	}

	slog.Info("seeded default repositories", "count", seeded)
	return nil
}
