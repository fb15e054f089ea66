package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shalaykin1/forknews/internal/domain/model"
	"github.com/shalaykin1/forknews/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoStore = (*RepoStore)(nil)

// RepoStore is the SQLite implementation of the driven.RepoStore port.
type RepoStore struct {
	db *DB
}

// NewRepoStore creates a new RepoStore backed by the given DB.
func NewRepoStore(db *DB) *RepoStore {
	return &RepoStore{db: db}
}

const repoColumns = `id, owner, name, url, added_at,
	latest_release_tag, latest_release_url, latest_release_title, published_at,
	is_prerelease, has_unseen_update, notifications_enabled, display_order, last_checked_at`

// Add inserts a new tracked repository and returns its assigned id. Returns
// ErrRepoAlreadyExists if the same owner/name pair is already tracked.
func (s *RepoStore) Add(ctx context.Context, repo model.TrackedRepository) (int64, error) {
	const query = `INSERT INTO tracked_repositories
		(owner, name, url, added_at, notifications_enabled, display_order)
		VALUES (?, ?, ?, ?, ?, ?)`

	addedAt := repo.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}

	result, err := s.db.Writer.ExecContext(ctx, query,
		repo.Owner, repo.Name, repo.URL, addedAt.Format(time.RFC3339),
		repo.NotificationsEnabled, repo.DisplayOrder,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return 0, fmt.Errorf("add repository %s/%s: %w", repo.Owner, repo.Name, driven.ErrRepoAlreadyExists)
		}
		return 0, fmt.Errorf("add repository %s/%s: %w", repo.Owner, repo.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	return id, nil
}

// GetByID retrieves a tracked repository by id. Returns nil, nil if it does
// not exist.
func (s *RepoStore) GetByID(ctx context.Context, id int64) (*model.TrackedRepository, error) {
	query := `SELECT ` + repoColumns + ` FROM tracked_repositories WHERE id = ?`

	repo, err := scanTrackedRepository(s.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %d: %w", id, err)
	}

	return repo, nil
}

// GetByFullName retrieves a tracked repository by its owner/name source key.
// Returns nil, nil if it does not exist.
func (s *RepoStore) GetByFullName(ctx context.Context, owner, name string) (*model.TrackedRepository, error) {
	query := `SELECT ` + repoColumns + ` FROM tracked_repositories WHERE owner = ? AND name = ?`

	repo, err := scanTrackedRepository(s.db.Reader.QueryRowContext(ctx, query, owner, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %s/%s: %w", owner, name, err)
	}

	return repo, nil
}

// ListAll returns all tracked repositories in display order.
func (s *RepoStore) ListAll(ctx context.Context) ([]model.TrackedRepository, error) {
	query := `SELECT ` + repoColumns + ` FROM tracked_repositories ORDER BY display_order, id`
	return s.list(ctx, query)
}

// ListEnabled returns the repositories that participate in polling.
func (s *RepoStore) ListEnabled(ctx context.Context) ([]model.TrackedRepository, error) {
	query := `SELECT ` + repoColumns + ` FROM tracked_repositories
		WHERE notifications_enabled = 1 ORDER BY display_order, id`
	return s.list(ctx, query)
}

func (s *RepoStore) list(ctx context.Context, query string) ([]model.TrackedRepository, error) {
	rows, err := s.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var repos []model.TrackedRepository
	for rows.Next() {
		repo, err := scanTrackedRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repositories: %w", err)
	}

	return repos, nil
}

// Count returns the number of tracked repositories.
func (s *RepoStore) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM tracked_repositories`

	var count int
	if err := s.db.Reader.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count repositories: %w", err)
	}

	return count, nil
}

// UpdateRelease stores the release descriptor, the check timestamp, and an
// explicit unseen flag. Used for the first observation (hasUnseen false) and
// for a detected tag change (hasUnseen true).
func (s *RepoStore) UpdateRelease(ctx context.Context, id int64, rel model.Release, checkedAt time.Time, hasUnseen bool) error {
	const query = `UPDATE tracked_repositories SET
		latest_release_tag = ?, latest_release_url = ?, latest_release_title = ?,
		published_at = ?, is_prerelease = ?, has_unseen_update = ?, last_checked_at = ?
		WHERE id = ?`

	result, err := s.db.Writer.ExecContext(ctx, query,
		rel.Tag, rel.URL, nullString(rel.Title), nullTime(rel.PublishedAt),
		rel.IsPrerelease, hasUnseen, checkedAt.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("update release for repository %d: %w", id, err)
	}

	return requireRow(result, id)
}

// RefreshRelease updates the descriptive release fields and the check
// timestamp without touching the unseen flag. Used when the tag is unchanged
// so a pending unacknowledged update survives the poll.
func (s *RepoStore) RefreshRelease(ctx context.Context, id int64, rel model.Release, checkedAt time.Time) error {
	const query = `UPDATE tracked_repositories SET
		latest_release_tag = ?, latest_release_url = ?, latest_release_title = ?,
		published_at = ?, is_prerelease = ?, last_checked_at = ?
		WHERE id = ?`

	result, err := s.db.Writer.ExecContext(ctx, query,
		rel.Tag, rel.URL, nullString(rel.Title), nullTime(rel.PublishedAt),
		rel.IsPrerelease, checkedAt.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("refresh release for repository %d: %w", id, err)
	}

	return requireRow(result, id)
}

// TouchChecked records a poll attempt that produced no usable descriptor.
func (s *RepoStore) TouchChecked(ctx context.Context, id int64, checkedAt time.Time) error {
	const query = `UPDATE tracked_repositories SET last_checked_at = ? WHERE id = ?`

	result, err := s.db.Writer.ExecContext(ctx, query, checkedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("touch repository %d: %w", id, err)
	}

	return requireRow(result, id)
}

// Acknowledge clears the unseen flag without altering the release fields.
func (s *RepoStore) Acknowledge(ctx context.Context, id int64) error {
	const query = `UPDATE tracked_repositories SET has_unseen_update = 0 WHERE id = ?`

	result, err := s.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("acknowledge repository %d: %w", id, err)
	}

	return requireRow(result, id)
}

// SetNotificationsEnabled toggles whether the repository participates in
// polling and notification dispatch.
func (s *RepoStore) SetNotificationsEnabled(ctx context.Context, id int64, enabled bool) error {
	const query = `UPDATE tracked_repositories SET notifications_enabled = ? WHERE id = ?`

	result, err := s.db.Writer.ExecContext(ctx, query, enabled, id)
	if err != nil {
		return fmt.Errorf("set notifications for repository %d: %w", id, err)
	}

	return requireRow(result, id)
}

// SetDisplayOrder updates the presentation order. Has no effect on polling.
func (s *RepoStore) SetDisplayOrder(ctx context.Context, id int64, order int) error {
	const query = `UPDATE tracked_repositories SET display_order = ? WHERE id = ?`

	result, err := s.db.Writer.ExecContext(ctx, query, order, id)
	if err != nil {
		return fmt.Errorf("set display order for repository %d: %w", id, err)
	}

	return requireRow(result, id)
}

// Remove deletes a tracked repository by id. Returns ErrRepoNotFound if it
// does not exist.
func (s *RepoStore) Remove(ctx context.Context, id int64) error {
	const query = `DELETE FROM tracked_repositories WHERE id = ?`

	result, err := s.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("remove repository %d: %w", id, err)
	}

	return requireRow(result, id)
}

// requireRow maps an ExecContext result that touched no rows to
// ErrRepoNotFound.
func requireRow(result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("repository %d: %w", id, driven.ErrRepoNotFound)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTrackedRepository(s scanner) (*model.TrackedRepository, error) {
	var repo model.TrackedRepository
	var addedAt string
	var tag, relURL, title, publishedAt, checkedAt sql.NullString

	err := s.Scan(
		&repo.ID, &repo.Owner, &repo.Name, &repo.URL, &addedAt,
		&tag, &relURL, &title, &publishedAt,
		&repo.IsPrerelease, &repo.HasUnseenUpdate, &repo.NotificationsEnabled,
		&repo.DisplayOrder, &checkedAt,
	)
	if err != nil {
		return nil, err
	}

	if repo.AddedAt, err = parseTime(addedAt); err != nil {
		return nil, fmt.Errorf("parse added_at: %w", err)
	}

	if tag.Valid {
		repo.LatestReleaseTag = &tag.String
	}
	if relURL.Valid {
		repo.LatestReleaseURL = &relURL.String
	}
	if title.Valid {
		repo.LatestReleaseTitle = &title.String
	}
	if publishedAt.Valid && publishedAt.String != "" {
		t, err := parseTime(publishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse published_at: %w", err)
		}
		repo.PublishedAt = &t
	}
	if checkedAt.Valid && checkedAt.String != "" {
		if repo.LastCheckedAt, err = parseTime(checkedAt.String); err != nil {
			return nil, fmt.Errorf("parse last_checked_at: %w", err)
		}
	}

	return &repo, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}

// nullString converts an empty string to NULL so optional descriptive fields
// stay distinguishable from "present but blank".
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullTime converts a zero time to NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
