// Package history keeps a local SQLite log of archiving runs.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/afv22/instapaper/internal/archive"
	"github.com/afv22/instapaper/internal/instapaper"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store records runs and the bookmarks they archived.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the history database at path and
// applies any pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.TrimSuffix(name, ".sql")
		var applied bool
		if err := s.db.QueryRow(
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = ?)`, version,
		).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", version, err)
		}
		if applied {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", version, err)
		}
	}
	return nil
}

// BeginRun inserts a run row with zero counts and returns its id.
func (s *Store) BeginRun(ctx context.Context, spec archive.Spec, startedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (started_at, tag, max_age_seconds, dry_run)
		VALUES (?, ?, ?, ?)
	`, startedAt.UTC().Format(time.RFC3339), spec.Tag, int64(spec.MaxAge.Seconds()), boolToInt(spec.DryRun))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}
	return id, nil
}

// RecordArchived logs one successfully archived bookmark under a run.
func (s *Store) RecordArchived(ctx context.Context, runID int64, b instapaper.Bookmark, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO archived_bookmarks (bookmark_id, run_id, url, title, tags, created_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, int64(b.ID), runID, b.URL, b.Title, strings.Join(b.Tags, ","),
		b.CreatedAt.UTC().Format(time.RFC3339), at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert archived bookmark %d: %w", b.ID, err)
	}
	return nil
}

// FinishRun stores the final counts for a run.
func (s *Store) FinishRun(ctx context.Context, runID int64, res archive.Result) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET found = ?, selected = ?, archived = ?, failed = ?, skipped = ?
		WHERE id = ?
	`, res.Found, res.Selected, res.Archived, res.Failed, res.Skipped, runID)
	if err != nil {
		return fmt.Errorf("update run %d: %w", runID, err)
	}
	return nil
}

// Run is a recorded archiving run.
type Run struct {
	ID        int64
	StartedAt string
	Tag       string
	MaxAge    time.Duration
	DryRun    bool
	Found     int
	Selected  int
	Archived  int
	Failed    int
	Skipped   int
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, tag, max_age_seconds, dry_run, found, selected, archived, failed, skipped
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			seconds int64
			dryRun  int
		)
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Tag, &seconds, &dryRun,
			&r.Found, &r.Selected, &r.Archived, &r.Failed, &r.Skipped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.MaxAge = time.Duration(seconds) * time.Second
		r.DryRun = dryRun != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// CountArchived returns how many bookmarks were recorded for a run.
func (s *Store) CountArchived(ctx context.Context, runID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM archived_bookmarks WHERE run_id = ?`, runID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count archived bookmarks: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ archive.Recorder = (*Store)(nil)
