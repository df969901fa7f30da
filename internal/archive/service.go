// Package archive implements the newsletter archiving pass.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/afv22/instapaper/internal/instapaper"
	"github.com/afv22/instapaper/internal/rate"
)

// Spec describes one archiving pass.
type Spec struct {
	Tag    string
	MaxAge time.Duration
	DryRun bool
	Limit  int // per-request list limit, 0 means API maximum
}

// Result aggregates what a pass did. Archived+Failed always equals Selected,
// and Skipped is Found-Selected.
type Result struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Tag         string        `json:"tag"`
	MaxAge      time.Duration `json:"max_age"`
	DryRun      bool          `json:"dry_run"`
	Found       int           `json:"found"`
	Selected    int           `json:"selected"`
	Archived    int           `json:"archived"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
}

// Recorder persists pass outcomes. Recorder failures never abort a pass.
type Recorder interface {
	BeginRun(ctx context.Context, spec Spec, startedAt time.Time) (int64, error)
	RecordArchived(ctx context.Context, runID int64, b instapaper.Bookmark, at time.Time) error
	FinishRun(ctx context.Context, runID int64, res Result) error
}

// Service executes archiving passes against an Instapaper account.
type Service struct {
	Client  instapaper.Client
	Limiter rate.Limiter
	Logger  *slog.Logger
	Clock   func() time.Time
	History Recorder // optional
}

// NewService constructs a Service with sane defaults.
func NewService(client instapaper.Client, limiter rate.Limiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{
		Client:  client,
		Limiter: limiter,
		Logger:  logger,
		Clock:   time.Now,
	}
}

// Select returns the bookmarks carrying tag whose age at now strictly
// exceeds maxAge. A bookmark exactly maxAge old is not selected.
func Select(bookmarks []instapaper.Bookmark, tag string, maxAge time.Duration, now time.Time) []instapaper.Bookmark {
	cutoff := now.Add(-maxAge)
	var out []instapaper.Bookmark
	for _, b := range bookmarks {
		if b.HasTag(tag) && b.CreatedAt.Before(cutoff) {
			out = append(out, b)
		}
	}
	return out
}

// Run executes one pass. Individual archive failures are counted and logged
// but do not fail the run; only fetch-level problems return an error.
func (s *Service) Run(ctx context.Context, spec Spec) (Result, error) {
	if spec.Tag == "" {
		return Result{}, fmt.Errorf("tag must not be empty")
	}
	if spec.MaxAge <= 0 {
		return Result{}, fmt.Errorf("max age must be positive")
	}

	now := s.Clock()
	res := Result{GeneratedAt: now, Tag: spec.Tag, MaxAge: spec.MaxAge, DryRun: spec.DryRun}

	if err := s.wait(ctx, "rate limit list"); err != nil {
		return Result{}, err
	}
	bookmarks, err := s.Client.List(ctx, instapaper.Query{Tag: spec.Tag, Limit: spec.Limit})
	if err != nil {
		return Result{}, fmt.Errorf("list bookmarks: %w", err)
	}
	res.Found = len(bookmarks)

	selected := Select(bookmarks, spec.Tag, spec.MaxAge, now)
	res.Selected = len(selected)
	res.Skipped = res.Found - res.Selected

	if len(selected) == 0 {
		s.Logger.InfoContext(ctx, "nothing to archive",
			"tag", spec.Tag, "max_age", spec.MaxAge, "found", res.Found)
		return res, nil
	}
	if spec.DryRun {
		s.Logger.InfoContext(ctx, "dry-run",
			"tag", spec.Tag, "max_age", spec.MaxAge, "count", res.Selected)
		return res, nil
	}

	runID, recording := s.beginHistory(ctx, spec, now)

	var errs *multierror.Error
	for _, b := range selected {
		if waitErr := s.wait(ctx, "rate limit archive"); waitErr != nil {
			return res, waitErr
		}
		if archiveErr := s.Client.Archive(ctx, b.ID); archiveErr != nil {
			res.Failed++
			errs = multierror.Append(errs, fmt.Errorf("archive %d (%s): %w", b.ID, b.Title, archiveErr))
			s.Logger.WarnContext(ctx, "archive failed",
				"bookmark_id", b.ID, "title", b.Title, "error", archiveErr)
			continue
		}
		res.Archived++
		s.Logger.InfoContext(ctx, "archived", "bookmark_id", b.ID, "title", b.Title)
		if recording {
			s.recordArchived(ctx, runID, b)
		}
	}
	if recording {
		s.finishHistory(ctx, runID, res)
	}

	if combined := errs.ErrorOrNil(); combined != nil {
		s.Logger.WarnContext(ctx, "some bookmarks could not be archived",
			"failed", res.Failed, "error", combined)
	}
	s.Logger.InfoContext(ctx, "pass complete",
		"tag", spec.Tag, "archived", res.Archived, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

func (s *Service) beginHistory(ctx context.Context, spec Spec, startedAt time.Time) (int64, bool) {
	if s.History == nil {
		return 0, false
	}
	id, err := s.History.BeginRun(ctx, spec, startedAt)
	if err != nil {
		s.Logger.WarnContext(ctx, "history: begin run failed", "error", err)
		return 0, false
	}
	return id, true
}

func (s *Service) recordArchived(ctx context.Context, runID int64, b instapaper.Bookmark) {
	if err := s.History.RecordArchived(ctx, runID, b, s.Clock()); err != nil {
		s.Logger.WarnContext(ctx, "history: record archived failed",
			"bookmark_id", b.ID, "error", err)
	}
}

func (s *Service) finishHistory(ctx context.Context, runID int64, res Result) {
	if err := s.History.FinishRun(ctx, runID, res); err != nil {
		s.Logger.WarnContext(ctx, "history: finish run failed", "error", err)
	}
}

func (s *Service) wait(ctx context.Context, operation string) error {
	if s.Limiter == nil {
		return nil
	}
	if err := s.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}
