// Package audit produces read-only reports about the unread reading list.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/afv22/instapaper/internal/instapaper"
	"github.com/afv22/instapaper/internal/rate"
)

const previewTitleDisplayLimit = 60

// Options controls the behavior of the audit analyzer.
type Options struct {
	TopN  int
	Limit int
}

// Service executes audits against the unread folder.
type Service struct {
	Client  instapaper.Client
	Limiter rate.Limiter
	Logger  *slog.Logger
	Clock   func() time.Time
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

// Report summarizes the current unread backlog.
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Total       int            `json:"total"`
	TopDomains  []DomainStat   `json:"top_domains"`
	TagCounts   map[string]int `json:"tag_counts"`
	AgeBuckets  AgeBuckets     `json:"age_buckets"`
}

// DomainStat ranks sources by unread volume.
type DomainStat struct {
	Domain       string `json:"domain"`
	Count        int    `json:"count"`
	PreviewTitle string `json:"preview_title"`
}

// AgeBuckets splits the backlog by age.
type AgeBuckets struct {
	UnderDay  int `json:"under_day"`
	UnderWeek int `json:"under_week"`
	OverWeek  int `json:"over_week"`
}

// Run produces a full report over the unread folder.
func (s *Service) Run(ctx context.Context, opts Options) (Report, error) {
	topN := opts.TopN
	if topN <= 0 {
		topN = 20
	}
	limit := opts.Limit
	if limit <= 0 || limit > 500 {
		limit = 500
	}

	s.Logger.InfoContext(ctx, "running audit", "top", topN, "limit", limit)

	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return Report{}, fmt.Errorf("rate limit list: %w", err)
		}
	}
	bookmarks, err := s.Client.List(ctx, instapaper.Query{Folder: "unread", Limit: limit})
	if err != nil {
		return Report{}, fmt.Errorf("list unread bookmarks: %w", err)
	}

	now := s.Clock()
	rep := Report{
		GeneratedAt: now,
		Total:       len(bookmarks),
		TagCounts:   map[string]int{},
	}
	if len(bookmarks) == 0 {
		return rep, nil
	}

	rep.TopDomains = rankDomains(bookmarks, topN)
	rep.AgeBuckets = bucketAges(bookmarks, now)
	for _, b := range bookmarks {
		for _, t := range b.Tags {
			rep.TagCounts[strings.ToLower(t)]++
		}
	}
	return rep, nil
}

func rankDomains(bookmarks []instapaper.Bookmark, topN int) []DomainStat {
	byDomain := map[string]*DomainStat{}
	for _, b := range bookmarks {
		domain := hostOf(b.URL)
		if domain == "" {
			continue
		}
		st := byDomain[domain]
		if st == nil {
			st = &DomainStat{Domain: domain}
			byDomain[domain] = st
		}
		st.Count++
		if st.PreviewTitle == "" {
			st.PreviewTitle = b.Title
		}
	}
	slice := make([]DomainStat, 0, len(byDomain))
	for _, st := range byDomain {
		slice = append(slice, *st)
	}
	sort.Slice(slice, func(i, j int) bool {
		if slice[i].Count == slice[j].Count {
			return slice[i].Domain < slice[j].Domain
		}
		return slice[i].Count > slice[j].Count
	})
	if topN < len(slice) {
		slice = slice[:topN]
	}
	return slice
}

func bucketAges(bookmarks []instapaper.Bookmark, now time.Time) AgeBuckets {
	const (
		day  = 24 * time.Hour
		week = 7 * day
	)
	var buckets AgeBuckets
	for _, b := range bookmarks {
		switch age := now.Sub(b.CreatedAt); {
		case age < day:
			buckets.UnderDay++
		case age < week:
			buckets.UnderWeek++
		default:
			buckets.OverWeek++
		}
	}
	return buckets
}

// PrintHuman writes a readable report to the provided writer.
func PrintHuman(rep Report, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "instapaper audit — %d unread bookmarks\n", rep.Total)
	fmt.Fprintf(&builder, "\nAge: %d under a day, %d under a week, %d older\n",
		rep.AgeBuckets.UnderDay, rep.AgeBuckets.UnderWeek, rep.AgeBuckets.OverWeek)
	if len(rep.TopDomains) > 0 {
		builder.WriteString("\nTop sources:\n")
		for _, d := range rep.TopDomains {
			fmt.Fprintf(&builder, "  %-30s %4d %s\n",
				d.Domain, d.Count, truncate(d.PreviewTitle, previewTitleDisplayLimit))
		}
	}
	if len(rep.TagCounts) > 0 {
		builder.WriteString("\nTags:\n")
		for _, tag := range sortedKeys(rep.TagCounts) {
			fmt.Fprintf(&builder, "  %-30s %4d\n", tag, rep.TagCounts[tag])
		}
	}
	if _, err := io.WriteString(w, builder.String()); err != nil {
		return fmt.Errorf("write human report: %w", err)
	}
	return nil
}

// WriteJSON serializes the report to disk.
func WriteJSON(rep Report, path string) error {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return fmt.Errorf("path must not be empty")
	}
	clean = filepath.Clean(clean)
	if filepath.IsAbs(clean) {
		return fmt.Errorf("output path must be relative, got %s", clean)
	}
	if strings.HasPrefix(clean, "..") {
		return fmt.Errorf("output path %s escapes working directory", clean)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	abs := filepath.Join(wd, clean)
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("create %s: %w", abs, err)
	}
	defer func() { _ = f.Close() }()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if encodeErr := enc.Encode(rep); encodeErr != nil {
		return fmt.Errorf("encode report: %w", encodeErr)
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
