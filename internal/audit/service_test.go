package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/afv22/instapaper/internal/instapaper"
)

type fakeClient struct {
	bookmarks   []instapaper.Bookmark
	listErr     error
	listQueries []instapaper.Query
}

func (f *fakeClient) List(ctx context.Context, q instapaper.Query) ([]instapaper.Bookmark, error) {
	_ = ctx
	f.listQueries = append(f.listQueries, q)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.bookmarks, nil
}

func (f *fakeClient) Archive(ctx context.Context, id instapaper.BookmarkID) error {
	_ = ctx
	return fmt.Errorf("audit must never archive (called for %d)", id)
}

var testNow = time.Unix(1700000000, 0).UTC()

func unread(id int64, url string, age time.Duration, tags ...string) instapaper.Bookmark {
	return instapaper.Bookmark{
		ID:        instapaper.BookmarkID(id),
		URL:       url,
		Title:     fmt.Sprintf("Item %d", id),
		Tags:      tags,
		CreatedAt: testNow.Add(-age),
	}
}

func newTestService(client *fakeClient) *Service {
	svc := NewService(client, nil, slogDiscard())
	svc.Clock = func() time.Time { return testNow }
	return svc
}

func TestRunBuildsReport(t *testing.T) {
	const day = 24 * time.Hour
	fake := &fakeClient{bookmarks: []instapaper.Bookmark{
		unread(1, "https://www.blog.example.com/a", 2*time.Hour, "newsletter"),
		unread(2, "https://blog.example.com/b", 3*day, "newsletter"),
		unread(3, "https://news.example.org/c", 10*day, "tech"),
		unread(4, "not a url", 1*day),
	}}
	svc := newTestService(fake)

	rep, err := svc.Run(context.Background(), Options{TopN: 10})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if rep.Total != 4 {
		t.Fatalf("total = %d, want 4", rep.Total)
	}
	if len(fake.listQueries) != 1 || fake.listQueries[0].Folder != "unread" {
		t.Fatalf("unexpected list queries: %+v", fake.listQueries)
	}

	if len(rep.TopDomains) != 2 {
		t.Fatalf("expected 2 domains, got %+v", rep.TopDomains)
	}
	if rep.TopDomains[0].Domain != "blog.example.com" || rep.TopDomains[0].Count != 2 {
		t.Fatalf("unexpected top domain: %+v", rep.TopDomains[0])
	}

	want := AgeBuckets{UnderDay: 1, UnderWeek: 2, OverWeek: 1}
	if rep.AgeBuckets != want {
		t.Fatalf("age buckets = %+v, want %+v", rep.AgeBuckets, want)
	}

	if rep.TagCounts["newsletter"] != 2 || rep.TagCounts["tech"] != 1 {
		t.Fatalf("unexpected tag counts: %+v", rep.TagCounts)
	}
}

func TestRunTopNTruncates(t *testing.T) {
	fake := &fakeClient{bookmarks: []instapaper.Bookmark{
		unread(1, "https://a.example/x", time.Hour),
		unread(2, "https://b.example/x", time.Hour),
		unread(3, "https://c.example/x", time.Hour),
	}}
	svc := newTestService(fake)

	rep, err := svc.Run(context.Background(), Options{TopN: 2})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(rep.TopDomains) != 2 {
		t.Fatalf("expected 2 domains after truncation, got %d", len(rep.TopDomains))
	}
}

func TestRunEmptyBacklog(t *testing.T) {
	svc := newTestService(&fakeClient{})
	rep, err := svc.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if rep.Total != 0 || len(rep.TopDomains) != 0 {
		t.Fatalf("expected empty report, got %+v", rep)
	}
}

func TestRunListError(t *testing.T) {
	fake := &fakeClient{listErr: fmt.Errorf("service unavailable")}
	svc := newTestService(fake)
	if _, err := svc.Run(context.Background(), Options{}); err == nil {
		t.Fatalf("expected fetch error to be fatal")
	}
}

func TestHostOf(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://www.example.com/path", "example.com"},
		{"http://Example.COM:8080/x", "example.com"},
		{"https://sub.example.org", "sub.example.org"},
		{"not a url", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := hostOf(tt.raw); got != tt.want {
			t.Fatalf("hostOf(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestPrintHuman(t *testing.T) {
	rep := Report{
		Total:      3,
		TopDomains: []DomainStat{{Domain: "blog.example.com", Count: 2, PreviewTitle: "Issue 1"}},
		TagCounts:  map[string]int{"newsletter": 2},
		AgeBuckets: AgeBuckets{UnderDay: 1, UnderWeek: 1, OverWeek: 1},
	}
	var sb strings.Builder
	if err := PrintHuman(rep, &sb); err != nil {
		t.Fatalf("print failed: %v", err)
	}
	out := sb.String()
	for _, want := range []string{"3 unread bookmarks", "blog.example.com", "newsletter", "1 older"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report %q missing %q", out, want)
		}
	}
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
