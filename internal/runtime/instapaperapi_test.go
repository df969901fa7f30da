package runtime

import (
	"testing"
	"time"

	"github.com/afv22/instapaper/internal/instapaper"
)

func TestDecodeBookmarks(t *testing.T) {
	payload := []byte(`[
		{"type": "meta"},
		{"type": "user", "user_id": 123, "username": "reader@example.com"},
		{
			"type": "bookmark",
			"bookmark_id": 1001,
			"url": "https://example.com/issue-1",
			"title": "Issue 1",
			"time": 1700000000,
			"tags": [{"id": 1, "name": "newsletter"}, {"id": 2, "name": "tech"}]
		},
		{
			"type": "bookmark",
			"bookmark_id": 1002,
			"url": "https://example.com/issue-2",
			"title": "Issue 2",
			"time": 1700000100,
			"tags": []
		}
	]`)

	bookmarks, err := decodeBookmarks(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(bookmarks) != 2 {
		t.Fatalf("expected 2 bookmarks, got %d", len(bookmarks))
	}

	first := bookmarks[0]
	if first.ID != instapaper.BookmarkID(1001) {
		t.Fatalf("unexpected id %d", first.ID)
	}
	if !first.CreatedAt.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("unexpected created_at %v", first.CreatedAt)
	}
	if len(first.Tags) != 2 || first.Tags[0] != "newsletter" {
		t.Fatalf("unexpected tags %v", first.Tags)
	}
	if !first.HasTag("Newsletter") {
		t.Fatalf("tag membership should be case-insensitive")
	}
	if len(bookmarks[1].Tags) != 0 {
		t.Fatalf("expected no tags, got %v", bookmarks[1].Tags)
	}
}

func TestDecodeBookmarksErrorElement(t *testing.T) {
	payload := []byte(`[{"type": "error", "error_code": 1041, "message": "Rate limit exceeded"}]`)

	_, err := decodeBookmarks(payload)
	if err == nil {
		t.Fatalf("expected error element to surface as error")
	}
	if got := err.Error(); got != "instapaper error 1041: Rate limit exceeded" {
		t.Fatalf("unexpected error message: %q", got)
	}
}

func TestDecodeBookmarksBadPayload(t *testing.T) {
	if _, err := decodeBookmarks([]byte(`{"not": "an array"}`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
