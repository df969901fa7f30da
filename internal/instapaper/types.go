// internal/instapaper/types.go
package instapaper

import (
	"strings"
	"time"
)

// BookmarkID is the opaque identifier Instapaper assigns to a saved link.
type BookmarkID int64

// Bookmark is a saved-link record as returned by /bookmarks/list.
type Bookmark struct {
	ID        BookmarkID
	URL       string
	Title     string
	Tags      []string
	CreatedAt time.Time
}

// HasTag reports whether the bookmark carries the named tag.
// Instapaper treats tag names case-insensitively, so we do too.
func (b Bookmark) HasTag(name string) bool {
	for _, t := range b.Tags {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

// Query selects which bookmarks /bookmarks/list returns. The API accepts
// either a folder or a tag filter, not both; Tag wins if both are set.
type Query struct {
	Folder string // "", "unread", "starred", "archive", or a folder_id
	Tag    string
	Limit  int // per-request limit, API maximum is 500
}
