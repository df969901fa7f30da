package instapaper

import "context"

// Client is the narrow Instapaper surface required by this tool.
type Client interface {
	List(ctx context.Context, q Query) ([]Bookmark, error)
	Archive(ctx context.Context, id BookmarkID) error
}
