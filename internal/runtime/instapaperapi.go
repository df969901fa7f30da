// internal/runtime/instapaperapi.go — adapts the Instapaper Full API to our small interface
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gomodule/oauth1/oauth"

	"github.com/afv22/instapaper/internal/instapaper"
)

const maxListLimit = 500

type apiClient struct {
	oauth *oauth.Client
	token *oauth.Credentials
	http  *http.Client
	base  string
}

func NewAPIClient(oc *oauth.Client, token *oauth.Credentials, httpClient *http.Client) *apiClient {
	return &apiClient{oauth: oc, token: token, http: httpClient, base: APIBase}
}

func (c *apiClient) List(ctx context.Context, q instapaper.Query) ([]instapaper.Bookmark, error) {
	limit := q.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	form := url.Values{}
	form.Set("limit", strconv.Itoa(limit))
	// The API accepts folder_id or tag, not both.
	switch {
	case q.Tag != "":
		form.Set("tag", q.Tag)
	case q.Folder != "":
		form.Set("folder_id", q.Folder)
	}
	body, err := c.post(ctx, "/bookmarks/list", form)
	if err != nil {
		return nil, err
	}
	return decodeBookmarks(body)
}

func (c *apiClient) Archive(ctx context.Context, id instapaper.BookmarkID) error {
	form := url.Values{}
	form.Set("bookmark_id", strconv.FormatInt(int64(id), 10))
	if _, err := c.post(ctx, "/bookmarks/archive", form); err != nil {
		return err
	}
	return nil
}

func (c *apiClient) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	resp, err := c.oauth.PostContext(context.WithValue(ctx, oauth.HTTPClient, c.http), c.token, c.base+path, form)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, snippet(body))
	}
	return body, nil
}

// apiElement is one entry of the heterogeneous JSON array the API returns:
// a user element, bookmark elements, and error elements, discriminated by
// the "type" field.
type apiElement struct {
	Type       string   `json:"type"`
	BookmarkID int64    `json:"bookmark_id"`
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Time       int64    `json:"time"`
	Tags       []apiTag `json:"tags"`
	ErrorCode  int      `json:"error_code"`
	Message    string   `json:"message"`
}

type apiTag struct {
	Name string `json:"name"`
}

func decodeBookmarks(body []byte) ([]instapaper.Bookmark, error) {
	var elements []apiElement
	if err := json.Unmarshal(body, &elements); err != nil {
		return nil, fmt.Errorf("decode bookmark list: %w", err)
	}
	var out []instapaper.Bookmark
	for _, el := range elements {
		switch el.Type {
		case "error":
			return nil, fmt.Errorf("instapaper error %d: %s", el.ErrorCode, el.Message)
		case "bookmark":
			tags := make([]string, 0, len(el.Tags))
			for _, t := range el.Tags {
				tags = append(tags, t.Name)
			}
			out = append(out, instapaper.Bookmark{
				ID:        instapaper.BookmarkID(el.BookmarkID),
				URL:       el.URL,
				Title:     el.Title,
				Tags:      tags,
				CreatedAt: time.Unix(el.Time, 0).UTC(),
			})
		}
	}
	return out, nil
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max] + "…"
	}
	return s
}

var _ instapaper.Client = (*apiClient)(nil)
