package spacetraveling

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/eringen/spacetraveling/prismic"
)

const staticPathsPageSize = 100

// pathFields keeps enumeration responses small; uid and dates are always sent.
var pathFields = []string{"post.title"}

// PathEntry is one pre-renderable post path.
type PathEntry struct {
	UID          string
	Path         string
	LastModified *time.Time
}

// Detail enumerates and fetches single posts.
type Detail struct {
	backend Backend
}

// NewDetail returns a Detail controller backed by b.
func NewDetail(b Backend) *Detail {
	return &Detail{backend: b}
}

// PostPath returns the route of the post with the given UID.
func PostPath(uid string) string {
	return "/post/" + url.PathEscape(uid)
}

// Entries lists every known post, following next_page until the backend runs
// out of pages.
func (d *Detail) Entries(ctx context.Context) ([]PathEntry, error) {
	page, err := d.backend.QueryByType(ctx, PostType, prismic.QueryOptions{
		Fetch:    pathFields,
		PageSize: staticPathsPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("detail: query posts: %w", err)
	}
	var entries []PathEntry
	for {
		for _, doc := range page.Results {
			if doc.UID == "" {
				return nil, fmt.Errorf("detail: document %q: missing uid: %w", doc.ID, ErrMalformedResponse)
			}
			lastMod := doc.LastPublicationDate.Ptr()
			if lastMod == nil {
				lastMod = doc.FirstPublicationDate.Ptr()
			}
			entries = append(entries, PathEntry{
				UID:          doc.UID,
				Path:         PostPath(doc.UID),
				LastModified: lastMod,
			})
		}
		next := page.Next()
		if next == "" {
			return entries, nil
		}
		page, err = d.backend.FetchPage(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("detail: fetch next page: %w", err)
		}
	}
}

// StaticPaths returns one route per known post, in backend order.
func (d *Detail) StaticPaths(ctx context.Context) ([]string, error) {
	entries, err := d.Entries(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	return paths, nil
}

// Fetch looks up one post by UID. A missing post yields an error wrapping
// ErrNotFound; every other error is transient or malformed data.
func (d *Detail) Fetch(ctx context.Context, uid string) (PostDetail, error) {
	if uid == "" {
		return PostDetail{}, fmt.Errorf("detail: empty uid: %w", ErrNotFound)
	}
	doc, err := d.backend.GetByUID(ctx, PostType, uid)
	if err != nil {
		return PostDetail{}, fmt.Errorf("detail: get %q: %w", uid, err)
	}
	raw, err := DecodePost(doc)
	if err != nil {
		return PostDetail{}, fmt.Errorf("detail: %w", err)
	}
	return NormalizeDetail(raw), nil
}
