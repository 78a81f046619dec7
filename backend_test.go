package spacetraveling

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eringen/spacetraveling/prismic"
)

const fakeHost = "https://blog.cdn.prismic.io/api/v2/documents/search"

// fakeBackend pages through docs pageSize at a time, like the search API.
type fakeBackend struct {
	mu       sync.Mutex
	docs     []prismic.Document
	err      error // returned by every call when set
	fetchErr error // returned by FetchPage only

	lastOpts prismic.QueryOptions

	queries atomic.Int32
	lookups atomic.Int32
	fetches atomic.Int32
}

func (f *fakeBackend) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeBackend) page(n, size int) prismic.Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	if size <= 0 {
		size = 20
	}
	start := (n - 1) * size
	end := start + size
	if start > len(f.docs) {
		start = len(f.docs)
	}
	if end > len(f.docs) {
		end = len(f.docs)
	}
	p := prismic.Page{
		Page:             n,
		ResultsPerPage:   size,
		ResultsSize:      end - start,
		TotalResultsSize: len(f.docs),
		Results:          append([]prismic.Document(nil), f.docs[start:end]...),
	}
	if end < len(f.docs) {
		next := fmt.Sprintf("%s?page=%d&pageSize=%d", fakeHost, n+1, size)
		p.NextPage = &next
	}
	return p
}

func (f *fakeBackend) QueryByType(ctx context.Context, docType string, opts prismic.QueryOptions) (prismic.Page, error) {
	f.queries.Add(1)
	f.mu.Lock()
	f.lastOpts = opts
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return prismic.Page{}, err
	}
	page := opts.Page
	if page == 0 {
		page = 1
	}
	return f.page(page, opts.PageSize), nil
}

func (f *fakeBackend) GetByUID(ctx context.Context, docType, uid string) (prismic.Document, error) {
	f.lookups.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return prismic.Document{}, f.err
	}
	for _, d := range f.docs {
		if d.UID == uid {
			return d, nil
		}
	}
	return prismic.Document{}, fmt.Errorf("%s %q: %w", docType, uid, prismic.ErrNotFound)
}

func (f *fakeBackend) FetchPage(ctx context.Context, pageURL string) (prismic.Page, error) {
	f.fetches.Add(1)
	f.mu.Lock()
	err := f.err
	if f.fetchErr != nil {
		err = f.fetchErr
	}
	f.mu.Unlock()
	if err != nil {
		return prismic.Page{}, err
	}
	if !strings.HasPrefix(pageURL, fakeHost+"?") {
		return prismic.Page{}, prismic.ErrForeignPage
	}
	var n, size int
	if _, err := fmt.Sscanf(strings.TrimPrefix(pageURL, fakeHost), "?page=%d&pageSize=%d", &n, &size); err != nil {
		return prismic.Page{}, fmt.Errorf("bad page url %q", pageURL)
	}
	return f.page(n, size), nil
}

func postDoc(uid string, published time.Time, data map[string]any) prismic.Document {
	b, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	return prismic.Document{
		ID:                   "id-" + uid,
		UID:                  uid,
		Type:                 PostType,
		FirstPublicationDate: prismic.NewTimestamp(published),
		LastPublicationDate:  prismic.NewTimestamp(published),
		Data:                 b,
	}
}

// newFakeBackend returns n posts, newest first.
func newFakeBackend(n int) *fakeBackend {
	f := &fakeBackend{}
	base := time.Date(2021, 3, 25, 19, 25, 28, 0, time.UTC)
	for i := 0; i < n; i++ {
		uid := "post-" + strconv.Itoa(i+1)
		f.docs = append(f.docs, postDoc(uid, base.Add(-time.Duration(i)*24*time.Hour), map[string]any{
			"title":    "Post " + strconv.Itoa(i+1),
			"subtitle": "Subtitle " + strconv.Itoa(i+1),
			"author":   "Author",
			"banner":   map[string]any{"url": "https://images.prismic.io/" + uid + ".png"},
			"content": []any{
				map[string]any{"heading": "Heading one", "body": []any{
					map[string]any{"type": "paragraph", "text": "A B", "spans": []any{}},
				}},
				map[string]any{"heading": "Heading two", "body": []any{
					map[string]any{"type": "paragraph", "text": "C D E", "spans": []any{}},
				}},
			},
		}))
	}
	return f
}
