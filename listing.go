package spacetraveling

import (
	"context"
	"fmt"

	"github.com/eringen/spacetraveling/prismic"
)

// Backend is the part of the CMS client the controllers depend on.
type Backend interface {
	QueryByType(ctx context.Context, docType string, opts prismic.QueryOptions) (prismic.Page, error)
	GetByUID(ctx context.Context, docType, uid string) (prismic.Document, error)
	FetchPage(ctx context.Context, pageURL string) (prismic.Page, error)
}

var _ Backend = (*prismic.Client)(nil)

var summaryFields = []string{"post.title", "post.subtitle", "post.author"}

// Listing builds and extends the post listing.
type Listing struct {
	backend  Backend
	pageSize int
}

// NewListing returns a Listing that requests pageSize posts per page.
func NewListing(b Backend, pageSize int) *Listing {
	return &Listing{backend: b, pageSize: pageSize}
}

// InitialPage queries the first page of post summaries.
func (l *Listing) InitialPage(ctx context.Context) (Pagination, error) {
	return l.query(ctx, l.pageSize)
}

// Latest returns up to n most recent summaries.
func (l *Listing) Latest(ctx context.Context, n int) (Pagination, error) {
	return l.query(ctx, n)
}

func (l *Listing) query(ctx context.Context, pageSize int) (Pagination, error) {
	page, err := l.backend.QueryByType(ctx, PostType, prismic.QueryOptions{
		Fetch:    summaryFields,
		PageSize: pageSize,
	})
	if err != nil {
		return Pagination{}, fmt.Errorf("listing: query posts: %w", err)
	}
	return decodeSummaries(page)
}

// NextBatch fetches the page behind nextPage and returns just that batch.
func (l *Listing) NextBatch(ctx context.Context, nextPage string) (Pagination, error) {
	if nextPage == "" {
		return Pagination{}, ErrNoMorePages
	}
	page, err := l.backend.FetchPage(ctx, nextPage)
	if err != nil {
		return Pagination{}, fmt.Errorf("listing: fetch next page: %w", err)
	}
	return decodeSummaries(page)
}

// LoadMore fetches the next page of state and appends it. On error the state
// is returned unchanged, so the same next page can be retried.
func (l *Listing) LoadMore(ctx context.Context, state Pagination) (Pagination, error) {
	if !state.HasMore() {
		return state, ErrNoMorePages
	}
	batch, err := l.NextBatch(ctx, state.NextPage)
	if err != nil {
		return state, err
	}
	return state.Append(batch), nil
}
