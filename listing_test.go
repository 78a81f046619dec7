package spacetraveling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/prismic"
)

func TestListingLoadMoreGrowsInOrder(t *testing.T) {
	backend := newFakeBackend(5)
	listing := NewListing(backend, 2)
	ctx := context.Background()

	state, err := listing.InitialPage(ctx)
	require.NoError(t, err)
	require.Len(t, state.Results, 2)
	require.True(t, state.HasMore())

	loads := 0
	for state.HasMore() {
		before := len(state.Results)
		next, err := listing.LoadMore(ctx, state)
		require.NoError(t, err)
		assert.Equal(t, state.Results, next.Results[:before], "earlier results are untouched")
		state = next
		loads++
	}

	assert.Equal(t, 2, loads)
	require.Len(t, state.Results, 5)
	for i, uid := range []string{"post-1", "post-2", "post-3", "post-4", "post-5"} {
		assert.Equal(t, uid, state.Results[i].UID)
	}
	assert.Equal(t, "", state.NextPage)

	_, err = listing.LoadMore(ctx, state)
	assert.True(t, errors.Is(err, ErrNoMorePages))
}

func TestListingKeepsRawTimestamps(t *testing.T) {
	listing := NewListing(newFakeBackend(1), 2)
	state, err := listing.InitialPage(context.Background())
	require.NoError(t, err)
	require.NotNil(t, state.Results[0].FirstPublicationDate)
	assert.True(t, state.Results[0].FirstPublicationDate.Equal(time.Date(2021, 3, 25, 19, 25, 28, 0, time.UTC)))
}

func TestListingEmpty(t *testing.T) {
	listing := NewListing(&fakeBackend{}, 2)
	state, err := listing.InitialPage(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state.Results)
	assert.False(t, state.HasMore())
}

func TestListingLoadMoreFailureKeepsState(t *testing.T) {
	backend := newFakeBackend(3)
	listing := NewListing(backend, 2)
	ctx := context.Background()

	state, err := listing.InitialPage(ctx)
	require.NoError(t, err)

	backend.fetchErr = &prismic.APIError{StatusCode: 503, URL: fakeHost}
	got, err := listing.LoadMore(ctx, state)
	require.Error(t, err)
	assert.Equal(t, state, got)

	backend.fetchErr = nil
	got, err = listing.LoadMore(ctx, state)
	require.NoError(t, err)
	assert.Len(t, got.Results, 3)
}

func TestListingMalformedDocumentFailsPage(t *testing.T) {
	backend := newFakeBackend(2)
	backend.docs[1] = postDoc("broken", time.Now(), map[string]any{"subtitle": "no title"})
	_, err := NewListing(backend, 2).InitialPage(context.Background())
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestListingNextBatchRejectsEmptyPage(t *testing.T) {
	_, err := NewListing(newFakeBackend(1), 2).NextBatch(context.Background(), "")
	assert.True(t, errors.Is(err, ErrNoMorePages))
}
