package prismic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const refsBody = `{"refs":[{"id":"preview","ref":"P1","isMasterRef":false},{"id":"master","ref":"M1","isMasterRef":true}]}`

func newTestAPI(t *testing.T, search http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var refCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refCalls, 1)
		_, _ = w.Write([]byte(refsBody))
	})
	mux.HandleFunc("/api/v2/documents/search", search)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &refCalls
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithRateLimit(rate.Inf, 0)}, opts...)
	c, err := New(srv.URL+"/api/v2", opts...)
	require.NoError(t, err)
	return c
}

func TestNewRejectsRelativeEndpoint(t *testing.T) {
	_, err := New("/api/v2")
	assert.Error(t, err)
}

func TestQueryByTypeBuildsSearch(t *testing.T) {
	srv, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "M1", q.Get("ref"))
		assert.Equal(t, []string{`[[at(document.type,"post")]]`}, q["q"])
		assert.Equal(t, "post.title,post.subtitle,post.author", q.Get("fetch"))
		assert.Equal(t, "2", q.Get("pageSize"))
		assert.Equal(t, "secret", q.Get("access_token"))
		_, _ = w.Write([]byte(`{
			"page": 1, "results_per_page": 2, "results_size": 1, "total_results_size": 3, "total_pages": 2,
			"next_page": "` + "http://" + r.Host + `/api/v2/documents/search?page=2",
			"prev_page": null,
			"results": [{"id":"X1","uid":"hello","type":"post","first_publication_date":"2021-03-25T19:25:28+0000","last_publication_date":null,"data":{"title":"Hello"}}]
		}`))
	})
	c := newTestClient(t, srv, WithAccessToken("secret"))

	page, err := c.QueryByType(context.Background(), "post", QueryOptions{
		Fetch:    []string{"post.title", "post.subtitle", "post.author"},
		PageSize: 2,
	})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, srv.URL+"/api/v2/documents/search?page=2", page.Next())
	assert.Nil(t, page.PrevPage)

	doc := page.Results[0]
	assert.Equal(t, "hello", doc.UID)
	require.True(t, doc.FirstPublicationDate.Valid)
	assert.True(t, doc.FirstPublicationDate.Time.Equal(time.Date(2021, 3, 25, 19, 25, 28, 0, time.UTC)))
	assert.False(t, doc.LastPublicationDate.Valid)
	assert.Nil(t, doc.LastPublicationDate.Ptr())
	assert.JSONEq(t, `{"title":"Hello"}`, string(doc.Data))
}

func TestRefIsCached(t *testing.T) {
	srv, refCalls := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	c := newTestClient(t, srv, WithRefTTL(time.Minute))

	for i := 0; i < 3; i++ {
		_, err := c.QueryByType(context.Background(), "post", QueryOptions{})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(refCalls))
}

func TestGetByUID(t *testing.T) {
	srv, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("pageSize"))
		if q.Get("q") == `[[at(my.post.uid,"known")]]` {
			_, _ = w.Write([]byte(`{"results":[{"uid":"known","type":"post","data":{}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	c := newTestClient(t, srv)

	doc, err := c.GetByUID(context.Background(), "post", "known")
	require.NoError(t, err)
	assert.Equal(t, "known", doc.UID)

	_, err = c.GetByUID(context.Background(), "post", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNon2xxIsAPIError(t *testing.T) {
	srv, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream err", http.StatusBadGateway)
	})
	c := newTestClient(t, srv, WithAccessToken("secret"))

	_, err := c.QueryByType(context.Background(), "post", QueryOptions{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.NotContains(t, apiErr.Error(), "secret")
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestInvalidJSONIsMalformed(t *testing.T) {
	srv, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": "not an array"}`))
	})
	c := newTestClient(t, srv)

	_, err := c.QueryByType(context.Background(), "post", QueryOptions{})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestBadTimestampIsMalformed(t *testing.T) {
	srv, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"uid":"a","first_publication_date":"yesterday"}]}`))
	})
	c := newTestClient(t, srv)

	_, err := c.QueryByType(context.Background(), "post", QueryOptions{})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFetchPage(t *testing.T) {
	srv, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`{"page":2,"next_page":null,"results":[{"uid":"b"},{"uid":"c"}]}`))
	})
	c := newTestClient(t, srv)

	page, err := c.FetchPage(context.Background(), srv.URL+"/api/v2/documents/search?ref=M1&page=2")
	require.NoError(t, err)
	assert.Len(t, page.Results, 2)
	assert.Equal(t, "", page.Next())
}

func TestFetchPageRejectsForeignHost(t *testing.T) {
	srv, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("foreign page must not be fetched")
	})
	c := newTestClient(t, srv)

	for _, u := range []string{
		"http://evil.example/api/v2/documents/search?page=2",
		"::not a url",
		"",
	} {
		_, err := c.FetchPage(context.Background(), u)
		assert.ErrorIs(t, err, ErrForeignPage, u)
	}
}

func TestAtQuotesValue(t *testing.T) {
	assert.Equal(t, `[[at(my.post.uid,"a\"b")]]`, At("my.post.uid", `a"b`))
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := NewTimestamp(time.Date(2021, 4, 1, 10, 0, 0, 0, time.UTC))
	b, err := ts.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2021-04-01T10:00:00+0000"`, string(b))

	var back Timestamp
	require.NoError(t, back.UnmarshalJSON(b))
	assert.True(t, back.Time.Equal(ts.Time))

	require.NoError(t, back.UnmarshalJSON([]byte("null")))
	assert.False(t, back.Valid)
}
