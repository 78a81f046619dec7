package views

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/richtext"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func testViews() *Views {
	return New(spacetraveling.SiteConfig{
		Name:     "spacetraveling",
		URL:      "http://localhost:3000",
		Locale:   "pt-BR",
		TimeZone: "UTC",
	})
}

func TestHomeFormatsRawDateOnce(t *testing.T) {
	v := testViews()
	date := time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC)
	state := spacetraveling.Pagination{
		Results: []spacetraveling.PostSummary{{
			UID:                  "como-utilizar-hooks",
			FirstPublicationDate: &date,
			Data:                 spacetraveling.SummaryData{Title: "Como utilizar Hooks", Subtitle: "Pensando em sincronização", Author: "Joseph Oliveira"},
		}},
	}
	html := render(t, v.Home(state, spacetraveling.PageMeta{Title: "Posts"}))

	if strings.Count(html, "15 mar 2021") != 1 {
		t.Errorf("expected formatted date exactly once, got %q", html)
	}
	if !strings.Contains(html, `datetime="2021-03-15T19:25:28Z"`) {
		t.Errorf("expected raw timestamp in datetime attribute")
	}
	if !strings.Contains(html, `href="/post/como-utilizar-hooks"`) {
		t.Errorf("expected link to post")
	}
	if strings.Contains(html, "data-load-more") {
		t.Errorf("expected no load-more control without next page")
	}
}

func TestPostListFormatsRawDateOnce(t *testing.T) {
	v := testViews()
	date := time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC)
	batch := spacetraveling.Pagination{
		Results: []spacetraveling.PostSummary{{
			UID:                  "como-utilizar-hooks",
			FirstPublicationDate: &date,
			Data:                 spacetraveling.SummaryData{Title: "Como utilizar Hooks"},
		}},
	}
	html := render(t, v.PostList(batch, false))

	if n := strings.Count(html, "15 mar 2021"); n != 1 {
		t.Errorf("expected formatted date exactly once, got %d in %q", n, html)
	}
	if !strings.Contains(html, `<time datetime="2021-03-15T19:25:28Z">15 mar 2021</time>`) {
		t.Errorf("expected time element with raw and formatted date, got %q", html)
	}
}

func TestLoadMoreControlRendersOnlyWithNextPage(t *testing.T) {
	v := testViews()
	next := "https://repo.cdn.prismic.io/api/v2/documents/search?page=2&pageSize=2"

	withNext := render(t, v.PostList(spacetraveling.Pagination{NextPage: next}, false))
	if !strings.Contains(withNext, `data-load-more="https://repo.cdn.prismic.io/api/v2/documents/search?page=2&amp;pageSize=2"`) {
		t.Errorf("expected load-more control with escaped next page, got %q", withNext)
	}
	if strings.Contains(withNext, `role="alert"`) {
		t.Errorf("expected no error message on successful load")
	}

	without := render(t, v.PostList(spacetraveling.Pagination{}, false))
	if strings.Contains(without, "data-load-more") {
		t.Errorf("expected no load-more control, got %q", without)
	}
}

func TestPostListFailureKeepsControl(t *testing.T) {
	v := testViews()
	html := render(t, v.PostList(spacetraveling.Pagination{NextPage: "p2"}, true))
	if !strings.Contains(html, `role="alert"`) {
		t.Errorf("expected visible error, got %q", html)
	}
	if !strings.Contains(html, `data-load-more="p2"`) {
		t.Errorf("expected retry control for the same page, got %q", html)
	}
}

func TestPostRendersSectionsAndReadingTime(t *testing.T) {
	v := testViews()
	post := spacetraveling.PostDetail{
		UID: "hooks",
		Data: spacetraveling.DetailData{
			Title:  "Como utilizar <Hooks>",
			Banner: spacetraveling.Banner{URL: "https://images.prismic.io/banner.png"},
			Content: []spacetraveling.Section{
				{Heading: "Proin et varius", Body: []richtext.Block{{Type: "paragraph", Text: "first"}}},
				{Heading: "Cras laoreet", Body: []richtext.Block{{Type: "paragraph", Text: "second"}}},
			},
		},
	}
	html := render(t, v.Post(post, 4, spacetraveling.PageMeta{Title: "Hooks"}))

	if !strings.Contains(html, "Como utilizar &lt;Hooks&gt;") {
		t.Errorf("expected escaped title")
	}
	if !strings.Contains(html, "4 min") {
		t.Errorf("expected reading time")
	}
	first := strings.Index(html, "Proin et varius")
	second := strings.Index(html, "Cras laoreet")
	if first < 0 || second < 0 || first > second {
		t.Errorf("expected sections in order")
	}
	if !strings.Contains(html, `<img class="banner" src="https://images.prismic.io/banner.png"`) {
		t.Errorf("expected banner image")
	}
	if !strings.Contains(html, "application/ld+json") {
		t.Errorf("expected JSON-LD")
	}
}

func TestPostPartialHasNoChrome(t *testing.T) {
	v := testViews()
	html := render(t, v.PostPartial(spacetraveling.PostDetail{Data: spacetraveling.DetailData{Title: "T"}}, 0))
	if strings.Contains(html, "<html") {
		t.Errorf("expected fragment, got %q", html)
	}
	if !strings.Contains(html, "0 min") {
		t.Errorf("expected zero reading time for empty content")
	}
}

func TestLoadingAndNotFoundAreDistinct(t *testing.T) {
	v := testViews()
	loading := render(t, v.PostLoading("new-post", spacetraveling.PageMeta{}))
	if !strings.Contains(loading, `data-fallback="/post/new-post"`) {
		t.Errorf("expected fallback loader, got %q", loading)
	}
	notFound := render(t, v.NotFound())
	if strings.Contains(notFound, "data-fallback") || strings.Contains(notFound, loadingLabel) {
		t.Errorf("not-found page must not look like the loading page")
	}
	if !strings.Contains(render(t, v.NotFoundPartial()), "Post não encontrado") {
		t.Errorf("expected not-found message in partial")
	}
}
