package views

import (
	"context"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/contentstore"
)

var loadMoreAttr = regexp.MustCompile(`data-load-more="([^"]+)"`)

// newTestSite serves the fixture posts from an in-process content API and
// renders them through the real views, one post per page. Unknown posts
// block on the lookup instead of showing the loading page.
func newTestSite(t *testing.T) *spacetraveling.App {
	t.Helper()
	store, err := contentstore.NewStore(filepath.Join(t.TempDir(), "content.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	fixture, err := contentstore.ReadFixture("../contentstore/testdata/posts.yaml")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if _, err := store.Seed(context.Background(), fixture); err != nil {
		t.Fatalf("seed: %v", err)
	}

	e := echo.New()
	contentstore.NewServer(store, "").Register(e.Group("/api/v2"))
	api := httptest.NewServer(e)
	t.Cleanup(api.Close)

	cfg := spacetraveling.SiteConfig{
		Name:            "spacetraveling",
		Locale:          "pt-BR",
		TimeZone:        "UTC",
		PrismicEndpoint: api.URL + "/api/v2",
		PageSize:        1,
		SkipPrerender:   true,
		DisableFallback: true,
	}
	app := spacetraveling.New(cfg, New(cfg).Funcs(),
		spacetraveling.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err := app.Setup(context.Background()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app
}

func serve(app *spacetraveling.App, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestLoadMoreBatchFormatsDateOnce(t *testing.T) {
	app := newTestSite(t)

	home := serve(app, "/")
	if home.Code != http.StatusOK {
		t.Fatalf("home: status %d", home.Code)
	}
	m := loadMoreAttr.FindStringSubmatch(home.Body.String())
	if m == nil {
		t.Fatalf("expected load-more control on home, got %q", home.Body.String())
	}
	next := html.UnescapeString(m[1])

	rec := serve(app, "/posts/more?page="+url.QueryEscape(next))
	if rec.Code != http.StatusOK {
		t.Fatalf("load more: status %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `href="/post/como-utilizar-hooks"`) {
		t.Errorf("expected second post in batch, got %q", body)
	}
	if n := strings.Count(body, "15 mar 2021"); n != 1 {
		t.Errorf("expected formatted date exactly once, got %d in %q", n, body)
	}
	if strings.Contains(body, "<html") {
		t.Errorf("expected list items only, got %q", body)
	}
}

func TestPostPageRendersFromContentAPI(t *testing.T) {
	app := newTestSite(t)

	rec := serve(app, "/post/como-utilizar-hooks")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Como utilizar Hooks | spacetraveling</title>",
		`<img class="banner" src="https://images.prismic.io/criando-um-app-cra-do-zero/banner.png"`,
		`<h2 id="proin-et-varius">Proin et varius</h2>`,
		"15 mar 2021",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in post page", want)
		}
	}

	rec = serve(app, "/post/nao-existe")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown post, got %d", rec.Code)
	}
}
