package spacetraveling

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/prismic"
)

// PartialHeader marks requests from the page script that want a fragment
// instead of a full document.
const PartialHeader = "X-Partial-Request"

const feedSize = 20

func (a *App) handleHome(c echo.Context) error {
	state, err := a.listingCache.Get(c.Request().Context(), "/", a.Listing.InitialPage)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(state, PageMeta{
		Title:       "Posts | " + a.Config.Name,
		Description: a.Config.Description,
		URL:         BuildURL(a.Config.URL),
		OGType:      "website",
	}))
}

// pageResponse is the JSON shape of a load-more batch. Timestamps stay raw.
type pageResponse struct {
	Results  []PostSummary `json:"results"`
	NextPage *string       `json:"next_page"`
}

func newPageResponse(p Pagination) pageResponse {
	resp := pageResponse{Results: p.Results}
	if resp.Results == nil {
		resp.Results = []PostSummary{}
	}
	if p.HasMore() {
		next := p.NextPage
		resp.NextPage = &next
	}
	return resp
}

// handleLoadMore returns the batch behind ?page= as list items plus a fresh
// load-more control. When the fetch fails the control comes back with the
// same page reference and a visible error, so the user can retry.
func (a *App) handleLoadMore(c echo.Context) error {
	if !a.limiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many requests. Try again later.")
	}
	next := c.QueryParam("page")
	if next == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing page")
	}
	wantsJSON := strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)

	batch, err := a.Listing.NextBatch(c.Request().Context(), next)
	if errors.Is(err, prismic.ErrForeignPage) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if err != nil {
		c.Logger().Errorf("load more: %v", err)
		if wantsJSON {
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "could not load more posts"})
		}
		return Render(c, a.Views.PostList(Pagination{NextPage: next}, true))
	}
	if wantsJSON {
		return c.JSON(http.StatusOK, newPageResponse(batch))
	}
	return Render(c, a.Views.PostList(batch, false))
}

// handlePost serves a single post. The first full-page request for a path
// that was not prerendered gets a loading page while the post is generated
// in the background; the page script then asks for the partial, which waits
// for the result.
func (a *App) handlePost(c echo.Context) error {
	slug := c.Param("slug")
	key := PostPath(slug)
	gen := a.generatePost(slug)
	partial := c.Request().Header.Get(PartialHeader) == "post"

	_, cached := a.postCache.Peek(key)
	if !cached && !a.lookupLimiter.Allow(c.RealIP()) {
		// each miss costs a CMS request and a cache slot
		return c.String(http.StatusTooManyRequests, "Too many requests. Try again later.")
	}
	if !cached && !partial && !a.Config.DisableFallback {
		a.postCache.Revalidate(key, gen)
		c.Response().Header().Set("Cache-Control", "no-store")
		return Render(c, a.Views.PostLoading(slug, PageMeta{
			Title:  a.Config.Name,
			URL:    BuildURL(a.Config.URL, key),
			OGType: "article",
		}))
	}

	page, err := a.postCache.Get(c.Request().Context(), key, gen)
	if err != nil {
		return err
	}
	if page.NotFound {
		if partial {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFoundPartial())
		}
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
	}

	minutes := ReadingTime(page.Post)
	if partial {
		return Render(c, a.Views.PostPartial(page.Post, minutes))
	}
	return Render(c, a.Views.Post(page.Post, minutes, PageMeta{
		Title:       page.Post.Data.Title + " | " + a.Config.Name,
		Description: page.Post.Data.Subtitle,
		URL:         BuildURL(a.Config.URL, key),
		OGType:      "article",
		Image:       page.Post.Data.Banner.URL,
	}))
}

func (a *App) handleSitemap(c echo.Context) error {
	entries, err := a.pathsCache.Get(c.Request().Context(), "paths", a.Detail.Entries)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, entries)
}

func (a *App) handleFeed(c echo.Context) error {
	latest, err := a.feedCache.Get(c.Request().Context(), "feed", a.generateFeed)
	if err != nil {
		return err
	}
	return a.renderRSS(c, latest.Results)
}

func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /posts/more\n\nSitemap: %s/sitemap.xml\n", a.Config.URL)
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if errors.Is(err, ErrNotFound) {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		if c.Request().Header.Get(PartialHeader) != "" {
			// the page script shows its own message for failed fragments
			_ = c.NoContent(code)
			return
		}
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

func cacheSeconds(d time.Duration) int {
	return int(d / time.Second)
}
