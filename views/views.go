// Package views renders the site's pages as templ components, handed to the
// app as spacetraveling.ViewFuncs.
package views

//go:generate templ generate

import (
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling"
)

const (
	loadMoreLabel   = "Carregar mais posts"
	loadFailedLabel = "Não foi possível carregar mais posts."
	loadingLabel    = "Carregando..."
)

// site is what every template needs to know about the running site.
type site struct {
	cfg    spacetraveling.SiteConfig
	loc    *time.Location
	locale string
}

func (s site) date(t *time.Time) string {
	return FormatDate(t, s.loc, s.locale)
}

func (s site) title(meta spacetraveling.PageMeta) string {
	if meta.Title == "" {
		return s.cfg.Name
	}
	return meta.Title
}

// jsonLD embeds a structured data payload. json.Marshal escapes <, > and &,
// so the payload cannot close the script element.
func jsonLD(payload string) templ.Component {
	return templ.Raw(`<script type="application/ld+json">` + payload + `</script>`)
}

// Views renders pages for one site configuration.
type Views struct {
	site site
}

// New creates Views for cfg. An unknown time zone falls back to UTC.
func New(cfg spacetraveling.SiteConfig) *Views {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil || cfg.TimeZone == "" {
		loc = time.UTC
	}
	return &Views{site: site{cfg: cfg, loc: loc, locale: cfg.Locale}}
}

// Funcs returns the view functions the app renders with.
func (v *Views) Funcs() spacetraveling.ViewFuncs {
	return spacetraveling.ViewFuncs{
		Home:            v.Home,
		PostList:        v.PostList,
		Post:            v.Post,
		PostPartial:     v.PostPartial,
		PostLoading:     v.PostLoading,
		NotFound:        v.NotFound,
		NotFoundPartial: v.NotFoundPartial,
		ServerError:     v.ServerError,
	}
}

// Home renders the listing page.
func (v *Views) Home(state spacetraveling.Pagination, meta spacetraveling.PageMeta) templ.Component {
	return homePage(v.site, state, meta)
}

// PostList renders one load-more batch.
func (v *Views) PostList(batch spacetraveling.Pagination, loadFailed bool) templ.Component {
	return postItems(v.site, batch, loadFailed)
}

func (v *Views) Post(post spacetraveling.PostDetail, readingMinutes int, meta spacetraveling.PageMeta) templ.Component {
	return postPage(v.site, post, readingMinutes, meta)
}

// PostPartial renders the post body alone, for the loading page to swap in.
func (v *Views) PostPartial(post spacetraveling.PostDetail, readingMinutes int) templ.Component {
	return postArticle(v.site, post, readingMinutes)
}

func (v *Views) PostLoading(slug string, meta spacetraveling.PageMeta) templ.Component {
	return loadingPage(v.site, slug, meta)
}

func (v *Views) NotFound() templ.Component {
	return notFoundPage(v.site)
}

// NotFoundPartial renders the 404 message without the page chrome.
func (v *Views) NotFoundPartial() templ.Component {
	return notFoundMessage()
}

func (v *Views) ServerError() templ.Component {
	return serverErrorPage(v.site)
}
