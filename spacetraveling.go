// Package spacetraveling is a blog front-end that reads posts from a headless
// CMS, renders them with templ and serves them with Echo. Listing and post
// pages are generated once, cached, and regenerated in the background after a
// revalidate window; the listing grows through an incremental "load more"
// endpoint.
//
// Templates are supplied through ViewFuncs, so the package itself only owns
// data fetching, caching and HTTP plumbing.
package spacetraveling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eringen/spacetraveling/prismic"
)

// ViewFuncs holds the templ components the App renders.
type ViewFuncs struct {
	Home            func(state Pagination, meta PageMeta) templ.Component
	PostList        func(batch Pagination, loadFailed bool) templ.Component
	Post            func(post PostDetail, readingMinutes int, meta PageMeta) templ.Component
	PostPartial     func(post PostDetail, readingMinutes int) templ.Component
	PostLoading     func(slug string, meta PageMeta) templ.Component
	NotFound        func() templ.Component
	NotFoundPartial func() templ.Component
	ServerError     func() templ.Component
}

// App wires together the backend, controllers, caches, handlers and views.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Backend Backend
	Listing *Listing
	Detail  *Detail
	Views   ViewFuncs

	listingCache *PageCache[Pagination]
	feedCache    *PageCache[Pagination]
	pathsCache   *PageCache[[]PathEntry]
	postCache    *PageCache[postPage]

	limiter       *IPLimiter
	lookupLimiter *IPLimiter
	metrics *prometheus.Registry
	logger  *slog.Logger
}

// postPage is the cached outcome of a post lookup. A resolved not-found is
// cached like a post so it is not retried before it goes stale.
type postPage struct {
	Post     PostDetail
	NotFound bool
}

// New creates an App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  views,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Setup builds the backend client, caches, middleware and routes, then
// prerenders the listing and every known post unless SkipPrerender is set.
func (a *App) Setup(ctx context.Context) error {
	if a.Backend == nil {
		if a.Config.PrismicEndpoint == "" {
			return fmt.Errorf("spacetraveling: PrismicEndpoint is required")
		}
		client, err := prismic.New(a.Config.PrismicEndpoint, prismic.WithAccessToken(a.Config.PrismicAccessToken))
		if err != nil {
			return fmt.Errorf("spacetraveling: init backend: %w", err)
		}
		a.Backend = client
	}
	a.Listing = NewListing(a.Backend, a.Config.PageSize)
	a.Detail = NewDetail(a.Backend)

	var err error
	if a.listingCache, err = NewPageCache[Pagination](1, a.Config.ListingRevalidate, a.logger); err != nil {
		return fmt.Errorf("spacetraveling: init cache: %w", err)
	}
	if a.feedCache, err = NewPageCache[Pagination](1, a.Config.Revalidate, a.logger); err != nil {
		return fmt.Errorf("spacetraveling: init cache: %w", err)
	}
	if a.pathsCache, err = NewPageCache[[]PathEntry](1, a.Config.Revalidate, a.logger); err != nil {
		return fmt.Errorf("spacetraveling: init cache: %w", err)
	}
	if a.postCache, err = NewPageCache[postPage](a.Config.CacheSize, a.Config.Revalidate, a.logger); err != nil {
		return fmt.Errorf("spacetraveling: init cache: %w", err)
	}

	a.limiter = NewIPLimiter(a.Config.LoadMorePerMinute, time.Minute)
	a.lookupLimiter = NewIPLimiter(a.Config.LookupsPerMinute, time.Minute)
	a.metrics = prometheus.NewRegistry()

	a.setupMiddleware()
	a.setupRoutes()

	if a.Config.SkipPrerender {
		return nil
	}
	return a.Prerender(ctx)
}

// Start sets the app up and serves HTTP on Config.Addr.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}
	a.logger.Info("listening", "addr", a.Config.Addr, "backend", a.Config.PrismicEndpoint)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Prerender generates the listing and every enumerated post. Backend
// failures abort it.
func (a *App) Prerender(ctx context.Context) error {
	start := time.Now()
	if _, err := a.listingCache.Get(ctx, "/", a.Listing.InitialPage); err != nil {
		return fmt.Errorf("spacetraveling: prerender listing: %w", err)
	}
	entries, err := a.pathsCache.Get(ctx, "paths", a.Detail.Entries)
	if err != nil {
		return fmt.Errorf("spacetraveling: prerender paths: %w", err)
	}
	for _, e := range entries {
		if _, err := a.postCache.Get(ctx, e.Path, a.generatePost(e.UID)); err != nil {
			return fmt.Errorf("spacetraveling: prerender %s: %w", e.Path, err)
		}
	}
	a.logger.Info("prerendered pages", "posts", len(entries), "took", time.Since(start))
	return nil
}

func (a *App) generatePost(uid string) GenerateFunc[postPage] {
	return func(ctx context.Context) (postPage, error) {
		post, err := a.Detail.Fetch(ctx, uid)
		if errors.Is(err, ErrNotFound) {
			return postPage{NotFound: true}, nil
		}
		if err != nil {
			return postPage{}, err
		}
		return postPage{Post: post}, nil
	}
}

func (a *App) generateFeed(ctx context.Context) (Pagination, error) {
	return a.Listing.Latest(ctx, feedSize)
}

func (a *App) setupRoutes() {
	e := a.Echo

	assets, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.GET("/public/*", echo.WrapHandler(http.StripPrefix("/public/", http.FileServer(http.FS(assets)))))
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/metrics", a.metricsHandler())

	e.GET("/", a.handleHome)
	e.GET("/posts/more", a.handleLoadMore)
	e.GET("/post/:slug", a.handlePost)
}

// Close releases background resources. Call it when the app is shutting down.
func (a *App) Close() error {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.lookupLimiter != nil {
		a.lookupLimiter.Stop()
	}
	a.waitRegenerations()
	return nil
}

// waitRegenerations blocks until background page regenerations finish.
func (a *App) waitRegenerations() {
	if a.listingCache != nil {
		a.listingCache.Wait()
	}
	if a.feedCache != nil {
		a.feedCache.Wait()
	}
	if a.pathsCache != nil {
		a.pathsCache.Wait()
	}
	if a.postCache != nil {
		a.postCache.Wait()
	}
}
