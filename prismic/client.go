// Package prismic is a small client for the Prismic v2 REST API. It resolves
// the master ref, runs predicate queries with field projection and paging,
// looks documents up by UID and follows the opaque next_page URLs the API
// hands out.
package prismic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to one Prismic repository endpoint, e.g.
// https://repo.cdn.prismic.io/api/v2.
type Client struct {
	endpoint    *url.URL
	accessToken string
	http        *http.Client
	limiter     *rate.Limiter
	refTTL      time.Duration
	now         func() time.Time

	mu        sync.Mutex
	ref       string
	refExpiry time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithAccessToken sets the token sent as the access_token query parameter.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.accessToken = token
	}
}

// WithRateLimit caps outgoing requests. rate.Inf disables limiting.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// WithRefTTL sets how long the master ref is reused before it is re-resolved.
func WithRefTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.refTTL = ttl
	}
}

// New returns a Client for endpoint. The endpoint must be an absolute URL.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("prismic: parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("prismic: endpoint %q must be an absolute URL", endpoint)
	}
	c := &Client{
		endpoint: u,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(20), 20),
		refTTL:  5 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// At builds an "at" predicate: [[at(path,"value")]].
func At(path, value string) string {
	return "[[at(" + path + "," + strconv.Quote(value) + ")]]"
}

type apiInfo struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

// Ref returns the master ref, resolving it when the cached one has expired.
func (c *Client) Ref(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.ref != "" && c.now().Before(c.refExpiry) {
		ref := c.ref
		c.mu.Unlock()
		return ref, nil
	}
	c.mu.Unlock()

	var info apiInfo
	if err := c.getJSON(ctx, c.buildURL(nil), &info); err != nil {
		return "", err
	}
	for _, r := range info.Refs {
		if r.IsMasterRef && r.Ref != "" {
			c.mu.Lock()
			c.ref = r.Ref
			c.refExpiry = c.now().Add(c.refTTL)
			c.mu.Unlock()
			return r.Ref, nil
		}
	}
	return "", fmt.Errorf("prismic: no master ref: %w", ErrMalformedResponse)
}

// Search runs the given predicates against the master ref.
func (c *Client) Search(ctx context.Context, predicates []string, opts QueryOptions) (Page, error) {
	ref, err := c.Ref(ctx)
	if err != nil {
		return Page{}, err
	}
	q := url.Values{}
	q.Set("ref", ref)
	for _, p := range predicates {
		q.Add("q", p)
	}
	if len(opts.Fetch) > 0 {
		q.Set("fetch", strings.Join(opts.Fetch, ","))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	var page Page
	if err := c.getJSON(ctx, c.buildURL(q, "documents", "search"), &page); err != nil {
		return Page{}, err
	}
	return page, nil
}

// QueryByType returns one page of documents of the given custom type, in the
// API's default order.
func (c *Client) QueryByType(ctx context.Context, docType string, opts QueryOptions) (Page, error) {
	return c.Search(ctx, []string{At("document.type", docType)}, opts)
}

// GetByUID returns the single document of docType with the given UID.
func (c *Client) GetByUID(ctx context.Context, docType, uid string) (Document, error) {
	page, err := c.Search(ctx, []string{At("my."+docType+".uid", uid)}, QueryOptions{PageSize: 1})
	if err != nil {
		return Document{}, err
	}
	if len(page.Results) == 0 {
		return Document{}, fmt.Errorf("%s %q: %w", docType, uid, ErrNotFound)
	}
	return page.Results[0], nil
}

// FetchPage GETs an opaque next_page URL previously returned by the API.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme != c.endpoint.Scheme || u.Host != c.endpoint.Host {
		return Page{}, ErrForeignPage
	}
	var page Page
	if err := c.getJSON(ctx, u.String(), &page); err != nil {
		return Page{}, err
	}
	return page, nil
}

func (c *Client) buildURL(q url.Values, elem ...string) string {
	u := c.endpoint.JoinPath(elem...)
	if q == nil {
		q = url.Values{}
	}
	if c.accessToken != "" {
		q.Set("access_token", c.accessToken)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("prismic: GET %s: %w", redact(rawURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &APIError{StatusCode: resp.StatusCode, URL: redact(rawURL)}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("prismic: decode %s: %w: %w", redact(rawURL), ErrMalformedResponse, err)
	}
	return nil
}

// redact drops the query string so access tokens never reach logs.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	return u.String()
}
