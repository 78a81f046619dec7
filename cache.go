package spacetraveling

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// GenerateFunc produces the data behind one cached page.
type GenerateFunc[T any] func(ctx context.Context) (T, error)

// PageCache keeps generated page data for a revalidate window. After the
// window an entry is stale: it is still served while one background
// regeneration per key replaces it. Failed generations are never cached.
type PageCache[T any] struct {
	entries    *lru.Cache[string, pageEntry[T]]
	group      singleflight.Group
	revalidate time.Duration
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger
	wg         sync.WaitGroup
}

type pageEntry[T any] struct {
	value     T
	generated time.Time
}

// NewPageCache creates a PageCache holding at most size entries. A
// non-positive revalidate keeps entries fresh forever.
func NewPageCache[T any](size int, revalidate time.Duration, logger *slog.Logger) (*PageCache[T], error) {
	entries, err := lru.New[string, pageEntry[T]](size)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageCache[T]{
		entries:    entries,
		revalidate: revalidate,
		timeout:    30 * time.Second,
		now:        time.Now,
		logger:     logger,
	}, nil
}

func (c *PageCache[T]) fresh(e pageEntry[T]) bool {
	return c.revalidate <= 0 || c.now().Sub(e.generated) < c.revalidate
}

// Peek returns the cached value for key without generating or revalidating.
func (c *PageCache[T]) Peek(key string) (T, bool) {
	e, ok := c.entries.Peek(key)
	return e.value, ok
}

// Get returns the value for key. A missing key is generated before
// returning; a stale one is returned immediately and regenerated in the
// background.
func (c *PageCache[T]) Get(ctx context.Context, key string, gen GenerateFunc[T]) (T, error) {
	if e, ok := c.entries.Get(key); ok {
		if !c.fresh(e) {
			c.Revalidate(key, gen)
		}
		return e.value, nil
	}
	return c.generate(ctx, key, gen)
}

// Revalidate regenerates key in the background. On failure the previous
// entry, if any, stays in place.
func (c *PageCache[T]) Revalidate(key string, gen GenerateFunc[T]) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if _, err := c.generate(ctx, key, gen); err != nil {
			c.logger.Warn("page regeneration failed", "key", key, "error", err)
		}
	}()
}

// Wait blocks until in-flight background regenerations finish.
func (c *PageCache[T]) Wait() {
	c.wg.Wait()
}

// Len returns the number of cached entries.
func (c *PageCache[T]) Len() int {
	return c.entries.Len()
}

// generate runs gen once per key for all concurrent callers. The work is
// detached from ctx: a caller that gives up stops waiting, but the
// generation keeps going for the callers that stay.
func (c *PageCache[T]) generate(ctx context.Context, key string, gen GenerateFunc[T]) (T, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		if e, ok := c.entries.Peek(key); ok && c.fresh(e) {
			return e.value, nil
		}
		gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		value, err := gen(gctx)
		if err != nil {
			return nil, err
		}
		c.entries.Add(key, pageEntry[T]{value: value, generated: c.now()})
		c.logger.Debug("page generated", "key", key)
		return value, nil
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
