package picks

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vadimtrunov/CriticsPicks/internal/core"
)

// Fetcher is a page source that can name the endpoint it reads from.
type Fetcher interface {
	core.PicksSource
	Endpoint() string
}

type pageKey struct {
	url    string
	offset int
}

func (k pageKey) String() string {
	return k.url + "#" + strconv.Itoa(k.offset)
}

// PageCache memoizes pages by (endpoint, offset) for the life of the process.
// Entries are written once and never evicted; the offsets visited in a
// session are few. Concurrent misses for the same key share one upstream call.
type PageCache struct {
	source Fetcher
	logger *slog.Logger

	mu    sync.RWMutex
	pages map[pageKey]*core.Page
	group singleflight.Group
}

// compile-time check.
var _ core.PicksSource = (*PageCache)(nil)

// NewPageCache wraps source with a memoizing layer.
func NewPageCache(source Fetcher, logger *slog.Logger) *PageCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageCache{
		source: source,
		logger: logger,
		pages:  make(map[pageKey]*core.Page),
	}
}

// FetchPage returns the cached page for offset, fetching it on a miss.
// Failures are not cached.
func (c *PageCache) FetchPage(ctx context.Context, offset int) (*core.Page, error) {
	key := pageKey{url: c.source.Endpoint(), offset: offset}
	if page, ok := c.get(key); ok {
		c.logger.Debug("page cache hit", slog.Int("offset", offset))
		return page, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// One caller giving up must not fail the others waiting on the same key.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (any, error) {
		// Another flight may have filled the entry between our miss and now.
		if page, ok := c.get(key); ok {
			return page, nil
		}
		page, err := c.source.FetchPage(shared, offset)
		if err != nil {
			return nil, err
		}
		c.set(key, page)
		return page, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*core.Page), nil
	}
}

// Len returns the number of cached pages.
func (c *PageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}

func (c *PageCache) get(key pageKey) (*core.Page, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	page, ok := c.pages[key]
	return page, ok
}

func (c *PageCache) set(key pageKey, page *core.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.pages[key]; exists {
		return
	}
	c.pages[key] = page
}

// ImageCache memoizes image sources by pick identity.
type ImageCache struct {
	mu      sync.RWMutex
	sources map[string]string
}

// NewImageCache creates an empty ImageCache.
func NewImageCache() *ImageCache {
	return &ImageCache{sources: make(map[string]string)}
}

// Source returns the image URL for p. It reports false for picks without an
// image descriptor; those are never stored.
func (c *ImageCache) Source(p core.Pick) (string, bool) {
	if !p.HasImage() {
		return "", false
	}
	key := p.Key()

	c.mu.RLock()
	src, ok := c.sources[key]
	c.mu.RUnlock()
	if ok {
		return src, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if src, ok := c.sources[key]; ok {
		return src, true
	}
	c.sources[key] = p.ImageSource
	return p.ImageSource, true
}

// Len returns the number of memoized image sources.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sources)
}
