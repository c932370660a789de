package picks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vadimtrunov/CriticsPicks/internal/core"
	"github.com/vadimtrunov/CriticsPicks/internal/timeago"
)

// State is the pagination state of one session.
type State struct {
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// View is everything a presentation layer needs to draw one screen.
type View struct {
	Page       *core.Page
	Offset     int
	CanAdvance bool
	CanRetreat bool
	Err        error
}

// Controller owns one session's pagination state and resolves the current
// page through a (usually cached) source. It is safe for concurrent use;
// calls are serialised per session.
type Controller struct {
	source core.PicksSource
	images *ImageCache
	times  *timeago.Formatter
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used for relative publication times.
func WithClock(clock timeago.Clock) Option {
	return func(c *Controller) { c.times = timeago.NewFormatter(clock) }
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a controller at offset 0 with HasMore set.
// A nil images cache gets a private one.
func NewController(source core.PicksSource, images *ImageCache, opts ...Option) *Controller {
	if images == nil {
		images = NewImageCache()
	}
	c := &Controller{
		source: source,
		images: images,
		times:  timeago.NewFormatter(nil),
		logger: slog.Default(),
		state:  State{Offset: 0, HasMore: true},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the pagination state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentPage resolves the page at the current offset. On failure the offset
// is reset to 0 and the first page is tried once; if that also fails HasMore
// is cleared and the error returned. Context cancellation skips the fallback.
func (c *Controller) CurrentPage(ctx context.Context) (*core.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPageLocked(ctx)
}

func (c *Controller) currentPageLocked(ctx context.Context) (*core.Page, error) {
	page, err := c.source.FetchPage(ctx, c.state.Offset)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		c.logger.Warn("fetch failed, falling back to first page",
			slog.Int("offset", c.state.Offset),
			slog.String("error", err.Error()),
		)
		c.state.Offset = 0
		page, err = c.source.FetchPage(ctx, 0)
		if err != nil {
			c.state.HasMore = false
			return nil, fmt.Errorf("fetch first page: %w", err)
		}
	}
	c.state.HasMore = page.HasMore
	return page, nil
}

// Snapshot resolves the current page and the control states in one step.
// A failed fetch yields an empty page with both controls disabled.
func (c *Controller) Snapshot(ctx context.Context) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	page, err := c.currentPageLocked(ctx)
	if err != nil {
		return View{
			Page:   &core.Page{Offset: c.state.Offset},
			Offset: c.state.Offset,
			Err:    err,
		}
	}
	return View{
		Page:       page,
		Offset:     c.state.Offset,
		CanAdvance: c.state.HasMore,
		CanRetreat: c.state.Offset >= BatchSize,
	}
}

// Advance moves one page forward when more pages exist. It reports whether
// the offset changed and the current page must be recomputed.
func (c *Controller) Advance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.HasMore {
		return false
	}
	c.state.Offset += BatchSize
	return true
}

// Retreat moves one page back unless already at the first page. It is not
// gated on HasMore.
func (c *Controller) Retreat() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Offset < BatchSize {
		return false
	}
	c.state.Offset -= BatchSize
	return true
}

// CanAdvance reports whether Advance would move.
func (c *Controller) CanAdvance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.HasMore
}

// CanRetreat reports whether Retreat would move.
func (c *Controller) CanRetreat() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Offset >= BatchSize
}

// ImageSourceFor returns the memoized image URL for p, or false when p has no image.
func (c *Controller) ImageSourceFor(p core.Pick) (string, bool) {
	return c.images.Source(p)
}

// RelativeTime formats p's publication date relative to the controller clock.
func (c *Controller) RelativeTime(p core.Pick) (string, error) {
	return c.times.Format(p.PublicationDate)
}
