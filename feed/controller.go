package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"storefeed/api/models"
)

// DefaultFetchTimeout bounds every catalog page fetch.
const DefaultFetchTimeout = 10 * time.Second

// Controller owns the paginated grid for one visitor.
type Controller struct {
	catalog Catalog
	timeout time.Duration

	mu   sync.Mutex
	st   FetchState
	city string
	gen  uint64 // bumped by every first-page load; results from older generations are dropped
}

// NewController creates an idle controller. A zero timeout selects DefaultFetchTimeout.
func NewController(catalog Catalog, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Controller{
		catalog: catalog,
		timeout: timeout,
		st:      FetchState{Status: StatusIdle, Tab: models.TabNew},
	}
}

// State returns a copy of the current grid state.
func (c *Controller) State() FetchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// SetCity sets the city used by the city tab.
func (c *Controller) SetCity(city string) {
	c.mu.Lock()
	c.city = city
	c.mu.Unlock()
}

// Hydrate replaces the state with a cached snapshot and invalidates in-flight fetches.
func (c *Controller) Hydrate(snap models.FeedState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.st = hydrated(snap)
}

// FetchPage runs one page of tab, raced against the controller timeout.
func (c *Controller) FetchPage(ctx context.Context, tab models.Tab, page int) ([]models.CatalogItem, error) {
	c.mu.Lock()
	city := c.city
	c.mu.Unlock()
	return c.fetch(ctx, BuildQuery(tab, city).Page(page))
}

func (c *Controller) fetch(ctx context.Context, q QuerySpec) ([]models.CatalogItem, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		items []models.CatalogItem
		err   error
	}
	done := make(chan result, 1)
	go func() {
		items, err := c.catalog.Query(ctx, q)
		done <- result{items: items, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return nil, NewTimeout()
			}
			return nil, NewQueryError(r.err)
		}
		return r.items, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, NewTimeout()
		}
		return nil, NewQueryError(ctx.Err())
	}
}

// LoadFirstPage resets the grid to page 0 of tab. It returns the fetch error, if any;
// the error is also reflected in State. A superseded call returns nil and changes nothing.
func (c *Controller) LoadFirstPage(ctx context.Context, tab models.Tab) error {
	return c.loadFirstPage(ctx, tab, nil)
}

// SwitchCity sets the city and resets the grid to page 0 of tab under one lock, so a
// page of the previous city can never be appended after the switch.
func (c *Controller) SwitchCity(ctx context.Context, city string, tab models.Tab) error {
	return c.loadFirstPage(ctx, tab, &city)
}

func (c *Controller) loadFirstPage(ctx context.Context, tab models.Tab, city *string) error {
	c.mu.Lock()
	if city != nil {
		c.city = *city
	}
	tab = ResolveTab(tab, c.city)
	q := BuildQuery(tab, c.city).Page(0)
	c.gen++
	gen := c.gen
	c.st = c.st.beginFirstPage(tab)
	c.mu.Unlock()

	items, err := c.fetch(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		log.Debug().Str("tab", string(tab)).Msg("discarding stale first page")
		return nil
	}
	if err != nil {
		c.st = c.st.firstPageFailed(err)
		log.Warn().Err(err).Str("tab", string(tab)).Msg("first page failed")
		return err
	}
	c.st = c.st.firstPageLoaded(items)
	return nil
}

// LoadMore appends the next page. It is a no-op without more pages or while loading.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if !c.st.canLoadMore() {
		c.mu.Unlock()
		return nil
	}
	gen := c.gen
	tab := c.st.Tab
	page := c.st.Page + 1
	q := BuildQuery(tab, c.city).Page(page)
	c.st = c.st.beginLoadMore()
	c.mu.Unlock()

	items, err := c.fetch(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		log.Debug().Str("tab", string(tab)).Int("page", page).Msg("discarding stale page")
		return nil
	}
	if err != nil {
		c.st = c.st.moreFailed(err)
		log.Warn().Err(err).Str("tab", string(tab)).Int("page", page).Msg("load more failed")
		return err
	}
	c.st = c.st.moreLoaded(items)
	return nil
}

// Retry re-issues the first page of the active tab.
func (c *Controller) Retry(ctx context.Context) error {
	return c.LoadFirstPage(ctx, c.State().Tab)
}
