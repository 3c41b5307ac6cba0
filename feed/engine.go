package feed

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"storefeed/api/models"
)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	FetchTimeout time.Duration
	StickyAnchor bool
	PinTTL       time.Duration
	Scroll       ScrollPolicy
	Now          func() time.Time
	AfterFunc    AfterFunc
}

// View is the UI-facing feed contract.
type View struct {
	Items         []models.CatalogItem `json:"items"`
	Loading       bool                 `json:"loading"`
	ErrorMessage  string               `json:"errorMessage,omitempty"`
	LoadMoreError string               `json:"loadMoreError,omitempty"`
	HasMore       bool                 `json:"hasMore"`
	Empty         bool                 `json:"empty"`
	ActiveTab     models.Tab           `json:"activeTab"`
	Tabs          []models.TabOption   `json:"tabs"`
	RecentlyRail  *models.AffinityRail `json:"recentlyRail"`
	BecauseRail   *models.AffinityRail `json:"becauseRail"`
	ForYouRail    *models.AffinityRail `json:"forYouRail"`
	CityRail      *models.CityRail     `json:"cityRail"`
	ScrollOffset  float64              `json:"scrollOffset"`
}

// Engine is one visitor's personalized feed: the grid, the rails, and the city channel.
type Engine struct {
	ctrl     *Controller
	pipeline *Pipeline
	recency  *RecencyLog
	prefs    *Preferences
	cache    *StateCache
	trigger  *ScrollTrigger

	mu       sync.Mutex
	rails    Rails
	railsGen uint64
	city     *models.CityPreference
	cityRail *models.CityRail
	cityGen  uint64
	scroll   float64

	bg sync.WaitGroup
}

// NewEngine wires an engine over the catalog, the category lookups, the visitor's KV
// store and a feed state cache.
func NewEngine(catalog Catalog, lookup CategoryLookup, kv KV, cache *StateCache, opts Options) *Engine {
	if cache == nil {
		cache = NewStateCache()
	}
	if opts.Scroll == (ScrollPolicy{}) {
		opts.Scroll = DefaultScrollPolicy
	}
	recency := NewRecencyLog(kv, opts.Now)
	prefs := NewPreferences(kv, opts.Now, opts.PinTTL)
	e := &Engine{
		ctrl:    NewController(catalog, opts.FetchTimeout),
		recency: recency,
		prefs:   prefs,
		cache:   cache,
	}
	e.pipeline = NewPipeline(catalog, lookup, recency, prefs, PipelineOptions{
		Timeout:      opts.FetchTimeout,
		StickyAnchor: opts.StickyAnchor,
	})
	e.trigger = NewScrollTrigger(opts.Scroll, e.fireLoadMore, opts.AfterFunc)
	return e
}

// Recency exposes the browsing log so the product view tracker can record into it.
func (e *Engine) Recency() *RecencyLog { return e.recency }

// Mount shows the feed. A cached snapshot is restored without a catalog fetch and only the
// rails are refreshed in the background; otherwise the first page of "new" is loaded while
// the rails and the city rail are derived in the background. It reports whether the
// snapshot was restored.
func (e *Engine) Mount(ctx context.Context) bool {
	bgCtx := context.WithoutCancel(ctx)

	pref := e.prefs.City(ctx)
	e.setCity(pref)

	if snap, ok := e.cache.Load(); ok {
		e.ctrl.Hydrate(snap)
		e.mu.Lock()
		e.rails = Rails{Recently: snap.RecentlyRail, Because: snap.BecauseRail, ForYou: snap.ForYouRail}
		e.scroll = snap.ScrollOffset
		needCityRail := pref != nil && (e.cityRail == nil || e.cityRail.City != pref.City)
		e.mu.Unlock()

		e.goBackground(func() { e.refreshRails(bgCtx) })
		if needCityRail {
			e.goBackground(func() { e.refreshCityRail(bgCtx, pref.City) })
		}
		return true
	}

	e.mu.Lock()
	e.scroll = 0
	e.mu.Unlock()
	e.goBackground(func() { e.refreshRails(bgCtx) })
	if pref != nil {
		e.goBackground(func() { e.refreshCityRail(bgCtx, pref.City) })
	}
	_ = e.ctrl.LoadFirstPage(ctx, models.TabNew)
	return false
}

// Unmount snapshots the feed and the scroll offset into the cache. Only a settled,
// successfully loaded grid is cached, so the next mount never restores a spinner or an error.
func (e *Engine) Unmount(scrollOffset float64) {
	st := e.ctrl.State()
	if st.Status != StatusLoaded || st.Loading() {
		e.cache.Clear()
		return
	}
	e.mu.Lock()
	e.scroll = scrollOffset
	snap := models.FeedState{
		Items:        st.Items,
		Page:         st.Page,
		HasMore:      st.HasMore,
		ActiveTab:    st.Tab,
		RecentlyRail: e.rails.Recently,
		BecauseRail:  e.rails.Because,
		ForYouRail:   e.rails.ForYou,
		ScrollOffset: scrollOffset,
	}
	e.mu.Unlock()
	e.cache.Store(snap)
}

// SelectTab switches the grid to tab. Results still in flight for the previous tab are dropped.
func (e *Engine) SelectTab(ctx context.Context, tab models.Tab) error {
	e.trigger.Reset()
	return e.ctrl.LoadFirstPage(ctx, tab)
}

// LoadMore appends the next page of the active tab.
func (e *Engine) LoadMore(ctx context.Context) error {
	return e.loadMore(ctx)
}

// Retry re-runs the first page fetch of the active tab.
func (e *Engine) Retry(ctx context.Context) error {
	e.trigger.Reset()
	return e.ctrl.Retry(ctx)
}

// ObserveSentinel feeds a viewport signal into the scroll trigger.
func (e *Engine) ObserveSentinel(distance int) {
	e.trigger.Observe(distance)
}

func (e *Engine) fireLoadMore() {
	if err := e.loadMore(context.Background()); err != nil {
		log.Debug().Err(err).Msg("scroll-triggered load more failed")
	}
}

// loadMore re-arms the scroll trigger once a page was appended, so a sentinel that is
// still within the margin after the append fires again.
func (e *Engine) loadMore(ctx context.Context) error {
	before := len(e.ctrl.State().Items)
	err := e.ctrl.LoadMore(ctx)
	if err == nil && len(e.ctrl.State().Items) > before {
		e.trigger.Reset()
	}
	return err
}

// ApplyCity persists the city preference and refreshes the city rail. The grid is
// reloaded only when the city tab is active. An empty city removes the preference.
func (e *Engine) ApplyCity(ctx context.Context, city, region string) error {
	pref := models.CityPreference{City: strings.TrimSpace(city), Region: strings.TrimSpace(region)}
	if err := e.prefs.SetCity(ctx, pref); err != nil {
		return err
	}
	onCityTab := e.ctrl.State().Tab == models.TabCity

	if pref.City == "" {
		e.rememberCity(nil)
		if onCityTab {
			e.trigger.Reset()
			return e.ctrl.SwitchCity(ctx, "", models.TabNew)
		}
		e.ctrl.SetCity("")
		return nil
	}

	e.rememberCity(&pref)
	if !onCityTab {
		e.ctrl.SetCity(pref.City)
		e.refreshCityRail(ctx, pref.City)
		return nil
	}
	e.trigger.Reset()
	err := e.ctrl.SwitchCity(ctx, pref.City, models.TabCity)
	e.refreshCityRail(ctx, pref.City)
	return err
}

// Tabs lists the tabs to render. The city tab exists only with a city preference.
func (e *Engine) Tabs() []models.TabOption {
	e.mu.Lock()
	city := e.city
	e.mu.Unlock()
	return tabOptions(city)
}

func tabOptions(city *models.CityPreference) []models.TabOption {
	tabs := []models.TabOption{
		{ID: models.TabNew, Label: "New"},
		{ID: models.TabPopular, Label: "Popular"},
		{ID: models.TabSale, Label: "On sale"},
		{ID: models.TabUnderCap, Label: "Under " + PriceCap.String()},
	}
	if city != nil {
		tabs = append(tabs, models.TabOption{ID: models.TabCity, Label: "In " + city.City})
	}
	return tabs
}

// View returns the current UI state.
func (e *Engine) View() View {
	st := e.ctrl.State()
	e.mu.Lock()
	defer e.mu.Unlock()
	items := st.Items
	if items == nil {
		items = []models.CatalogItem{}
	}
	return View{
		Items:         items,
		Loading:       st.Loading(),
		ErrorMessage:  st.ErrorMessage,
		LoadMoreError: st.LoadMoreError,
		HasMore:       st.HasMore,
		Empty:         st.Status == StatusLoaded && len(st.Items) == 0,
		ActiveTab:     st.Tab,
		Tabs:          tabOptions(e.city),
		RecentlyRail:  e.rails.Recently,
		BecauseRail:   e.rails.Because,
		ForYouRail:    e.rails.ForYou,
		CityRail:      e.cityRail,
		ScrollOffset:  e.scroll,
	}
}

// ClearCache drops the cached snapshot, e.g. on sign-out.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// Wait blocks until background work started by Mount has finished.
func (e *Engine) Wait() {
	e.bg.Wait()
}

func (e *Engine) goBackground(fn func()) {
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		fn()
	}()
}

func (e *Engine) setCity(pref *models.CityPreference) {
	e.rememberCity(pref)
	if pref == nil {
		e.ctrl.SetCity("")
		return
	}
	e.ctrl.SetCity(pref.City)
}

// rememberCity updates the engine's city without touching the grid.
func (e *Engine) rememberCity(pref *models.CityPreference) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.city = pref
	if pref == nil {
		e.cityGen++
		e.cityRail = nil
	}
}

func (e *Engine) refreshRails(ctx context.Context) {
	e.mu.Lock()
	e.railsGen++
	gen := e.railsGen
	e.mu.Unlock()

	rails := e.pipeline.Run(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen == e.railsGen {
		e.rails = rails
	}
}

func (e *Engine) refreshCityRail(ctx context.Context, city string) {
	e.mu.Lock()
	e.cityGen++
	gen := e.cityGen
	e.mu.Unlock()

	items, err := e.ctrl.fetch(ctx, cityQuery(city))
	if err != nil {
		log.Warn().Err(err).Str("city", city).Msg("city rail")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.cityGen {
		return
	}
	if err != nil {
		e.cityRail = nil
		return
	}
	e.cityRail = newCityRail(city, items)
}

func newCityRail(city string, items []models.CatalogItem) *models.CityRail {
	rail := &models.CityRail{City: city, Items: items}
	if len(items) == 0 {
		rail.Items = []models.CatalogItem{}
		rail.Notice = "Coming soon to " + city
	}
	return rail
}
