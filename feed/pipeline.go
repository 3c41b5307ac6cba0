package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"storefeed/api/models"
)

const recentlyViewedTitle = "Recently viewed"

// Rails is the output of one personalization run. Any rail may be nil.
type Rails struct {
	Recently *models.AffinityRail
	Because  *models.AffinityRail
	ForYou   *models.AffinityRail
}

// Pipeline turns the recency log into recommendation rails.
type Pipeline struct {
	catalog  Catalog
	resolver *AffinityResolver
	recency  *RecencyLog
	prefs    *Preferences
	timeout  time.Duration
	sticky   bool
}

// PipelineOptions tunes a Pipeline.
type PipelineOptions struct {
	Timeout      time.Duration
	StickyAnchor bool // consult the anchor pin before live recency
}

func NewPipeline(catalog Catalog, lookup CategoryLookup, recency *RecencyLog, prefs *Preferences, opts PipelineOptions) *Pipeline {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	return &Pipeline{
		catalog:  catalog,
		resolver: NewAffinityResolver(lookup),
		recency:  recency,
		prefs:    prefs,
		timeout:  opts.Timeout,
		sticky:   opts.StickyAnchor,
	}
}

// Run derives all rails. Failures are logged and leave the affected rail nil.
func (p *Pipeline) Run(ctx context.Context) Rails {
	entries := p.recency.ReadAll(ctx)
	if len(entries) == 0 {
		return Rails{}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var rails Rails
	var g errgroup.Group
	g.Go(func() error {
		rail, err := p.recentlyViewed(ctx, entries)
		if err != nil {
			log.Warn().Err(err).Msg("recently viewed rail")
		}
		rails.Recently = rail
		return nil
	})
	g.Go(func() error {
		primaries, err := p.resolver.PrimaryCategories(ctx, productIDs(entries))
		if err != nil {
			log.Warn().Err(err).Msg("affinity rails")
			return nil
		}
		var inner errgroup.Group
		inner.Go(func() error {
			rail, err := p.because(ctx, entries, primaries)
			if err != nil {
				log.Warn().Err(err).Msg("because-you-viewed rail")
			}
			rails.Because = rail
			return nil
		})
		inner.Go(func() error {
			rail, err := p.forYou(ctx, entries, primaries)
			if err != nil {
				log.Warn().Err(err).Msg("for-you rail")
			}
			rails.ForYou = rail
			return nil
		})
		return inner.Wait()
	})
	_ = g.Wait()
	return rails
}

func (p *Pipeline) recentlyViewed(ctx context.Context, entries []models.RecencyEntry) (*models.AffinityRail, error) {
	ids := productIDs(entries)
	items, err := p.catalog.Query(ctx, itemsByIDQuery(ids, len(ids)))
	if err != nil {
		return nil, fmt.Errorf("recently viewed items: %w", err)
	}
	byID := make(map[string]models.CatalogItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	ordered := make([]models.CatalogItem, 0, len(items))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			ordered = append(ordered, it)
		}
	}
	return newRail(recentlyViewedTitle, ordered), nil
}

func (p *Pipeline) because(ctx context.Context, entries []models.RecencyEntry, primaries map[string]CategoryRef) (*models.AffinityRail, error) {
	anchorProduct, ref, ok := BecauseAnchor(entries, primaries)
	path := ref.Path
	if p.sticky {
		if pin, pinned := p.prefs.Pin(ctx); pinned {
			path, ok = pin.Path, true
		} else if ok {
			if err := p.prefs.SetPin(ctx, path); err != nil {
				log.Warn().Err(err).Msg("pinning anchor category")
			}
		}
	}
	if !ok {
		return nil, nil
	}
	exclude := map[string]struct{}{anchorProduct: {}}
	items, err := p.subtreeItems(ctx, path, exclude)
	if err != nil {
		return nil, err
	}
	return newRail(becauseTitle(path), items), nil
}

func (p *Pipeline) forYou(ctx context.Context, entries []models.RecencyEntry, primaries map[string]CategoryRef) (*models.AffinityRail, error) {
	ref, ok := ForYouAnchor(entries, primaries)
	if !ok {
		return nil, nil
	}
	exclude := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		exclude[e.ProductID] = struct{}{}
	}
	items, err := p.subtreeItems(ctx, ref.Path, exclude)
	if err != nil {
		return nil, err
	}
	return newRail(forYouTitle(ref.Path), items), nil
}

func (p *Pipeline) subtreeItems(ctx context.Context, path string, exclude map[string]struct{}) ([]models.CatalogItem, error) {
	ids, err := p.resolver.Candidates(ctx, path, exclude)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	items, err := p.catalog.Query(ctx, itemsByIDQuery(ids, PageSize))
	if err != nil {
		return nil, fmt.Errorf("rail items for %q: %w", path, err)
	}
	kept := items[:0:0]
	for _, it := range items {
		if _, skip := exclude[it.ID]; !skip {
			kept = append(kept, it)
		}
	}
	return kept, nil
}

func newRail(title string, items []models.CatalogItem) *models.AffinityRail {
	if len(items) == 0 {
		return nil
	}
	if len(items) > PageSize {
		items = items[:PageSize]
	}
	return &models.AffinityRail{Title: title, Items: items}
}
