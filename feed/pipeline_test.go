package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefeed/api/models"
)

type pipelineFixture struct {
	catalog *memCatalog
	lookup  *fakeLookup
	kv      *memKV
	recency *RecencyLog
	prefs   *Preferences
}

func newPipelineFixture() *pipelineFixture {
	clock := stepClock()
	kv := newMemKV()
	return &pipelineFixture{
		catalog: &memCatalog{},
		lookup:  newFakeLookup(),
		kv:      kv,
		recency: NewRecencyLog(kv, clock),
		prefs:   NewPreferences(kv, clock, 0),
	}
}

func (f *pipelineFixture) pipeline(sticky bool) *Pipeline {
	return NewPipeline(f.catalog, f.lookup, f.recency, f.prefs, PipelineOptions{Timeout: time.Second, StickyAnchor: sticky})
}

func railIDs(r *models.AffinityRail) []string {
	if r == nil {
		return nil
	}
	ids := make([]string, len(r.Items))
	for i, it := range r.Items {
		ids[i] = it.ID
	}
	return ids
}

func TestPipeline_RugsScenario(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture()
	f.catalog.items = []models.CatalogItem{item("p1", 1), item("p2", 2)}
	f.lookup.addProduct("p1", "c-rugs", "home/rugs", true)
	f.lookup.addProduct("p2", "c-rugs", "home/rugs", true)
	require.NoError(t, f.recency.Record(ctx, "p1"))

	rails := f.pipeline(false).Run(ctx)

	require.NotNil(t, rails.Recently)
	assert.Equal(t, "Recently viewed", rails.Recently.Title)
	assert.Equal(t, []string{"p1"}, railIDs(rails.Recently))

	require.NotNil(t, rails.Because)
	assert.Equal(t, "Rugs you'll love", rails.Because.Title)
	assert.Equal(t, []string{"p2"}, railIDs(rails.Because))

	require.NotNil(t, rails.ForYou)
	assert.Equal(t, "More rugs for you", rails.ForYou.Title)
	assert.Equal(t, []string{"p2"}, railIDs(rails.ForYou))
}

func TestPipeline_EmptyLogSkipsLookups(t *testing.T) {
	f := newPipelineFixture()
	f.catalog.items = items("p", 3)

	rails := f.pipeline(false).Run(context.Background())

	assert.Equal(t, Rails{}, rails)
	assert.Zero(t, f.lookup.calls.Load())
	assert.Zero(t, f.catalog.calls.Load())
}

func TestPipeline_RecentlyViewedKeepsLogOrder(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture()
	// p3 is the newest listing but the oldest view.
	f.catalog.items = []models.CatalogItem{item("p1", 30), item("p2", 20), item("p3", 1)}
	for _, id := range []string{"p3", "p1", "p2", "gone"} {
		require.NoError(t, f.recency.Record(ctx, id))
	}

	rails := f.pipeline(false).Run(ctx)
	assert.Equal(t, []string{"p2", "p1", "p3"}, railIDs(rails.Recently))
	assert.Nil(t, rails.Because)
	assert.Nil(t, rails.ForYou)
}

func TestPipeline_ForYouExcludesEveryRecentProduct(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture()
	f.catalog.items = []models.CatalogItem{item("r1", 1), item("r2", 2), item("r3", 3), item("r4", 4)}
	f.lookup.addProduct("r1", "c-rugs", "home/rugs", true)
	f.lookup.addProduct("r2", "c-rugs", "home/rugs", true)
	f.lookup.addProduct("r3", "c-rugs", "home/rugs", true)
	f.lookup.addProduct("r4", "c-rugs", "home/rugs", true)
	require.NoError(t, f.recency.Record(ctx, "r2"))
	require.NoError(t, f.recency.Record(ctx, "r1"))

	rails := f.pipeline(false).Run(ctx)
	assert.Equal(t, []string{"r2", "r3", "r4"}, railIDs(rails.Because))
	assert.Equal(t, []string{"r3", "r4"}, railIDs(rails.ForYou))
}

func TestPipeline_LookupFailureDropsAffinityRails(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture()
	f.catalog.items = []models.CatalogItem{item("p1", 1)}
	f.lookup.err = errors.New("permission denied")
	require.NoError(t, f.recency.Record(ctx, "p1"))

	rails := f.pipeline(false).Run(ctx)
	assert.NotNil(t, rails.Recently)
	assert.Nil(t, rails.Because)
	assert.Nil(t, rails.ForYou)
}

func TestPipeline_CatalogFailureDropsRails(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture()
	f.catalog.err = errors.New("timeout")
	f.lookup.addProduct("p1", "c-rugs", "home/rugs", true)
	f.lookup.addProduct("p2", "c-rugs", "home/rugs", true)
	require.NoError(t, f.recency.Record(ctx, "p1"))

	assert.Equal(t, Rails{}, f.pipeline(false).Run(ctx))
}

func TestPipeline_StickyAnchor(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture()
	f.catalog.items = []models.CatalogItem{item("p1", 1), item("p2", 2), item("l1", 3)}
	f.lookup.addProduct("p1", "c-rugs", "home/rugs", true)
	f.lookup.addProduct("p2", "c-rugs", "home/rugs", true)
	f.lookup.addProduct("l1", "c-lamps", "home/lamps", true)
	require.NoError(t, f.recency.Record(ctx, "p1"))

	rails := f.pipeline(true).Run(ctx)
	assert.Equal(t, "Rugs you'll love", rails.Because.Title)
	pin, ok := f.prefs.Pin(ctx)
	require.True(t, ok)
	assert.Equal(t, "home/rugs", pin.Path)

	require.NoError(t, f.prefs.SetPin(ctx, "home/lamps"))
	rails = f.pipeline(true).Run(ctx)
	assert.Equal(t, "Lamps you'll love", rails.Because.Title)
	assert.Equal(t, []string{"l1"}, railIDs(rails.Because))

	rails = f.pipeline(false).Run(ctx)
	assert.Equal(t, "Rugs you'll love", rails.Because.Title, "pins are ignored unless sticky")
}
