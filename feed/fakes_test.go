package feed

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"storefeed/api/models"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// item builds a catalog item; higher age means older.
func item(id string, age int) models.CatalogItem {
	return models.CatalogItem{
		ID:        id,
		Title:     "Item " + id,
		Price:     decimal.NewFromInt(100),
		CreatedAt: baseTime.Add(-time.Duration(age) * time.Minute),
	}
}

func items(prefix string, n int) []models.CatalogItem {
	out := make([]models.CatalogItem, n)
	for i := range out {
		out[i] = item(prefix+"-"+strconv.Itoa(i), i)
	}
	return out
}

// memCatalog evaluates the id, city and range parts of a QuerySpec over a fixed item set.
type memCatalog struct {
	mu    sync.Mutex
	items []models.CatalogItem
	err   error
	calls atomic.Int32
	specs []QuerySpec
}

func (m *memCatalog) Query(_ context.Context, q QuerySpec) ([]models.CatalogItem, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.specs = append(m.specs, q)
	err := m.err
	all := append([]models.CatalogItem(nil), m.items...)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var out []models.CatalogItem
	for _, it := range all {
		if matches(it, q.Filters) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.From >= len(out) {
		return []models.CatalogItem{}, nil
	}
	out = out[q.From:]
	if limit := q.Limit(); limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func matches(it models.CatalogItem, filters []Filter) bool {
	for _, f := range filters {
		switch {
		case f.Field == FieldID && f.Op == OpIn:
			found := false
			for _, id := range f.Value.([]string) {
				if id == it.ID {
					found = true
				}
			}
			if !found {
				return false
			}
		case f.Field == FieldCity && f.Op == OpEq:
			if !strings.EqualFold(it.City, f.Value.(string)) {
				return false
			}
		}
	}
	return true
}

// funcCatalog delegates to fn.
type funcCatalog func(ctx context.Context, q QuerySpec) ([]models.CatalogItem, error)

func (f funcCatalog) Query(ctx context.Context, q QuerySpec) ([]models.CatalogItem, error) {
	return f(ctx, q)
}

// fakeLookup is an in-memory category tree.
type fakeLookup struct {
	primaries map[string][]models.CategoryPrimaryLink // productID -> links
	paths     map[string]string                       // categoryID -> path
	links     map[string][]string                     // categoryID -> productIDs
	err       error
	calls     atomic.Int32
	release   chan struct{} // when set, PrimaryCategories waits for it to close
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		primaries: map[string][]models.CategoryPrimaryLink{},
		paths:     map[string]string{},
		links:     map[string][]string{},
	}
}

// addProduct links productID to category catID at path, as primary when primary is true.
func (f *fakeLookup) addProduct(productID, catID, path string, primary bool) {
	f.paths[catID] = path
	f.links[catID] = append(f.links[catID], productID)
	if primary {
		f.primaries[productID] = append(f.primaries[productID], models.CategoryPrimaryLink{
			ProductID: productID, CategoryID: catID, Path: path, Label: RailLabel(path),
		})
	}
}

func (f *fakeLookup) PrimaryCategories(_ context.Context, productIDs []string) ([]models.CategoryPrimaryLink, error) {
	if f.release != nil {
		<-f.release
	}
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	var out []models.CategoryPrimaryLink
	for _, id := range productIDs {
		out = append(out, f.primaries[id]...)
	}
	return out, nil
}

func (f *fakeLookup) CategoryIDsByPathPrefix(_ context.Context, prefix string) ([]string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for id, path := range f.paths {
		if strings.HasPrefix(path, prefix) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeLookup) ProductIDsByCategories(_ context.Context, categoryIDs []string, limit int) ([]string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	seen := map[string]bool{}
	for _, c := range categoryIDs {
		for _, p := range f.links[c] {
			if seen[p] || len(out) == limit {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// memKV is a map-backed KV. getDelay widens the gap between a read and the next write.
type memKV struct {
	mu       sync.Mutex
	m        map[string]string
	getErr   error
	getDelay time.Duration
}

func newMemKV() *memKV { return &memKV{m: map[string]string{}} }

func (k *memKV) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.Lock()
	delay := k.getDelay
	err := k.getErr
	v, ok := k.m[key]
	k.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return "", false, err
	}
	return v, ok, nil
}

func (k *memKV) failReads(err error) {
	k.mu.Lock()
	k.getErr = err
	k.mu.Unlock()
}

func (k *memKV) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = value
	return nil
}

func (k *memKV) Remove(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.m, key)
	return nil
}

// stepClock returns a clock that advances by one second per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	now := baseTime
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}
