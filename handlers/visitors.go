package handlers

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"storefeed/api/feed"
)

const (
	DefaultMaxVisitors = 10000
	DefaultVisitorTTL  = 30 * time.Minute
)

// EngineFactory builds the feed engine of one visitor.
type EngineFactory func(visitorID string) *feed.Engine

// Visitors keeps the feed engines of recently active visitors. An engine is evicted once
// maxEngines newer visitors have been seen, or after idle without a request. Eviction only
// drops the in-memory feed snapshot; the browsing log, city and pin stay in the KV store.
type Visitors struct {
	mu        sync.Mutex
	engines   *expirable.LRU[string, *feed.Engine]
	newEngine EngineFactory
}

// NewVisitors creates a registry. Non-positive limits select the defaults.
func NewVisitors(newEngine EngineFactory, maxEngines int, idle time.Duration) *Visitors {
	if maxEngines <= 0 {
		maxEngines = DefaultMaxVisitors
	}
	if idle <= 0 {
		idle = DefaultVisitorTTL
	}
	onEvict := func(visitorID string, e *feed.Engine) {
		log.Debug().Str("visitor_id", visitorID).Msg("evicting visitor feed")
		e.ClearCache()
	}
	return &Visitors{
		engines:   expirable.NewLRU[string, *feed.Engine](maxEngines, onEvict, idle),
		newEngine: newEngine,
	}
}

// Engine returns the visitor's engine, creating it on first use. Every call restarts
// the idle timer.
func (v *Visitors) Engine(visitorID string) *feed.Engine {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.engines.Get(visitorID)
	if !ok {
		e = v.newEngine(visitorID)
	}
	v.engines.Add(visitorID, e)
	return e
}

// Forget drops the visitor's engine and its cached feed.
func (v *Visitors) Forget(visitorID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.engines.Remove(visitorID)
}

// Len reports the number of live engines.
func (v *Visitors) Len() int {
	return v.engines.Len()
}
