package feed

import (
	"sync"

	"storefeed/api/models"
)

// StateCache keeps the last rendered feed for the lifetime of the process.
// Writes replace the whole snapshot, so a reader never sees a mix of two snapshots.
type StateCache struct {
	mu   sync.RWMutex
	snap *models.FeedState
}

func NewStateCache() *StateCache {
	return &StateCache{}
}

// Load returns a copy of the cached snapshot, if any.
func (c *StateCache) Load() (models.FeedState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return models.FeedState{}, false
	}
	return c.snap.Clone(), true
}

// Store replaces the snapshot.
func (c *StateCache) Store(state models.FeedState) {
	snap := state.Clone()
	c.mu.Lock()
	c.snap = &snap
	c.mu.Unlock()
}

// Clear empties the cache, e.g. on sign-out.
func (c *StateCache) Clear() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}
