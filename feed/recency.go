package feed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"storefeed/api/models"
)

const (
	// RecencyCap is the maximum number of entries kept in the browsing log.
	RecencyCap = 12

	keyRecentlyViewed = "feed.recently_viewed"
)

// RecencyLog is the visitor's most-recent-first product view history.
type RecencyLog struct {
	kv  KV
	now func() time.Time

	mu sync.Mutex // serializes Record's read-modify-write
}

func NewRecencyLog(kv KV, now func() time.Time) *RecencyLog {
	if now == nil {
		now = time.Now
	}
	return &RecencyLog{kv: kv, now: now}
}

// Record moves productID to the front of the log, trims it, and persists it.
// A failed read leaves the stored log untouched.
func (l *RecencyLog) Record(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("product id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read recency log: %w", err)
	}
	next := make([]models.RecencyEntry, 0, RecencyCap)
	next = append(next, models.RecencyEntry{ProductID: productID, ViewedAt: l.now().UnixMilli()})
	for _, e := range entries {
		if len(next) == RecencyCap {
			break
		}
		if e.ProductID != productID {
			next = append(next, e)
		}
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode recency log: %w", err)
	}
	if err := l.kv.Set(ctx, keyRecentlyViewed, string(raw)); err != nil {
		return fmt.Errorf("failed to persist recency log: %w", err)
	}
	return nil
}

// ReadAll returns the log most-recent-first. Unreadable data yields an empty log.
func (l *RecencyLog) ReadAll(ctx context.Context) []models.RecencyEntry {
	entries, err := l.read(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("reading recency log")
		return nil
	}
	return entries
}

// read reports storage errors. Malformed data is not an error: it reads as empty.
func (l *RecencyLog) read(ctx context.Context) ([]models.RecencyEntry, error) {
	raw, ok, err := l.kv.Get(ctx, keyRecentlyViewed)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var stored []models.RecencyEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Debug().Err(err).Msg("ignoring malformed recency log")
		return nil, nil
	}
	return normalizeRecency(stored), nil
}

// Clear drops the log.
func (l *RecencyLog) Clear(ctx context.Context) error {
	return l.kv.Remove(ctx, keyRecentlyViewed)
}

func normalizeRecency(stored []models.RecencyEntry) []models.RecencyEntry {
	valid := make([]models.RecencyEntry, 0, len(stored))
	for _, e := range stored {
		e.ProductID = strings.TrimSpace(e.ProductID)
		if e.ProductID == "" || e.ViewedAt <= 0 {
			continue
		}
		valid = append(valid, e)
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].ViewedAt > valid[j].ViewedAt })

	seen := make(map[string]struct{}, len(valid))
	out := valid[:0]
	for _, e := range valid {
		if _, dup := seen[e.ProductID]; dup {
			continue
		}
		seen[e.ProductID] = struct{}{}
		out = append(out, e)
		if len(out) == RecencyCap {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// productIDs lists the IDs of entries in order.
func productIDs(entries []models.RecencyEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ProductID
	}
	return ids
}
