package feed

import (
	"sync"
	"time"
)

// ScrollPolicy decides when the sentinel after the last row should trigger LoadMore.
type ScrollPolicy struct {
	Margin   int           // px below the viewport at which the sentinel counts as visible
	Debounce time.Duration // quiet period before firing
}

// DefaultScrollPolicy requests the next page well before the visitor reaches the bottom.
var DefaultScrollPolicy = ScrollPolicy{Margin: 800, Debounce: 60 * time.Millisecond}

// Timer is the subset of *time.Timer the trigger needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through a small adapter.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ScrollTrigger debounces sentinel visibility signals into LoadMore calls.
type ScrollTrigger struct {
	policy ScrollPolicy
	fire   func()
	after  AfterFunc

	mu      sync.Mutex
	visible bool
	pending Timer
	seq     uint64
}

// NewScrollTrigger calls fire once per settled intersection. A nil after uses real timers.
func NewScrollTrigger(policy ScrollPolicy, fire func(), after AfterFunc) *ScrollTrigger {
	if after == nil {
		after = realAfterFunc
	}
	return &ScrollTrigger{policy: policy, fire: fire, after: after}
}

// Observe reports the sentinel's distance below the bottom of the viewport, in px.
// Negative values mean the sentinel is already on screen.
func (t *ScrollTrigger) Observe(distance int) {
	visible := distance <= t.policy.Margin

	t.mu.Lock()
	defer t.mu.Unlock()
	if visible == t.visible {
		return
	}
	t.visible = visible
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	if !visible {
		return
	}
	t.seq++
	seq := t.seq
	t.pending = t.after(t.policy.Debounce, func() { t.settle(seq) })
}

func (t *ScrollTrigger) settle(seq uint64) {
	t.mu.Lock()
	if seq != t.seq || !t.visible {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	t.mu.Unlock()
	t.fire()
}

// Reset forgets the last signal and cancels a pending fire, e.g. after the grid is replaced.
func (t *ScrollTrigger) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visible = false
	t.seq++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}
