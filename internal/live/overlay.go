package live

import (
	"math/rand/v2"
	"sync"
	"time"
)

// OverlayKind names a floating overlay surface.
type OverlayKind string

// Overlay surfaces.
const (
	OverlayReactions OverlayKind = "reactions"
	OverlayChat      OverlayKind = "chat"
	OverlayFeedback  OverlayKind = "feedback"
	OverlayQuestions OverlayKind = "questions"
)

// Display lifetimes for overlay items. These are presentation timers only;
// they never change aggregate counts.
const (
	ReactionTTL = 3 * time.Second
	ChatTTL     = 8 * time.Second
	FeedbackTTL = 10 * time.Second
	QuestionTTL = 12 * time.Second

	// DedupWindow is the minimum time an id is remembered after display.
	DedupWindow = 4 * time.Second
)

// TTL returns the display lifetime of items on the surface.
func (k OverlayKind) TTL() time.Duration {
	switch k {
	case OverlayReactions:
		return ReactionTTL
	case OverlayChat:
		return ChatTTL
	case OverlayFeedback:
		return FeedbackTTL
	case OverlayQuestions:
		return QuestionTTL
	default:
		return ReactionTTL
	}
}

// Overlay positions are percentages of the display, kept away from the edges.
const (
	minPosition  = 10.0
	maxPositionX = 90.0
	maxPositionY = 80.0
)

// OverlayItem is one floating item on the display.
type OverlayItem struct {
	ID        string      `json:"id"`
	Kind      OverlayKind `json:"kind"`
	Text      string      `json:"text"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	ShownAt   time.Time   `json:"shown_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Overlay shows short-lived items for the current target at pseudo-random
// positions. The same id is shown at most once per dedup window. Expired
// items and ids are dropped on every Push and Visible, so memory stays
// bounded by the display lifetime.
type Overlay struct {
	mu    sync.Mutex
	kind  OverlayKind
	ttl   time.Duration
	cell  *Cell
	seen  *ExpiringSet
	items []OverlayItem // oldest first
	rng   *rand.Rand
	now   func() time.Time
}

// OverlayOption configures an Overlay.
type OverlayOption func(*Overlay)

// WithOverlayClock sets the time source.
func WithOverlayClock(now func() time.Time) OverlayOption {
	return func(o *Overlay) { o.now = now }
}

// WithOverlaySeed makes item positions reproducible.
func WithOverlaySeed(seed uint64) OverlayOption {
	return func(o *Overlay) { o.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// NewOverlay creates an overlay surface filtered by cell.
func NewOverlay(kind OverlayKind, cell *Cell, opts ...OverlayOption) *Overlay {
	o := &Overlay{
		kind: kind,
		ttl:  kind.TTL(),
		cell: cell,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	o.seen = NewExpiringSet(max(o.ttl, DedupWindow), o.now)
	return o
}

// Kind returns the surface kind.
func (o *Overlay) Kind() OverlayKind {
	return o.kind
}

// Push shows text for event id when target is current. It returns false for
// other targets and for ids shown within the dedup window.
func (o *Overlay) Push(id, target, text string) bool {
	if !o.cell.Matches(target) {
		return false
	}
	if !o.seen.Add(id) {
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	o.prune(now)
	o.items = append(o.items, OverlayItem{
		ID:        id,
		Kind:      o.kind,
		Text:      text,
		X:         minPosition + o.rng.Float64()*(maxPositionX-minPosition),
		Y:         minPosition + o.rng.Float64()*(maxPositionY-minPosition),
		ShownAt:   now,
		ExpiresAt: now.Add(o.ttl),
	})
	return true
}

// Visible returns unexpired items, newest first.
func (o *Overlay) Visible() []OverlayItem {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.prune(o.now())
	out := make([]OverlayItem, len(o.items))
	for i, item := range o.items {
		out[len(out)-1-i] = item
	}
	return out
}

// Len returns the number of items held, including ones not yet pruned.
func (o *Overlay) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

// prune drops expired items and ids. Callers hold o.mu.
func (o *Overlay) prune(now time.Time) {
	kept := o.items[:0]
	for _, item := range o.items {
		if now.Before(item.ExpiresAt) {
			kept = append(kept, item)
		}
	}
	clear(o.items[len(kept):])
	o.items = kept
	o.seen.Sweep()
}

// Remove hides the item for id. Unknown ids are ignored.
func (o *Overlay) Remove(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, item := range o.items {
		if item.ID == id {
			o.items = append(o.items[:i], o.items[i+1:]...)
			return true
		}
	}
	return false
}

// Reset hides every item and forgets every seen id.
func (o *Overlay) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = nil
	o.seen.Reset()
}
