package feed

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

// Hub fans changes out to every matching subscriber. A subscriber whose
// buffer is full misses the change and is sent a resync instead, so it can
// refetch the state it lost.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	buffer  int
	dropped atomic.Uint64
	logger  *zap.Logger
}

// NewHub creates a Hub. A buffer <= 0 uses DefaultBuffer.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		logger: logger,
	}
}

// Subscription is a live registration on the Hub.
type Subscription struct {
	id     uint64
	filter Filter
	ch     chan Change
	limit  int
	hub    *Hub
	once   sync.Once

	mu     sync.Mutex
	lagged bool
}

// deliver queues c, or reports false when the buffer is full. The channel
// keeps one slot past limit for the resync queued on the first drop; lagged
// stays set until a change is delivered again.
func (s *Subscription) deliver(c Change) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ch) < s.limit {
		select {
		case s.ch <- c:
			s.lagged = false
			return true
		default:
		}
	}
	if !s.lagged {
		select {
		case s.ch <- Change{Type: EventResync}:
			s.lagged = true
		default:
		}
	}
	return false
}

// C returns the channel changes are delivered on. It is closed by Unsubscribe.
func (s *Subscription) C() <-chan Change {
	return s.ch
}

// Filter returns the filter the subscription was created with.
func (s *Subscription) Filter() Filter {
	return s.filter
}

// Unsubscribe stops delivery and closes the channel. Safe to call twice.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe(filter Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		filter: filter,
		ch:     make(chan Change, h.buffer+1),
		limit:  h.buffer,
		hub:    h,
	}
	h.subs[sub.id] = sub
	return sub
}

// Publish delivers c to every subscriber whose filter matches.
func (h *Hub) Publish(c Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.filter.Match(c) {
			continue
		}
		if !sub.deliver(c) {
			h.dropped.Add(1)
			h.logger.Debug("dropped change for slow subscriber",
				zap.Uint64("subscriber", sub.id),
				zap.String("table", c.Table),
				zap.String("type", string(c.Type)))
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
