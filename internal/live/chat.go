package live

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jonathan/resume-live/internal/types"
)

// DefaultChatLimit bounds the number of messages kept by a ChatFeed.
const DefaultChatLimit = 200

// ChatFeed is the newest-first chat list for the current target.
type ChatFeed struct {
	mu       sync.Mutex
	cell     *Cell
	limit    int
	messages []types.ChatMessage
	ids      map[uuid.UUID]struct{}
}

// NewChatFeed creates a feed keeping at most limit messages. A limit <= 0
// uses DefaultChatLimit.
func NewChatFeed(cell *Cell, limit int) *ChatFeed {
	if limit <= 0 {
		limit = DefaultChatLimit
	}
	return &ChatFeed{
		cell:  cell,
		limit: limit,
		ids:   make(map[uuid.UUID]struct{}),
	}
}

// Accept prepends m when it belongs to the current target and is new.
func (f *ChatFeed) Accept(m types.ChatMessage) bool {
	if !f.cell.Matches(m.TargetName) {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, seen := f.ids[m.ID]; seen {
		return false
	}
	f.ids[m.ID] = struct{}{}
	f.messages = append([]types.ChatMessage{m}, f.messages...)
	if len(f.messages) > f.limit {
		for _, dropped := range f.messages[f.limit:] {
			delete(f.ids, dropped.ID)
		}
		f.messages = f.messages[:f.limit]
	}
	return true
}

// Remove deletes the message with id. Unknown ids are a no-op.
func (f *ChatFeed) Remove(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.ids[id]; !ok {
		return false
	}
	delete(f.ids, id)
	for i, m := range f.messages {
		if m.ID == id {
			f.messages = append(f.messages[:i], f.messages[i+1:]...)
			break
		}
	}
	return true
}

// Messages returns a copy of the feed, newest first.
func (f *ChatFeed) Messages() []types.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]types.ChatMessage, len(f.messages))
	copy(out, f.messages)
	return out
}

// Reset empties the feed.
func (f *ChatFeed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = nil
	clear(f.ids)
}
