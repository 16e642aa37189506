package live

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jonathan/resume-live/internal/types"
)

// QuestionBoard tracks questions for the current target. Inserts and updates
// are both upserts keyed on id, and an answered question stays answered.
type QuestionBoard struct {
	mu        sync.Mutex
	cell      *Cell
	questions map[uuid.UUID]types.Question
}

// NewQuestionBoard creates a board filtered by cell.
func NewQuestionBoard(cell *Cell) *QuestionBoard {
	return &QuestionBoard{
		cell:      cell,
		questions: make(map[uuid.UUID]types.Question),
	}
}

// Upsert records q. It returns true when q was not seen before.
func (b *QuestionBoard) Upsert(q types.Question) bool {
	if !b.cell.Matches(q.TargetName) {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	existing, seen := b.questions[q.ID]
	if seen {
		q.Answered = q.Answered || existing.Answered
		if q.AnsweredAt == nil {
			q.AnsweredAt = existing.AnsweredAt
		}
	}
	b.questions[q.ID] = q
	return !seen
}

// Remove deletes the question. Unknown ids are a no-op.
func (b *QuestionBoard) Remove(id uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.questions[id]; !ok {
		return false
	}
	delete(b.questions, id)
	return true
}

// Open returns unanswered questions, most upvoted first, newest first on ties.
func (b *QuestionBoard) Open() []types.Question {
	return b.list(false)
}

// Answered returns answered questions in the same order as Open.
func (b *QuestionBoard) Answered() []types.Question {
	return b.list(true)
}

func (b *QuestionBoard) list(answered bool) []types.Question {
	b.mu.Lock()
	out := make([]types.Question, 0, len(b.questions))
	for _, q := range b.questions {
		if q.Answered == answered {
			out = append(out, q)
		}
	}
	b.mu.Unlock()

	slices.SortFunc(out, func(x, y types.Question) int {
		if x.Upvotes != y.Upvotes {
			return y.Upvotes - x.Upvotes
		}
		if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(x.ID[:], y.ID[:])
	})
	return out
}

// Len returns the number of tracked questions.
func (b *QuestionBoard) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.questions)
}

// Reset empties the board.
func (b *QuestionBoard) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.questions)
}
