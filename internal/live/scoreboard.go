package live

import (
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/jonathan/resume-live/internal/types"
)

// Stats is the aggregate over every accepted scored rating for the current
// target. A board with no ratings reports the zero value.
type Stats struct {
	Count          int              `json:"count"`
	Average        float64          `json:"average"`
	AverageDisplay float64          `json:"average_display"`
	Stars          int              `json:"stars"`
	Categories     CategoryAverages `json:"categories"`
	Agree          int              `json:"agree"`
	Disagree       int              `json:"disagree"`
}

// CategoryAverages holds the mean of each scorecard category.
type CategoryAverages struct {
	Overall      float64 `json:"overall"`
	Presentation float64 `json:"presentation"`
	Layout       float64 `json:"layout"`
	Content      float64 `json:"content"`
}

type scoreSums struct {
	overall, presentation, layout, content int
}

func (s *scoreSums) add(sc types.Scores, sign int) {
	s.overall += sign * sc.Overall
	s.presentation += sign * sc.Presentation
	s.layout += sign * sc.Layout
	s.content += sign * sc.Content
}

// ScoreBoard folds scored ratings for the current target into running sums.
// Quick reactions never contribute. Every accepted rating counts until it is
// deleted, the board is reset or the target changes.
type ScoreBoard struct {
	mu       sync.Mutex
	cell     *Cell
	ratings  map[uuid.UUID]types.Rating
	order    []uuid.UUID
	sums     scoreSums
	agree    int
	disagree int
}

// NewScoreBoard creates a board filtered by cell.
func NewScoreBoard(cell *Cell) *ScoreBoard {
	return &ScoreBoard{
		cell:    cell,
		ratings: make(map[uuid.UUID]types.Rating),
	}
}

// Accept folds r into the board. It returns false when r is not a scored
// rating, belongs to another target or was already accepted.
func (b *ScoreBoard) Accept(r types.Rating) bool {
	if !r.IsScored() || !b.cell.Matches(r.TargetName) {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, seen := b.ratings[r.ID]; seen {
		return false
	}
	b.ratings[r.ID] = r
	b.order = append([]uuid.UUID{r.ID}, b.order...)
	b.sums.add(*r.Scores, 1)
	b.countAgreement(r.Agreement, 1)
	return true
}

// Remove takes a rating out of the aggregate. Removing an unknown id is a no-op.
func (b *ScoreBoard) Remove(id uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.ratings[id]
	if !ok {
		return false
	}
	delete(b.ratings, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.sums.add(*r.Scores, -1)
	b.countAgreement(r.Agreement, -1)
	return true
}

func (b *ScoreBoard) countAgreement(a types.Agreement, delta int) {
	switch a {
	case types.AgreementAgree:
		b.agree += delta
	case types.AgreementDisagree:
		b.disagree += delta
	}
}

// Reset empties the board.
func (b *ScoreBoard) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.ratings)
	b.order = nil
	b.sums = scoreSums{}
	b.agree, b.disagree = 0, 0
}

// Ratings returns the accepted ratings, most recent first.
func (b *ScoreBoard) Ratings() []types.Rating {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]types.Rating, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.ratings[id])
	}
	return out
}

// Stats returns the current aggregate.
func (b *ScoreBoard) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.ratings)
	stats := Stats{Count: n, Agree: b.agree, Disagree: b.disagree}
	if n == 0 {
		return stats
	}

	count := float64(n)
	stats.Average = float64(b.sums.overall) / count
	stats.AverageDisplay = math.Round(stats.Average*10) / 10
	stats.Stars = int(math.Round(stats.Average))
	stats.Categories = CategoryAverages{
		Overall:      stats.Average,
		Presentation: float64(b.sums.presentation) / count,
		Layout:       float64(b.sums.layout) / count,
		Content:      float64(b.sums.content) / count,
	}
	return stats
}
