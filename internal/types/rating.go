// Package types provides type definitions for the live review data shared across packages.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Score bounds for every scorecard category.
const (
	MinScore = 1
	MaxScore = 5
)

// RatingKind tells a scored rating apart from a quick reaction.
type RatingKind string

const (
	// RatingScored is a full scorecard with four sub-scores.
	RatingScored RatingKind = "scored"
	// RatingReaction is an emoji-only quick reaction with no numeric weight.
	RatingReaction RatingKind = "reaction"
)

// Agreement is the optional agree/disagree flag attached to a scorecard.
type Agreement string

// Agreement values. AgreementNone is stored as NULL.
const (
	AgreementNone     Agreement = ""
	AgreementAgree    Agreement = "agree"
	AgreementDisagree Agreement = "disagree"
)

// ReactionGlyphs is the set of glyphs accepted for quick reactions.
var ReactionGlyphs = []string{"🔥", "👏", "😂", "😮", "❤️", "👍", "👎", "💯"}

// Rating construction errors.
var (
	ErrIncompleteScores = errors.New("all four scores are required")
	ErrScoreOutOfRange  = fmt.Errorf("scores must be between %d and %d", MinScore, MaxScore)
	ErrUnknownGlyph     = errors.New("reaction glyph is not supported")
	ErrMixedRating      = errors.New("rating row carries both scores and a reaction")
	ErrEmptyRating      = errors.New("rating row carries neither scores nor a reaction")
	ErrInvalidAgreement = errors.New("agreement must be agree, disagree or empty")
)

// Scores holds the four scorecard categories.
type Scores struct {
	Overall      int `json:"overall"`
	Presentation int `json:"presentation"`
	Layout       int `json:"layout"`
	Content      int `json:"content"`
}

// Validate rejects a scorecard with a missing (zero) or out-of-range category.
// A single zero invalidates the whole scorecard.
func (s Scores) Validate() error {
	values := []int{s.Overall, s.Presentation, s.Layout, s.Content}
	if slices.Contains(values, 0) {
		return ErrIncompleteScores
	}
	for _, v := range values {
		if v < MinScore || v > MaxScore {
			return ErrScoreOutOfRange
		}
	}
	return nil
}

// Rating is either a scored rating or a quick reaction, never both.
// Build values with NewScoredRating, NewQuickReaction or RatingRow.Classify.
type Rating struct {
	ID         uuid.UUID  `json:"id"`
	TargetName string     `json:"target_name"`
	Kind       RatingKind `json:"kind"`
	Scores     *Scores    `json:"scores,omitempty"`
	Reaction   string     `json:"reaction,omitempty"`
	Feedback   string     `json:"feedback,omitempty"`
	Agreement  Agreement  `json:"agreement,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewScoredRating builds a validated scorecard rating.
func NewScoredRating(target string, scores Scores, feedback string, agreement Agreement) (Rating, error) {
	if err := scores.Validate(); err != nil {
		return Rating{}, err
	}
	if !agreement.Valid() {
		return Rating{}, ErrInvalidAgreement
	}
	return Rating{
		TargetName: target,
		Kind:       RatingScored,
		Scores:     &scores,
		Feedback:   feedback,
		Agreement:  agreement,
	}, nil
}

// NewQuickReaction builds a reaction-only rating.
func NewQuickReaction(target, glyph string) (Rating, error) {
	if glyph == "" || !slices.Contains(ReactionGlyphs, glyph) {
		return Rating{}, ErrUnknownGlyph
	}
	return Rating{
		TargetName: target,
		Kind:       RatingReaction,
		Reaction:   glyph,
	}, nil
}

// Valid reports whether the agreement value is known.
func (a Agreement) Valid() bool {
	return a == AgreementNone || a == AgreementAgree || a == AgreementDisagree
}

// IsScored reports whether the rating counts toward score averages.
func (r Rating) IsScored() bool {
	return r.Kind == RatingScored && r.Scores != nil && r.Scores.Overall > 0
}

// IsQuickReaction reports whether the rating is an emoji-only reaction.
func (r Rating) IsQuickReaction() bool {
	return r.Kind == RatingReaction && r.Reaction != ""
}

// Row converts the rating to its nullable storage/wire shape.
func (r Rating) Row() RatingRow {
	row := RatingRow{
		ID:         r.ID,
		TargetName: r.TargetName,
		CreatedAt:  r.CreatedAt,
	}
	if r.Scores != nil {
		row.Overall = intPtr(r.Scores.Overall)
		row.Presentation = intPtr(r.Scores.Presentation)
		row.Layout = intPtr(r.Scores.Layout)
		row.Content = intPtr(r.Scores.Content)
	}
	if r.Reaction != "" {
		row.Reaction = strPtr(r.Reaction)
	}
	if r.Feedback != "" {
		row.Feedback = strPtr(r.Feedback)
	}
	if r.Agreement != AgreementNone {
		row.Agreement = strPtr(string(r.Agreement))
	}
	return row
}

// RatingRow is the nullable column layout of the ratings table, as stored and
// as broadcast on the change feed.
type RatingRow struct {
	ID           uuid.UUID `json:"id"`
	TargetName   string    `json:"target_name"`
	Overall      *int      `json:"overall"`
	Presentation *int      `json:"presentation"`
	Layout       *int      `json:"layout"`
	Content      *int      `json:"content"`
	Feedback     *string   `json:"feedback"`
	Agreement    *string   `json:"agreement"`
	Reaction     *string   `json:"reaction"`
	CreatedAt    time.Time `json:"created_at"`
}

// Classify turns a row into a Rating, rejecting rows that mix scores with a
// reaction or carry neither.
func (r RatingRow) Classify() (Rating, error) {
	anyScore := r.Overall != nil || r.Presentation != nil || r.Layout != nil || r.Content != nil
	hasReaction := r.Reaction != nil && *r.Reaction != ""

	rating := Rating{
		ID:         r.ID,
		TargetName: r.TargetName,
		CreatedAt:  r.CreatedAt,
	}
	if r.Feedback != nil {
		rating.Feedback = *r.Feedback
	}
	if r.Agreement != nil {
		rating.Agreement = Agreement(*r.Agreement)
	}

	switch {
	case anyScore && hasReaction:
		return Rating{}, ErrMixedRating
	case hasReaction:
		rating.Kind = RatingReaction
		rating.Reaction = *r.Reaction
		return rating, nil
	case anyScore:
		rating.Kind = RatingScored
		rating.Scores = &Scores{
			Overall:      deref(r.Overall),
			Presentation: deref(r.Presentation),
			Layout:       deref(r.Layout),
			Content:      deref(r.Content),
		}
		return rating, nil
	default:
		return Rating{}, ErrEmptyRating
	}
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
