package types

import (
	"time"

	"github.com/google/uuid"
)

// Target is the single shared "currently under review" register.
// Name is nil when nothing is being reviewed.
type Target struct {
	Name      *string   `json:"name"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Current returns the target name and whether one is set.
func (t *Target) Current() (string, bool) {
	if t == nil || t.Name == nil || *t.Name == "" {
		return "", false
	}
	return *t.Name, true
}

// ChatMessage is an append-only, target-scoped chat line.
type ChatMessage struct {
	ID         uuid.UUID `json:"id"`
	TargetName string    `json:"target_name"`
	Author     string    `json:"author"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// Question is an audience question with a mutable upvote counter.
// Answered questions are flagged rather than deleted so history survives.
type Question struct {
	ID         uuid.UUID  `json:"id"`
	TargetName string     `json:"target_name"`
	Author     string     `json:"author"`
	Body       string     `json:"body"`
	Upvotes    int        `json:"upvotes"`
	Answered   bool       `json:"answered"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// QuestionUpvote joins an anonymous session to the question it upvoted.
type QuestionUpvote struct {
	QuestionID uuid.UUID `json:"question_id"`
	SessionID  string    `json:"session_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Presenter is a signup for a review slot.
type Presenter struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	ResumeID  *uuid.UUID `json:"resume_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
