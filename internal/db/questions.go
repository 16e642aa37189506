package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/resume-live/internal/types"
)

const questionColumns = `id, target_name, author, body, upvotes, answered, answered_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (types.Question, error) {
	var q types.Question
	err := row.Scan(&q.ID, &q.TargetName, &q.Author, &q.Body, &q.Upvotes, &q.Answered, &q.AnsweredAt, &q.CreatedAt)
	return q, err
}

// InsertQuestion stores a question and returns it with its id and creation time.
func (db *DB) InsertQuestion(ctx context.Context, q types.Question) (types.Question, error) {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO questions (target_name, author, body)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		q.TargetName, q.Author, q.Body,
	).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return types.Question{}, fmt.Errorf("failed to insert question: %w", err)
	}
	q.Upvotes = 0
	q.Answered = false
	q.AnsweredAt = nil
	return q, nil
}

// GetQuestion retrieves a question by id. It returns nil when not found.
func (db *DB) GetQuestion(ctx context.Context, id uuid.UUID) (*types.Question, error) {
	q, err := scanQuestion(db.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &q, nil
}

// ListQuestions returns questions for target, most upvoted first.
// Answered questions are included only when includeAnswered is set.
func (db *DB) ListQuestions(ctx context.Context, target string, includeAnswered bool) ([]types.Question, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+questionColumns+`
		 FROM questions
		 WHERE target_name = $1 AND ($2 OR NOT answered)
		 ORDER BY upvotes DESC, created_at DESC
		 LIMIT $3`,
		target, includeAnswered, DefaultListLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []types.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// ToggleUpvote adds the session's upvote to a question, or removes it when the
// session already upvoted. It returns the updated question and whether the
// session now has an upvote on it.
func (db *DB) ToggleUpvote(ctx context.Context, questionID uuid.UUID, sessionID string) (*types.Question, bool, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the question so concurrent toggles serialise on the counter.
	var exists bool
	err = tx.QueryRow(ctx, `SELECT TRUE FROM questions WHERE id = $1 FOR UPDATE`, questionID).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrNotFound
		}
		return nil, false, fmt.Errorf("failed to lock question: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO question_upvotes (question_id, session_id) VALUES ($1, $2)
		 ON CONFLICT (question_id, session_id) DO NOTHING`,
		questionID, sessionID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to record upvote: %w", err)
	}

	upvoted := tag.RowsAffected() == 1
	delta := 1
	if !upvoted {
		if _, err := tx.Exec(ctx,
			`DELETE FROM question_upvotes WHERE question_id = $1 AND session_id = $2`,
			questionID, sessionID,
		); err != nil {
			return nil, false, fmt.Errorf("failed to remove upvote: %w", err)
		}
		delta = -1
	}

	q, err := scanQuestion(tx.QueryRow(ctx,
		`UPDATE questions SET upvotes = GREATEST(upvotes + $2, 0) WHERE id = $1
		 RETURNING `+questionColumns,
		questionID, delta,
	))
	if err != nil {
		return nil, false, fmt.Errorf("failed to update upvotes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to commit upvote: %w", err)
	}
	return &q, upvoted, nil
}

// AnswerQuestion flags a question as answered. The row is kept so answered
// questions remain in history.
func (db *DB) AnswerQuestion(ctx context.Context, id uuid.UUID) (*types.Question, error) {
	q, err := scanQuestion(db.pool.QueryRow(ctx,
		`UPDATE questions SET answered = TRUE, answered_at = COALESCE(answered_at, NOW())
		 WHERE id = $1
		 RETURNING `+questionColumns,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to answer question: %w", err)
	}
	return &q, nil
}

// DeleteQuestions removes questions for target, or for every target when
// target is empty, and returns the deleted ids. Upvotes cascade.
func (db *DB) DeleteQuestions(ctx context.Context, target string) ([]uuid.UUID, error) {
	return db.deleteReturningIDs(ctx,
		`DELETE FROM questions WHERE ($1::TEXT = '' OR target_name = $1) RETURNING id`,
		target,
	)
}
