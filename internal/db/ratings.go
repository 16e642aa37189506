package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/resume-live/internal/types"
)

// DefaultListLimit caps list queries when the caller passes no limit.
const DefaultListLimit = 200

const ratingColumns = `id, target_name, overall, presentation, layout, content, feedback, agreement, reaction, created_at`

// InsertRating stores a scored rating or quick reaction and returns it with
// its id and creation time.
func (db *DB) InsertRating(ctx context.Context, r types.Rating) (types.Rating, error) {
	row := r.Row()
	err := db.pool.QueryRow(ctx,
		`INSERT INTO ratings (target_name, overall, presentation, layout, content, feedback, agreement, reaction)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		row.TargetName, row.Overall, row.Presentation, row.Layout, row.Content,
		row.Feedback, row.Agreement, row.Reaction,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return types.Rating{}, fmt.Errorf("failed to insert rating: %w", err)
	}
	return r, nil
}

// ListRatings returns ratings and reactions for target, newest first.
func (db *DB) ListRatings(ctx context.Context, target string, limit int) ([]types.Rating, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+ratingColumns+`
		 FROM ratings WHERE target_name = $1
		 ORDER BY created_at DESC LIMIT $2`,
		target, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	var ratings []types.Rating
	for rows.Next() {
		row, err := scanRatingRow(rows)
		if err != nil {
			return nil, err
		}
		rating, err := row.Classify()
		if err != nil {
			return nil, fmt.Errorf("invalid rating %s: %w", row.ID, err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	return ratings, nil
}

func scanRatingRow(rows pgx.Rows) (types.RatingRow, error) {
	var row types.RatingRow
	err := rows.Scan(&row.ID, &row.TargetName, &row.Overall, &row.Presentation, &row.Layout,
		&row.Content, &row.Feedback, &row.Agreement, &row.Reaction, &row.CreatedAt)
	if err != nil {
		return types.RatingRow{}, fmt.Errorf("failed to scan rating: %w", err)
	}
	return row, nil
}

// DeleteRatings removes scored ratings (kind ratings), quick reactions (kind
// reactions) or both (kind all) for target, or for every target when target
// is empty. It returns the deleted ids.
func (db *DB) DeleteRatings(ctx context.Context, target string, kind types.ClearKind) ([]uuid.UUID, error) {
	var predicate string
	switch kind {
	case types.ClearRatings:
		predicate = "overall IS NOT NULL"
	case types.ClearReactions:
		predicate = "reaction IS NOT NULL"
	case types.ClearAll:
		predicate = "TRUE"
	default:
		return nil, fmt.Errorf("cannot clear ratings for kind %q", kind)
	}

	return db.deleteReturningIDs(ctx,
		`DELETE FROM ratings WHERE `+predicate+` AND ($1::TEXT = '' OR target_name = $1) RETURNING id`,
		target,
	)
}

func (db *DB) deleteReturningIDs(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to delete rows: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan deleted id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to delete rows: %w", err)
	}
	return ids, nil
}
