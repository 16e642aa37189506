package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/resume-live/internal/types"
)

// InsertChat stores a chat message and returns it with its id and creation time.
func (db *DB) InsertChat(ctx context.Context, m types.ChatMessage) (types.ChatMessage, error) {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO chat_messages (target_name, author, body)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		m.TargetName, m.Author, m.Body,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return types.ChatMessage{}, fmt.Errorf("failed to insert chat message: %w", err)
	}
	return m, nil
}

// ListChat returns chat messages for target, newest first.
func (db *DB) ListChat(ctx context.Context, target string, limit int) ([]types.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, target_name, author, body, created_at
		 FROM chat_messages WHERE target_name = $1
		 ORDER BY created_at DESC LIMIT $2`,
		target, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []types.ChatMessage
	for rows.Next() {
		var m types.ChatMessage
		if err := rows.Scan(&m.ID, &m.TargetName, &m.Author, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	return messages, nil
}

// DeleteChat removes chat messages for target, or for every target when
// target is empty, and returns the deleted ids.
func (db *DB) DeleteChat(ctx context.Context, target string) ([]uuid.UUID, error) {
	return db.deleteReturningIDs(ctx,
		`DELETE FROM chat_messages WHERE ($1::TEXT = '' OR target_name = $1) RETURNING id`,
		target,
	)
}
