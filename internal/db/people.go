package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/resume-live/internal/types"
)

// InsertPresenter stores a presenter signup. A second signup with the same
// email (case-insensitive) fails with *DuplicateError.
func (db *DB) InsertPresenter(ctx context.Context, p types.Presenter) (types.Presenter, error) {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO presenters (name, email, resume_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		p.Name, p.Email, p.ResumeID,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Presenter{}, &DuplicateError{Entity: "presenter", Field: "email", Value: p.Email}
		}
		return types.Presenter{}, fmt.Errorf("failed to insert presenter: %w", err)
	}
	return p, nil
}

// ListPresenters returns signups in queue order (oldest first).
func (db *DB) ListPresenters(ctx context.Context) ([]types.Presenter, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, email, resume_id, created_at FROM presenters ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list presenters: %w", err)
	}
	defer rows.Close()

	var presenters []types.Presenter
	for rows.Next() {
		var p types.Presenter
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.ResumeID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan presenter: %w", err)
		}
		presenters = append(presenters, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list presenters: %w", err)
	}
	return presenters, nil
}

// DeletePresenter removes a signup.
func (db *DB) DeletePresenter(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM presenters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete presenter: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HostUser is a host account row including its password hash.
type HostUser struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize to JSON
	CreatedAt    time.Time `json:"created_at"`
}

// CreateHost stores a host account. Duplicate emails fail with *DuplicateError.
func (db *DB) CreateHost(ctx context.Context, name, email, passwordHash string) (*HostUser, error) {
	h := HostUser{Name: name, Email: strings.ToLower(email), PasswordHash: passwordHash}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO hosts (name, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		h.Name, h.Email, h.PasswordHash,
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &DuplicateError{Entity: "host", Field: "email", Value: email}
		}
		return nil, fmt.Errorf("failed to create host: %w", err)
	}
	return &h, nil
}

// GetHostByEmail retrieves a host by email. It returns nil when not found.
func (db *DB) GetHostByEmail(ctx context.Context, email string) (*HostUser, error) {
	return db.getHost(ctx, `LOWER(email) = LOWER($1)`, email)
}

// GetHost retrieves a host by id. It returns nil when not found.
func (db *DB) GetHost(ctx context.Context, id uuid.UUID) (*HostUser, error) {
	return db.getHost(ctx, `id = $1`, id)
}

func (db *DB) getHost(ctx context.Context, where string, arg any) (*HostUser, error) {
	var h HostUser
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at FROM hosts WHERE `+where, arg,
	).Scan(&h.ID, &h.Name, &h.Email, &h.PasswordHash, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get host: %w", err)
	}
	return &h, nil
}

// CountHosts returns the number of host accounts.
func (db *DB) CountHosts(ctx context.Context) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM hosts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count hosts: %w", err)
	}
	return n, nil
}
