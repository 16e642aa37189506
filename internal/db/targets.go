package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/resume-live/internal/types"
)

// GetTarget returns the current review target register.
func (db *DB) GetTarget(ctx context.Context) (*types.Target, error) {
	var t types.Target
	err := db.pool.QueryRow(ctx,
		`SELECT name, version, updated_at FROM targets WHERE id = 1`,
	).Scan(&t.Name, &t.Version, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &types.Target{}, nil
		}
		return nil, fmt.Errorf("failed to get target: %w", err)
	}
	return &t, nil
}

// SetTarget sets the review target. With a nil expectedVersion the write is
// last-write-wins; otherwise it only succeeds when the stored version matches
// and fails with *VersionConflictError when it does not.
func (db *DB) SetTarget(ctx context.Context, name string, expectedVersion *int64) (*types.Target, error) {
	return db.writeTarget(ctx, &name, expectedVersion)
}

// ClearTarget unsets the review target. Historical events keep their target name.
func (db *DB) ClearTarget(ctx context.Context, expectedVersion *int64) (*types.Target, error) {
	return db.writeTarget(ctx, nil, expectedVersion)
}

func (db *DB) writeTarget(ctx context.Context, name *string, expectedVersion *int64) (*types.Target, error) {
	var t types.Target
	err := db.pool.QueryRow(ctx,
		`UPDATE targets
		 SET name = $1, version = version + 1, updated_at = NOW()
		 WHERE id = 1 AND ($2::BIGINT IS NULL OR version = $2)
		 RETURNING name, version, updated_at`,
		name, expectedVersion,
	).Scan(&t.Name, &t.Version, &t.UpdatedAt)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to set target: %w", err)
	}
	if expectedVersion == nil {
		return nil, fmt.Errorf("failed to set target: register row missing")
	}

	current, getErr := db.GetTarget(ctx)
	if getErr != nil {
		return nil, getErr
	}
	return nil, &VersionConflictError{Key: "target", Expected: *expectedVersion, Actual: current.Version}
}
