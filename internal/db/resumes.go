package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/resume-live/internal/types"
)

const resumeColumns = `id, name, storage_path, mime_type, size_bytes, public_url, uploaded_at`

func scanResume(row rowScanner) (types.Resume, error) {
	var r types.Resume
	err := row.Scan(&r.ID, &r.Name, &r.StoragePath, &r.MimeType, &r.SizeBytes, &r.PublicURL, &r.UploadedAt)
	return r, err
}

// InsertResume stores resume metadata after the file has been uploaded.
func (db *DB) InsertResume(ctx context.Context, r types.Resume) (types.Resume, error) {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO resumes (name, storage_path, mime_type, size_bytes, public_url)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, uploaded_at`,
		r.Name, r.StoragePath, r.MimeType, r.SizeBytes, r.PublicURL,
	).Scan(&r.ID, &r.UploadedAt)
	if err != nil {
		return types.Resume{}, fmt.Errorf("failed to insert resume: %w", err)
	}
	return r, nil
}

// GetResume retrieves a resume by id. It returns nil when not found.
func (db *DB) GetResume(ctx context.Context, id uuid.UUID) (*types.Resume, error) {
	r, err := scanResume(db.pool.QueryRow(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	return &r, nil
}

// ListResumes returns resumes, newest first.
func (db *DB) ListResumes(ctx context.Context, limit int) ([]types.Resume, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+resumeColumns+` FROM resumes ORDER BY uploaded_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	var resumes []types.Resume
	for rows.Next() {
		r, err := scanResume(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		resumes = append(resumes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	return resumes, nil
}

// DeleteResume removes a resume and its analyses.
func (db *DB) DeleteResume(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM resumes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resume: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveAnalysis stores an ATS analysis for a resume.
func (db *DB) SaveAnalysis(ctx context.Context, a types.ResumeAnalysis) (types.ResumeAnalysis, error) {
	report, err := json.Marshal(a.Report)
	if err != nil {
		return types.ResumeAnalysis{}, fmt.Errorf("failed to marshal report: %w", err)
	}

	err = db.pool.QueryRow(ctx,
		`INSERT INTO resume_analyses (resume_id, report, extracted_chars)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		a.ResumeID, report, a.ExtractedChars,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return types.ResumeAnalysis{}, fmt.Errorf("failed to save analysis: %w", err)
	}
	return a, nil
}

// GetLatestAnalysis returns the most recent analysis for a resume, or nil.
func (db *DB) GetLatestAnalysis(ctx context.Context, resumeID uuid.UUID) (*types.ResumeAnalysis, error) {
	var a types.ResumeAnalysis
	var report []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, resume_id, report, extracted_chars, created_at
		 FROM resume_analyses WHERE resume_id = $1
		 ORDER BY created_at DESC LIMIT 1`,
		resumeID,
	).Scan(&a.ID, &a.ResumeID, &report, &a.ExtractedChars, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	if err := json.Unmarshal(report, &a.Report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &a, nil
}
