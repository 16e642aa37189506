// Package extraction turns uploaded resume files into plain text and scores
// them with the ATS heuristics.
package extraction

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-live/internal/ats"
	"github.com/jonathan/resume-live/internal/db"
	"github.com/jonathan/resume-live/internal/ingestion"
	"github.com/jonathan/resume-live/internal/llm"
	"github.com/jonathan/resume-live/internal/storage"
	"github.com/jonathan/resume-live/internal/types"
)

// ErrNoVisionClient is returned when an image needs transcription but no
// LLM client is configured.
var ErrNoVisionClient = errors.New("image text extraction is not configured")

// UnsupportedTypeError is returned for files that are neither PDF nor image.
type UnsupportedTypeError struct {
	MimeType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("cannot extract text from %s", e.MimeType)
}

// ObjectReader reads stored resume files.
type ObjectReader interface {
	Open(ctx context.Context, bucket, key string) ([]byte, error)
}

// Extractor reads the text out of stored resumes.
type Extractor struct {
	objects ObjectReader
	bucket  string
	vision  llm.Client
	logger  *zap.Logger
}

// NewExtractor creates an extractor. vision may be nil, in which case only
// PDFs can be read.
func NewExtractor(objects ObjectReader, bucket string, vision llm.Client, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bucket == "" {
		bucket = storage.DefaultBucket
	}
	return &Extractor{objects: objects, bucket: bucket, vision: vision, logger: logger}
}

// Extract loads the resume file from object storage and returns its text.
func (e *Extractor) Extract(ctx context.Context, resume types.Resume) (string, error) {
	data, err := e.objects.Open(ctx, e.bucket, resume.StoragePath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", resume.StoragePath, err)
	}
	mimeType := resume.MimeType
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}
	return e.ExtractBytes(ctx, mimeType, data)
}

// ExtractBytes returns the text of a PDF or image already in memory.
func (e *Extractor) ExtractBytes(ctx context.Context, mimeType string, data []byte) (string, error) {
	mt := mimetype.Lookup(mimeType)
	switch {
	case mt != nil && mt.Is(storage.MimePDF):
		text := PDFText(data)
		e.logger.Debug("scraped pdf text", zap.Int("bytes", len(data)), zap.Int("chars", len(text)))
		return text, nil
	case mt != nil && (mt.Is(storage.MimeJPEG) || mt.Is(storage.MimePNG)):
		if e.vision == nil {
			return "", ErrNoVisionClient
		}
		text, err := e.vision.ExtractText(ctx, mimeType, data)
		if err != nil {
			return "", fmt.Errorf("failed to transcribe image: %w", err)
		}
		e.logger.Debug("transcribed image", zap.Int("bytes", len(data)), zap.Int("chars", len(text)))
		return text, nil
	default:
		return "", &UnsupportedTypeError{MimeType: mimeType}
	}
}

// TextExtractor is the subset of Extractor the analyzer needs.
type TextExtractor interface {
	Extract(ctx context.Context, resume types.Resume) (string, error)
}

// ResumeStore loads resumes and persists their analyses.
type ResumeStore interface {
	GetResume(ctx context.Context, id uuid.UUID) (*types.Resume, error)
	SaveAnalysis(ctx context.Context, a types.ResumeAnalysis) (types.ResumeAnalysis, error)
}

// Analyzer runs the ATS scorer over stored resumes.
type Analyzer struct {
	store     ResumeStore
	extractor TextExtractor
	logger    *zap.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(store ResumeStore, extractor TextExtractor, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{store: store, extractor: extractor, logger: logger}
}

// AnalyzeResume extracts the resume's text, scores it and saves the result.
func (a *Analyzer) AnalyzeResume(ctx context.Context, resumeID uuid.UUID) (*types.ResumeAnalysis, error) {
	resume, err := a.store.GetResume(ctx, resumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resume: %w", err)
	}
	if resume == nil {
		return nil, fmt.Errorf("resume %s: %w", resumeID, db.ErrNotFound)
	}

	raw, err := a.extractor.Extract(ctx, *resume)
	if err != nil {
		return nil, err
	}
	text := ingestion.CleanText(raw)
	report := ats.Analyze(text)

	saved, err := a.store.SaveAnalysis(ctx, types.ResumeAnalysis{
		ResumeID:       resume.ID,
		Report:         report,
		ExtractedChars: len(text),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	a.logger.Info("resume analyzed",
		zap.String("resume_id", resume.ID.String()),
		zap.String("name", resume.Name),
		zap.Int("score", report.Score),
		zap.Int("formatting_score", report.FormattingScore),
	)
	return &saved, nil
}
