package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/resume-live/internal/config"
	"github.com/jonathan/resume-live/internal/db"
	"github.com/jonathan/resume-live/internal/feed"
	"github.com/jonathan/resume-live/internal/ingestion"
	"github.com/jonathan/resume-live/internal/llm"
	"github.com/jonathan/resume-live/internal/storage"
	"github.com/jonathan/resume-live/internal/types"
)

// errAnalysisDisabled is returned when the server was built without a text
// extractor.
var errAnalysisDisabled = errors.New("resume analysis is not configured")

// OpenVision returns the image transcription client, or nil when no API key
// is configured. PDFs are still analyzed without it.
func OpenVision(ctx context.Context, cfg *config.Config, log *zap.Logger) (llm.Client, error) {
	if cfg.LLM.APIKey == "" {
		log.Info("no LLM API key configured, image resumes cannot be analyzed")
		return nil, nil
	}
	modelConfig := llm.DefaultConfig()
	if cfg.LLM.Model != "" {
		modelConfig = modelConfig.WithModel(cfg.LLM.Model)
	}
	client, err := llm.NewGeminiClient(ctx, modelConfig, cfg.LLM.APIKey)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// sanitizeFilename keeps the display name of an upload to one line without
// directory components.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return ingestion.SingleLine(name)
}

// handleUploadResume stores a multipart "file" upload. The optional "name"
// field overrides the display name; "analyze=true" runs the ATS scorer
// before responding.
func (s *Server) handleUploadResume(w http.ResponseWriter, r *http.Request) {
	if s.objects == nil {
		s.writeError(w, r, errors.New("object storage is not configured"), nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(storage.MaxUploadBytes); err != nil {
		s.writeError(w, r, &RequestError{Field: "file", Message: "invalid or oversized multipart upload"}, nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, &RequestError{Field: "file", Message: "is required"}, nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxUploadBytes+1))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("failed to read upload: %w", err), nil)
		return
	}
	filename := sanitizeFilename(header.Filename)
	mimeType, err := storage.ValidateUpload(filename, data)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	name := sanitizeFilename(r.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(filename, filepath.Ext(filename))
	}
	if name == "" {
		s.writeError(w, r, &RequestError{Field: "name", Message: "is required"}, nil)
		return
	}

	key := storage.ObjectKey(mimeType)
	if err := s.objects.Upload(r.Context(), s.bucket, key, data, mimeType); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	resume, err := s.store.InsertResume(r.Context(), types.Resume{
		Name:        name,
		StoragePath: key,
		MimeType:    mimeType,
		SizeBytes:   int64(len(data)),
		PublicURL:   s.objects.PublicURL(s.bucket, key),
	})
	if err != nil {
		if delErr := s.objects.Delete(r.Context(), s.bucket, key); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("key", key), zap.Error(delErr))
		}
		s.writeError(w, r, err, nil)
		return
	}
	s.publish(feed.EventInsert, feed.TableResumes, resume.ID.String(), "", resume)
	s.logger.Info("resume uploaded",
		zap.String("resume_id", resume.ID.String()),
		zap.String("mime_type", mimeType),
		zap.Int("bytes", len(data)))

	response := map[string]any{"resume": resume}
	if r.FormValue("analyze") == "true" {
		analysis, err := s.analyze(r.Context(), resume)
		if err != nil {
			// The upload stands; report the analysis failure alongside it.
			s.logger.Warn("analysis after upload failed", zap.String("resume_id", resume.ID.String()), zap.Error(err))
			response["analysis_error"] = newErrorBody(err, HTTPStatus(err), nil).Error
		} else {
			response["analysis"] = analysis
		}
	}
	s.jsonResponse(w, http.StatusCreated, response)
}

func (s *Server) analyze(ctx context.Context, resume types.Resume) (*types.ResumeAnalysis, error) {
	if s.analyzer == nil {
		return nil, errAnalysisDisabled
	}
	return s.analyzer.AnalyzeResume(ctx, resume.ID)
}

func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	resumes, err := s.store.ListResumes(r.Context(), limit)
	writeList(s, w, r, resumes, err)
}

func (s *Server) loadResume(r *http.Request) (*types.Resume, error) {
	id, err := pathUUID(r, "id")
	if err != nil {
		return nil, err
	}
	resume, err := s.store.GetResume(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if resume == nil {
		return nil, fmt.Errorf("resume %s: %w", id, db.ErrNotFound)
	}
	return resume, nil
}

func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	resume, err := s.loadResume(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, resume)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	resume, err := s.loadResume(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	analysis, err := s.store.GetLatestAnalysis(r.Context(), resume.ID)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if analysis == nil {
		s.writeError(w, r, fmt.Errorf("analysis for resume %s: %w", resume.ID, db.ErrNotFound), nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, analysis)
}

func (s *Server) handleAnalyzeResume(w http.ResponseWriter, r *http.Request) {
	resume, err := s.loadResume(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	analysis, err := s.analyze(r.Context(), *resume)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, analysis)
}
