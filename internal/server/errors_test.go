package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/resume-live/internal/db"
	"github.com/jonathan/resume-live/internal/extraction"
	"github.com/jonathan/resume-live/internal/ingestion"
	"github.com/jonathan/resume-live/internal/moderation"
	"github.com/jonathan/resume-live/internal/schemas"
	"github.com/jonathan/resume-live/internal/storage"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &ingestion.ValidationError{Field: "overall", Message: "is required"}, http.StatusBadRequest},
		{"settings schema", &schemas.ValidationError{}, http.StatusBadRequest},
		{"request", &RequestError{Message: "invalid request body"}, http.StatusBadRequest},
		{"upload", &storage.UploadError{Name: "a.exe", Message: "type not accepted"}, http.StatusBadRequest},
		{"blocked", &moderation.BlockedError{Reason: "profanity"}, http.StatusUnprocessableEntity},
		{"unsupported type", &extraction.UnsupportedTypeError{MimeType: "text/plain"}, http.StatusUnprocessableEntity},
		{"duplicate", &db.DuplicateError{Entity: "presenter", Field: "email", Value: "a@b.co"}, http.StatusConflict},
		{"version conflict", fmt.Errorf("put: %w", &db.VersionConflictError{Key: "display", Expected: 1, Actual: 2}), http.StatusConflict},
		{"unknown settings key", &schemas.UnknownKeyError{Key: "nope"}, http.StatusNotFound},
		{"row not found", fmt.Errorf("resume x: %w", db.ErrNotFound), http.StatusNotFound},
		{"object not found", storage.ErrNotFound, http.StatusNotFound},
		{"credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"no vision", extraction.ErrNoVisionClient, http.StatusServiceUnavailable},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestNewErrorBody(t *testing.T) {
	t.Run("hides internal errors", func(t *testing.T) {
		body := newErrorBody(errors.New("pq: password authentication failed"), http.StatusInternalServerError, map[string]string{"a": "b"})
		assert.Equal(t, "internal server error", body.Error)
		assert.Empty(t, body.Field)
		assert.NotNil(t, body.Input)
	})

	t.Run("validation field", func(t *testing.T) {
		err := &ingestion.ValidationError{Field: "target_name", Message: "no resume is under review"}
		body := newErrorBody(err, http.StatusBadRequest, nil)
		assert.Equal(t, "target_name", body.Field)
		assert.Contains(t, body.Error, "no resume is under review")
	})

	t.Run("moderation reason", func(t *testing.T) {
		err := &moderation.BlockedError{Reason: "spam", Detail: "links are not allowed"}
		body := newErrorBody(err, http.StatusUnprocessableEntity, nil)
		assert.Equal(t, "spam", body.Reason)
	})

	t.Run("schema errors", func(t *testing.T) {
		err := &schemas.ValidationError{Errors: []schemas.FieldError{{Field: "orientation", Message: "must be one of the following"}}}
		body := newErrorBody(err, http.StatusBadRequest, nil)
		assert.Len(t, body.Errors, 1)
	})
}
