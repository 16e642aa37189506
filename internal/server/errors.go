package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/resume-live/internal/db"
	"github.com/jonathan/resume-live/internal/extraction"
	"github.com/jonathan/resume-live/internal/ingestion"
	"github.com/jonathan/resume-live/internal/moderation"
	"github.com/jonathan/resume-live/internal/schemas"
	"github.com/jonathan/resume-live/internal/storage"
)

// ErrInvalidCredentials indicates invalid login credentials.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrForbidden is returned when a bootstrap-only action is attempted by an
// anonymous caller after the first host exists.
var ErrForbidden = errors.New("host token required")

// RequestError reports a malformed request (bad JSON, bad path parameter).
type RequestError struct {
	Field   string
	Message string
}

func (e *RequestError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	var (
		validation *ingestion.ValidationError
		settings   *schemas.ValidationError
		unknownKey *schemas.UnknownKeyError
		request    *RequestError
		upload     *storage.UploadError
		blocked    *moderation.BlockedError
		duplicate  *db.DuplicateError
		conflict   *db.VersionConflictError
		mimeType   *extraction.UnsupportedTypeError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &settings), errors.As(err, &request), errors.As(err, &upload):
		return http.StatusBadRequest
	case errors.As(err, &blocked), errors.As(err, &mimeType):
		return http.StatusUnprocessableEntity
	case errors.As(err, &duplicate), errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &unknownKey), errors.Is(err, db.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, extraction.ErrNoVisionClient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of every error response. Input echoes the
// rejected payload so the client can keep what the user typed.
type errorBody struct {
	Error  string               `json:"error"`
	Field  string               `json:"field,omitempty"`
	Reason string               `json:"reason,omitempty"`
	Errors []schemas.FieldError `json:"errors,omitempty"`
	Input  any                  `json:"input,omitempty"`
}

// newErrorBody describes err for a client. Unexpected errors get a generic
// message.
func newErrorBody(err error, status int, input any) errorBody {
	body := errorBody{Error: err.Error(), Input: input}
	if status >= http.StatusInternalServerError {
		body.Error = "internal server error"
		return body
	}

	var (
		validation *ingestion.ValidationError
		settings   *schemas.ValidationError
		blocked    *moderation.BlockedError
		request    *RequestError
	)
	switch {
	case errors.As(err, &validation):
		body.Field = validation.Field
	case errors.As(err, &request):
		body.Field = request.Field
	case errors.As(err, &settings):
		body.Errors = settings.Errors
	case errors.As(err, &blocked):
		body.Reason = blocked.Reason
	}
	return body
}
