// Package storage provides object storage for uploaded resumes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxUploadBytes is the largest accepted resume upload.
const MaxUploadBytes = 10 << 20

// DefaultBucket holds uploaded resumes.
const DefaultBucket = "resumes"

// Accepted upload types.
const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

var allowedTypes = []string{MimePDF, MimeJPEG, MimePNG}

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Store uploads and serves objects.
type Store interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Open(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
}

// UploadError reports a file rejected before upload.
type UploadError struct {
	Name    string
	Message string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("invalid upload %q: %s", e.Name, e.Message)
}

// ValidateUpload checks size and sniffed content type and returns the
// canonical MIME type. The declared type and file extension are not trusted.
func ValidateUpload(name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &UploadError{Name: name, Message: "file is empty"}
	}
	if len(data) > MaxUploadBytes {
		return "", &UploadError{Name: name, Message: fmt.Sprintf("file is %d bytes, limit is %d", len(data), MaxUploadBytes)}
	}

	detected := mimetype.Detect(data)
	for _, allowed := range allowedTypes {
		if detected.Is(allowed) {
			return allowed, nil
		}
	}
	return "", &UploadError{Name: name, Message: fmt.Sprintf("type %s is not accepted (PDF, JPEG or PNG only)", detected.String())}
}

// ObjectKey returns a fresh, collision-free key for an upload of mimeType.
func ObjectKey(mimeType string) string {
	ext := ".bin"
	if mt := mimetype.Lookup(mimeType); mt != nil {
		ext = mt.Extension()
	}
	return uuid.NewString() + ext
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || strings.HasPrefix(cleaned, "..") || cleaned != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}
