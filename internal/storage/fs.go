package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FSStore keeps objects on the local filesystem, one directory per bucket.
type FSStore struct {
	root    string
	baseURL string
}

// NewFSStore creates a store rooted at root. Public URLs are built from
// baseURL, which should point at the store's Handler.
func NewFSStore(root, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &FSStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *FSStore) path(bucket, key string) (string, error) {
	b, err := cleanKey(bucket)
	if err != nil || strings.Contains(b, "/") {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, b, filepath.FromSlash(k)), nil
}

// Upload writes data to bucket/key, replacing any existing object.
func (s *FSStore) Upload(_ context.Context, bucket, key string, data []byte, _ string) error {
	p, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create bucket directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

// Open reads the object at bucket/key.
func (s *FSStore) Open(_ context.Context, bucket, key string) ([]byte, error) {
	p, err := s.path(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// Delete removes the object at bucket/key.
func (s *FSStore) Delete(_ context.Context, bucket, key string) error {
	p, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// PublicURL returns the URL the object is served at by Handler.
func (s *FSStore) PublicURL(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

// Handler serves stored objects read-only. Mount it with the prefix used in
// baseURL stripped.
func (s *FSStore) Handler() http.Handler {
	return http.FileServer(http.Dir(s.root))
}
