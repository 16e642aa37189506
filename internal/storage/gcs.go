package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

// GCSStore keeps objects in Google Cloud Storage.
type GCSStore struct {
	svc     *gcs.Service
	baseURL string
}

// NewGCSStore creates a store using application default credentials, or the
// given credentials file when it is not empty.
func NewGCSStore(ctx context.Context, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gcs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{svc: svc, baseURL: "https://storage.googleapis.com"}, nil
}

// Upload writes data to bucket/key.
func (s *GCSStore) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	obj := &gcs.Object{Name: key, ContentType: contentType}
	_, err := s.svc.Objects.Insert(bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Open downloads the object at bucket/key.
func (s *GCSStore) Open(ctx context.Context, bucket, key string) ([]byte, error) {
	resp, err := s.svc.Objects.Get(bucket, key).Context(ctx).Download()
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download %s/%s: %w", bucket, key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Delete removes the object at bucket/key.
func (s *GCSStore) Delete(ctx context.Context, bucket, key string) error {
	if err := s.svc.Objects.Delete(bucket, key).Context(ctx).Do(); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

// PublicURL returns the public object URL. The bucket must allow public reads.
func (s *GCSStore) PublicURL(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + bucket + "/" + strings.Join(segments, "/")
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
