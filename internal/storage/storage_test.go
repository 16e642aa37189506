package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pdfBytes  = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr string
	}{
		{name: "pdf", data: pdfBytes, want: MimePDF},
		{name: "png", data: pngBytes, want: MimePNG},
		{name: "jpeg", data: jpegBytes, want: MimeJPEG},
		{name: "empty", data: nil, wantErr: "file is empty"},
		{name: "plain text", data: []byte("just some text"), wantErr: "not accepted"},
		{name: "too large", data: append(append([]byte{}, pdfBytes...), bytes.Repeat([]byte("a"), MaxUploadBytes)...), wantErr: "limit is"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateUpload("resume", tt.data)
			if tt.wantErr != "" {
				var uploadErr *UploadError
				require.ErrorAs(t, err, &uploadErr)
				assert.Contains(t, uploadErr.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObjectKey(t *testing.T) {
	assert.True(t, strings.HasSuffix(ObjectKey(MimePDF), ".pdf"))
	assert.True(t, strings.HasSuffix(ObjectKey(MimePNG), ".png"))
	assert.True(t, strings.HasSuffix(ObjectKey("application/x-unknown-thing"), ".bin"))
	assert.NotEqual(t, ObjectKey(MimePDF), ObjectKey(MimePDF))
}

func TestFSStore_RoundTrip(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), "http://localhost:8080/files/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, DefaultBucket, "a/b.pdf", pdfBytes, MimePDF))

	data, err := store.Open(ctx, DefaultBucket, "a/b.pdf")
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, data)

	assert.Equal(t, "http://localhost:8080/files/resumes/a/b.pdf", store.PublicURL(DefaultBucket, "a/b.pdf"))

	require.NoError(t, store.Delete(ctx, DefaultBucket, "a/b.pdf"))
	_, err = store.Open(ctx, DefaultBucket, "a/b.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, DefaultBucket, "a/b.pdf"), ErrNotFound)
}

func TestFSStore_RejectsTraversal(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), "")
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, store.Upload(ctx, DefaultBucket, "../escape.pdf", pdfBytes, MimePDF))
	assert.Error(t, store.Upload(ctx, "../up", "x.pdf", pdfBytes, MimePDF))
	assert.Error(t, store.Upload(ctx, "a/b", "x.pdf", pdfBytes, MimePDF))
	assert.Error(t, store.Upload(ctx, DefaultBucket, "", pdfBytes, MimePDF))
}

func TestFSStore_Handler(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), "/files")
	require.NoError(t, err)
	require.NoError(t, store.Upload(context.Background(), DefaultBucket, "x.pdf", pdfBytes, MimePDF))

	srv := httptest.NewServer(http.StripPrefix("/files", store.Handler()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/files/resumes/x.pdf")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, body)
}

func TestGCSStore_PublicURL(t *testing.T) {
	store := &GCSStore{baseURL: "https://storage.googleapis.com"}
	assert.Equal(t, "https://storage.googleapis.com/bucket/dir/a%20b.pdf", store.PublicURL("bucket", "dir/a b.pdf"))
}
