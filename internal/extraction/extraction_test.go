package extraction

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-live/internal/db"
	"github.com/jonathan/resume-live/internal/storage"
	"github.com/jonathan/resume-live/internal/types"
)

func TestPDFText_TjOperators(t *testing.T) {
	pdf := []byte("%PDF-1.4\nBT /F1 12 Tf (Jane Doe) Tj ET\nBT (Senior \\(Go\\) Engineer) Tj ET\n%%EOF")
	assert.Equal(t, "Jane Doe\nSenior (Go) Engineer", PDFText(pdf))
}

func TestPDFText_TJArrays(t *testing.T) {
	pdf := []byte("BT [(Ex) -20 (perience)] TJ ET BT (Skills) Tj ET")
	assert.Equal(t, "Experience\nSkills", PDFText(pdf))
}

func TestPDFText_CompressedStream(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte("BT (Education: BSc) Tj ET"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	pdf := append([]byte("%PDF-1.5\n1 0 obj\n<< /Filter /FlateDecode >>\nstream\n"), buf.Bytes()...)
	pdf = append(pdf, []byte("\nendstream\nendobj\n%%EOF")...)

	assert.Equal(t, "Education: BSc", PDFText(pdf))
}

func TestPDFText_FallbackToPrintableRuns(t *testing.T) {
	data := []byte("\x00\x01abc\x02Python developer\x03\x04\x05kubernetes\x06ok")
	assert.Equal(t, "Python developer\nkubernetes", PDFText(data))
}

func TestUnescapeLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`plain`, "plain"},
		{`a\nb`, "a\nb"},
		{`\(x\)`, "(x)"},
		{`back\\slash`, `back\slash`},
		{`\101BC`, "ABC"},
		{`\001drop`, "drop"},
		{`trailing\`, `trailing\`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, unescapeLiteral([]byte(tt.in)), tt.in)
	}
}

type fakeObjects struct {
	files map[string][]byte
}

func (f *fakeObjects) Open(_ context.Context, bucket, key string) ([]byte, error) {
	data, ok := f.files[bucket+"/"+key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

type fakeVision struct {
	text     string
	mimeType string
}

func (f *fakeVision) ExtractText(_ context.Context, mimeType string, _ []byte) (string, error) {
	f.mimeType = mimeType
	return f.text, nil
}

func (f *fakeVision) Close() error { return nil }

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestExtractor_Extract(t *testing.T) {
	objects := &fakeObjects{files: map[string][]byte{
		"resumes/a.pdf": []byte("%PDF-1.4\nBT (Jane Doe) Tj ET"),
		"resumes/b.png": pngHeader,
	}}
	vision := &fakeVision{text: "John Roe"}
	ex := NewExtractor(objects, "", vision, nil)
	ctx := context.Background()

	text, err := ex.Extract(ctx, types.Resume{StoragePath: "a.pdf", MimeType: storage.MimePDF})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", text)

	// Missing mime type is sniffed from the content
	text, err = ex.Extract(ctx, types.Resume{StoragePath: "b.png"})
	require.NoError(t, err)
	assert.Equal(t, "John Roe", text)
	assert.Equal(t, storage.MimePNG, vision.mimeType)

	_, err = ex.Extract(ctx, types.Resume{StoragePath: "missing.pdf", MimeType: storage.MimePDF})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExtractor_ExtractBytes_Errors(t *testing.T) {
	ex := NewExtractor(&fakeObjects{}, "", nil, nil)

	_, err := ex.ExtractBytes(context.Background(), storage.MimeJPEG, []byte{0xff, 0xd8})
	assert.ErrorIs(t, err, ErrNoVisionClient)

	_, err = ex.ExtractBytes(context.Background(), "text/plain", []byte("hello"))
	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "text/plain", unsupported.MimeType)
}

type fakeResumeStore struct {
	resumes map[uuid.UUID]types.Resume
	saved   []types.ResumeAnalysis
}

func (f *fakeResumeStore) GetResume(_ context.Context, id uuid.UUID) (*types.Resume, error) {
	r, ok := f.resumes[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeResumeStore) SaveAnalysis(_ context.Context, a types.ResumeAnalysis) (types.ResumeAnalysis, error) {
	a.ID = uuid.New()
	f.saved = append(f.saved, a)
	return a, nil
}

type staticExtractor struct {
	text string
	err  error
}

func (s staticExtractor) Extract(context.Context, types.Resume) (string, error) {
	return s.text, s.err
}

func TestAnalyzer_AnalyzeResume(t *testing.T) {
	id := uuid.New()
	store := &fakeResumeStore{resumes: map[uuid.UUID]types.Resume{id: {ID: id, Name: "jane.pdf"}}}
	text := "Jane Doe  jane@example.com\n\n\n\nExperience\nLed a Python and Go migration\nEducation\nBSc\nSkills"
	analyzer := NewAnalyzer(store, staticExtractor{text: text}, nil)

	got, err := analyzer.AnalyzeResume(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, store.saved, 1)

	assert.Equal(t, id, got.ResumeID)
	assert.Equal(t, 100, got.Report.FormattingScore)
	assert.Contains(t, got.Report.SkillsFound, "python")
	assert.Contains(t, got.Report.KeywordsFound, "led")
	// Extracted text is normalized before scoring
	assert.Less(t, got.ExtractedChars, len(text))
}

func TestAnalyzer_AnalyzeResume_Errors(t *testing.T) {
	store := &fakeResumeStore{resumes: map[uuid.UUID]types.Resume{}}
	analyzer := NewAnalyzer(store, staticExtractor{}, nil)

	_, err := analyzer.AnalyzeResume(context.Background(), uuid.New())
	assert.ErrorIs(t, err, db.ErrNotFound)

	id := uuid.New()
	store.resumes[id] = types.Resume{ID: id}
	boom := errors.New("boom")
	analyzer = NewAnalyzer(store, staticExtractor{err: boom}, nil)
	_, err = analyzer.AnalyzeResume(context.Background(), id)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.saved)
}
