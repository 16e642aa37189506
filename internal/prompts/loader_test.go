package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_TranscribePrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get(FileExtraction, KeyTranscribeResume)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Transcribe all text")
	assert.Contains(t, prompt, "{{.Kind}}")
}

func TestGet_Errors(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", KeyTranscribeResume)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")

	_, err = Get(FileExtraction, "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() { MustGet("nonexistent.json", "x") })
	assert.NotPanics(t, func() { MustGet(FileExtraction, KeyTranscribeResume) })
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{"replaces", "resume {{.Kind}}, else {{.NoText}}", map[string]string{"Kind": "image", "NoText": "NONE"}, "resume image, else NONE"},
		{"repeated", "{{.Kind}}/{{.Kind}}", map[string]string{"Kind": "pdf"}, "pdf/pdf"},
		{"unknown placeholder kept", "Hello {{.Name}}", map[string]string{}, "Hello {{.Name}}"},
		{"no placeholders", "plain", map[string]string{"Kind": "pdf"}, "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.template, tt.data))
		})
	}
}

func TestCaching(t *testing.T) {
	ClearCache()

	first, err := Get(FileExtraction, KeyTranscribeResume)
	require.NoError(t, err)
	second, err := Get(FileExtraction, KeyTranscribeResume)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	cacheMu.RLock()
	_, cached := cache[FileExtraction]
	cacheMu.RUnlock()
	assert.True(t, cached)
}
