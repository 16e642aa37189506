package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_ModelFor(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		mimeType string
		size     int
		want     string
	}{
		{"png", "image/png", 5 << 20, "gemini-2.5-flash-lite"},
		{"small pdf", "application/pdf", 100 << 10, "gemini-2.5-flash-lite"},
		{"large pdf", "application/pdf", 3 << 20, "gemini-2.5-flash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.ModelFor(tt.mimeType, tt.size))
		})
	}
}

func TestConfig_ModelForFallbacks(t *testing.T) {
	assert.Equal(t, "doc", (&Config{DocumentModel: "doc"}).ModelFor("image/jpeg", 10))
	assert.Equal(t, "img", (&Config{ImageModel: "img"}).ModelFor("application/pdf", 10))
	assert.Equal(t, "", (&Config{}).ModelFor("application/pdf", 10))
}

func TestConfig_WithModel(t *testing.T) {
	original := DefaultConfig()
	updated := original.WithModel("custom")

	assert.Equal(t, "custom", updated.ModelFor("image/png", 1))
	assert.Equal(t, "custom", updated.ModelFor("application/pdf", 10<<20))
	assert.Equal(t, "gemini-2.5-flash", original.ModelFor("application/pdf", 10<<20), "original must not change")
}
