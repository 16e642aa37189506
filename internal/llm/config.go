// Package llm provides the LLM client used to read text out of uploaded
// resume images and documents.
package llm

import "strings"

// Config picks the Gemini model that transcribes a given upload.
type Config struct {
	ImageModel    string
	DocumentModel string
	// Documents of at least LargeDocumentBytes go to LargeModel when set.
	LargeModel         string
	LargeDocumentBytes int
}

// DefaultConfig returns the models used when none are configured.
func DefaultConfig() *Config {
	return &Config{
		ImageModel:         "gemini-2.5-flash-lite",
		DocumentModel:      "gemini-2.5-flash-lite",
		LargeModel:         "gemini-2.5-flash",
		LargeDocumentBytes: 2 << 20,
	}
}

// ModelFor returns the model for an upload of mimeType and size bytes, or ""
// when none is configured.
func (c *Config) ModelFor(mimeType string, size int) string {
	if strings.HasPrefix(mimeType, "image/") {
		if c.ImageModel != "" {
			return c.ImageModel
		}
		return c.DocumentModel
	}
	if c.LargeModel != "" && c.LargeDocumentBytes > 0 && size >= c.LargeDocumentBytes {
		return c.LargeModel
	}
	if c.DocumentModel != "" {
		return c.DocumentModel
	}
	return c.ImageModel
}

// WithModel returns a copy that sends every upload to model.
func (c *Config) WithModel(model string) *Config {
	out := *c
	out.ImageModel = model
	out.DocumentModel = model
	out.LargeModel = ""
	return &out
}
