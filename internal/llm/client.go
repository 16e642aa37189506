package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jonathan/resume-live/internal/prompts"
)

// noTextMarker is the model's reply for a document without readable text.
const noTextMarker = "NO_TEXT"

// transcribePrompt asks the model for a verbatim transcription of a document
// of mimeType.
func transcribePrompt(mimeType string) string {
	kind := "document"
	if strings.HasPrefix(mimeType, "image/") {
		kind = "image"
	}
	return prompts.Format(prompts.MustGet(prompts.FileExtraction, prompts.KeyTranscribeResume), map[string]string{
		"Kind":   kind,
		"NoText": noTextMarker,
	})
}

// Client reads text out of documents.
type Client interface {
	// ExtractText returns the text contained in data, a document of mimeType.
	ExtractText(ctx context.Context, mimeType string, data []byte) (string, error)
	// Close releases any resources held by the client
	Close() error
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultConfig()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// ExtractText transcribes the document with the configured model.
func (c *GeminiClient) ExtractText(ctx context.Context, mimeType string, data []byte) (string, error) {
	modelName := c.config.ModelFor(mimeType, len(data))
	if modelName == "" {
		return "", fmt.Errorf("no model configured for %s", mimeType)
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(0) // Transcription, not generation

	resp, err := model.GenerateContent(ctx, documentPart(mimeType, data), genai.Text(transcribePrompt(mimeType)))
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}
	text = StripCodeFence(text)
	if strings.TrimSpace(text) == noTextMarker {
		return "", nil
	}
	return text, nil
}

// documentPart wraps the file in the part type Gemini expects for it.
func documentPart(mimeType string, data []byte) genai.Part {
	if format, ok := strings.CutPrefix(mimeType, "image/"); ok {
		return genai.ImageData(format, data)
	}
	return genai.Blob{MIMEType: mimeType, Data: data}
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
