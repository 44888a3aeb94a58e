package embed

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/tripwise-ai/tripwise/internal/config"
)

type geminiEmbedder struct {
	apiKey string
	model  string
}

func createGeminiEmbedder(cfg config.EmbedderConfig) (Embedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini embedder: GOOGLE_API_KEY is not set")
	}
	return &geminiEmbedder{apiKey: apiKey, model: cfg.Model}, nil
}

func (e *geminiEmbedder) ModelName() string { return e.model }

func (e *geminiEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  e.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: %w: %v", ErrUnavailable, err)
	}
	var embedConfig *genai.EmbedContentConfig
	if taskType != "" {
		embedConfig = &genai.EmbedContentConfig{TaskType: taskType}
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		e.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		embedConfig,
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: %w: %v", ErrUnavailable, err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("gemini embedder: no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}

func init() {
	Register("gemini", createGeminiEmbedder)
}
