package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tripwise-ai/tripwise/internal/config"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIEmbedder struct {
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
}

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func createOpenAIEmbedder(cfg config.EmbedderConfig) (Embedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openai embedder: OPENAI_API_KEY is not set")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIEmbedder{
		client:  &http.Client{Timeout: 30 * time.Second},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   cfg.Model,
	}, nil
}

func (e *openAIEmbedder) ModelName() string { return e.model }

func (e *openAIEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	_ = taskType // openai has no task-type concept
	reqBody := openAIEmbedRequest{Model: e.model, Input: text}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("openai embedder: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai embedder: request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var out openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("openai embedder: decode response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("openai embedder: response has no embeddings")
	}
	return out.Data[0].Embedding, nil
}

func init() {
	Register("openai", createOpenAIEmbedder)
}
