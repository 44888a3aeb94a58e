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

const defaultOllamaBaseURL = "http://localhost:11434"

type ollamaEmbedder struct {
	client  *http.Client
	baseURL string
	model   string
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func createOllamaEmbedder(cfg config.EmbedderConfig) (Embedder, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &ollamaEmbedder{
		client:  &http.Client{Timeout: 2 * time.Minute},
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   cfg.Model,
	}, nil
}

func (e *ollamaEmbedder) ModelName() string { return e.model }

func (e *ollamaEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	_ = taskType // ollama embeddings are task-agnostic
	reqBody := ollamaEmbedRequest{Model: e.model, Prompt: text}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama embedder: request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama embedder: decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("ollama embedder: response has no embedding")
	}
	return out.Embedding, nil
}

func init() {
	Register("ollama", createOllamaEmbedder)
}
