package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tripwise-ai/tripwise/internal/config"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3"

	// Local inference is slow; give it minutes rather than seconds.
	localCallTimeout = 5 * time.Minute

	discoveryTimeout = 5 * time.Second
)

// ollamaProvider wraps a locally-hosted model server speaking the Ollama
// JSON API.
type ollamaProvider struct {
	client  *http.Client
	baseURL string
	model   string
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func createOllamaProvider(cfg config.ProviderConfig) (Provider, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	provider := &ollamaProvider{
		client:  &http.Client{Timeout: localCallTimeout},
		baseURL: baseURL,
		model:   strings.TrimSpace(cfg.Model),
	}

	// Best-effort model discovery at registration. A host that does not
	// answer keeps the configured (or default) model name and a warning.
	discovered, err := provider.discoverModels()
	if err != nil {
		logutil.GetLogger(context.Background()).Warn("ollama model discovery failed",
			zap.String("base_url", baseURL), zap.Error(err))
	} else if provider.model == "" && len(discovered) > 0 {
		provider.model = discovered[0]
	}
	if provider.model == "" {
		provider.model = defaultOllamaModel
	}
	return provider, nil
}

func (p *ollamaProvider) discoverModels() ([]string, error) {
	client := &http.Client{Timeout: discoveryTimeout}
	req, err := http.NewRequest(http.MethodGet, p.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, wrapTransportError("ollama", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, wrapStatusError("ollama", resp.StatusCode, body)
	}
	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, wrapDecodeError("ollama", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (p *ollamaProvider) Descriptor() Descriptor {
	return Descriptor{
		Name:         "ollama",
		Model:        p.model,
		Capabilities: []Capability{CapabilityGenerate, CapabilityChat},
	}
}

func (p *ollamaProvider) Generate(ctx context.Context, prompt, systemMessage string, opts Options) (string, error) {
	fullPrompt := prompt
	if systemMessage != "" {
		fullPrompt = systemMessage + "\n\n" + prompt
	}
	reqBody := ollamaGenerateRequest{
		Model:   p.model,
		Prompt:  fullPrompt,
		Stream:  false,
		Options: buildOllamaOptions(opts),
	}
	var out ollamaGenerateResponse
	if err := p.post(ctx, "/api/generate", reqBody, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Response), nil
}

func (p *ollamaProvider) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	reqBody := ollamaChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   false,
		Options:  buildOllamaOptions(opts),
	}
	var out ollamaChatResponse
	if err := p.post(ctx, "/api/chat", reqBody, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Message.Content), nil
}

func (p *ollamaProvider) post(ctx context.Context, path string, reqBody, out interface{}) error {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("ollama: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return wrapTransportError("ollama", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return wrapStatusError("ollama", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrapDecodeError("ollama", err)
	}
	return nil
}

func buildOllamaOptions(opts Options) *ollamaOptions {
	if opts.MaxTokens == 0 && opts.Temperature == 0 {
		return nil
	}
	return &ollamaOptions{
		NumPredict:  opts.MaxTokens,
		Temperature: opts.Temperature,
	}
}

func init() {
	RegisterFactory("ollama", createOllamaProvider)
}
