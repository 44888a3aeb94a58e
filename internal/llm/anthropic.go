package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tripwise-ai/tripwise/internal/config"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"

	// Anthropic requires max_tokens on every request.
	anthropicDefaultMaxTokens = 1024
)

type anthropicProvider struct {
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func createAnthropicProvider(cfg config.ProviderConfig) (Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: %w: ANTHROPIC_API_KEY is not set", ErrConfiguration)
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &anthropicProvider{
		client:  &http.Client{Timeout: remoteCallTimeout},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   cfg.Model,
	}, nil
}

func (p *anthropicProvider) Descriptor() Descriptor {
	return Descriptor{
		Name:         "anthropic",
		Model:        p.model,
		Capabilities: []Capability{CapabilityGenerate, CapabilityChat},
	}
}

func (p *anthropicProvider) Generate(ctx context.Context, prompt, systemMessage string, opts Options) (string, error) {
	messages := []Message{{Role: "user", Content: prompt}}
	return p.sendMessages(ctx, systemMessage, messages, opts)
}

// Chat extracts a system turn into the native system field; the remaining
// turns pass through unchanged.
func (p *anthropicProvider) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	var systemMessage string
	chatMessages := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == "system" {
			systemMessage = msg.Content
			continue
		}
		chatMessages = append(chatMessages, msg)
	}
	return p.sendMessages(ctx, systemMessage, chatMessages, opts)
}

func (p *anthropicProvider) sendMessages(ctx context.Context, systemMessage string, messages []Message, opts Options) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	reqBody := anthropicRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		System:      systemMessage,
		Temperature: opts.Temperature,
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("anthropic: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", wrapTransportError("anthropic", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapTransportError("anthropic", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", wrapStatusError("anthropic", resp.StatusCode, body)
	}

	var out anthropicResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", wrapDecodeError("anthropic", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("anthropic: %w: %s", ErrMalformedResponse, out.Error.Message)
	}
	if len(out.Content) == 0 {
		return "", fmt.Errorf("anthropic: %w: no content blocks returned", ErrMalformedResponse)
	}
	var result strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(result.String()), nil
}

func init() {
	RegisterFactory("anthropic", createAnthropicProvider)
}
