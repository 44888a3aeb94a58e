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

	"github.com/tripwise-ai/tripwise/internal/config"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	remoteCallTimeout    = 60 * time.Second
)

type openAIProvider struct {
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func createOpenAIProvider(cfg config.ProviderConfig) (Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w: OPENAI_API_KEY is not set", ErrConfiguration)
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIProvider{
		client:  &http.Client{Timeout: remoteCallTimeout},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   cfg.Model,
	}, nil
}

func (p *openAIProvider) Descriptor() Descriptor {
	return Descriptor{
		Name:         "openai",
		Model:        p.model,
		Capabilities: []Capability{CapabilityGenerate, CapabilityChat},
	}
}

func (p *openAIProvider) Generate(ctx context.Context, prompt, systemMessage string, opts Options) (string, error) {
	var messages []Message
	if systemMessage != "" {
		messages = append(messages, Message{Role: "system", Content: systemMessage})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})
	return p.Chat(ctx, messages, opts)
}

func (p *openAIProvider) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	reqBody := chatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stream:      false,
	}
	return postChatCompletion(ctx, p.client, "openai", p.baseURL+"/chat/completions", reqBody, map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	})
}

// postChatCompletion issues one OpenAI-schema chat-completion call. Shared
// by the openai and azure adapters.
func postChatCompletion(ctx context.Context, client *http.Client, name, endpoint string, reqBody chatCompletionRequest, headers map[string]string) (string, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%s: create request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", wrapTransportError(name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return "", wrapStatusError(name, resp.StatusCode, body)
	}
	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", wrapDecodeError(name, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s: %w: response has no choices", name, ErrMalformedResponse)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func init() {
	RegisterFactory("openai", createOpenAIProvider)
}
