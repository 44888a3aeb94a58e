package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tripwise-ai/tripwise/internal/config"
)

// azureProvider speaks the Azure OpenAI flavor of the chat-completion
// schema: deployment-scoped endpoint, api-key header, api-version query.
type azureProvider struct {
	client     *http.Client
	apiKey     string
	endpoint   string
	deployment string
	apiVersion string
}

func createAzureProvider(cfg config.ProviderConfig) (Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if apiKey == "" || endpoint == "" {
		return nil, fmt.Errorf("azure: %w: AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY are both required", ErrConfiguration)
	}
	return &azureProvider{
		client:     &http.Client{Timeout: remoteCallTimeout},
		apiKey:     apiKey,
		endpoint:   strings.TrimRight(endpoint, "/"),
		deployment: cfg.Model,
		apiVersion: cfg.APIVersion,
	}, nil
}

func (p *azureProvider) Descriptor() Descriptor {
	return Descriptor{
		Name:         "azure",
		Model:        p.deployment,
		Capabilities: []Capability{CapabilityGenerate, CapabilityChat},
	}
}

func (p *azureProvider) Generate(ctx context.Context, prompt, systemMessage string, opts Options) (string, error) {
	var messages []Message
	if systemMessage != "" {
		messages = append(messages, Message{Role: "system", Content: systemMessage})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})
	return p.Chat(ctx, messages, opts)
}

func (p *azureProvider) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		p.endpoint, p.deployment, p.apiVersion)
	reqBody := chatCompletionRequest{
		Model:       p.deployment,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stream:      false,
	}
	return postChatCompletion(ctx, p.client, "azure", endpoint, reqBody, map[string]string{
		"api-key": p.apiKey,
	})
}

func init() {
	RegisterFactory("azure", createAzureProvider)
}
