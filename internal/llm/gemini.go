package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/tripwise-ai/tripwise/internal/config"
)

type geminiProvider struct {
	apiKey string
	model  string
}

func createGeminiProvider(cfg config.ProviderConfig) (Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w: GOOGLE_API_KEY is not set", ErrConfiguration)
	}
	return &geminiProvider{apiKey: apiKey, model: cfg.Model}, nil
}

func (p *geminiProvider) Descriptor() Descriptor {
	return Descriptor{
		Name:         "gemini",
		Model:        p.model,
		Capabilities: []Capability{CapabilityGenerate, CapabilityChat},
	}
}

func (p *geminiProvider) Generate(ctx context.Context, prompt, systemMessage string, opts Options) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("gemini: %w: %v", ErrUnreachable, err)
	}
	fullPrompt := prompt
	if systemMessage != "" {
		fullPrompt = systemMessage + "\n\n" + prompt
	}
	genConfig := &genai.GenerateContentConfig{}
	if opts.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		genConfig.Temperature = genai.Ptr(float32(opts.Temperature))
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		p.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: fullPrompt}}}},
		genConfig,
	)
	if err != nil {
		return "", wrapTransportError("gemini", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: %w: empty response", ErrMalformedResponse)
	}
	return text, nil
}

// Chat folds the role-tagged history into one prompt; the Gemini generate
// path has no native multi-role transcript in this shape.
func (p *geminiProvider) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	return p.Generate(ctx, foldMessages(messages), "", opts)
}

func init() {
	RegisterFactory("gemini", createGeminiProvider)
}
