package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tripwise-ai/tripwise/internal/config"
)

// Capability tags one operation a provider supports.
type Capability string

const (
	CapabilityGenerate Capability = "generate"
	CapabilityChat     Capability = "chat"
)

// Descriptor is the immutable identity of a registered provider. It is
// created once at registration and never mutated afterwards.
type Descriptor struct {
	Name         string
	Model        string
	Capabilities []Capability
}

// Message is one role-tagged turn of a conversation. Role is one of
// system, user, assistant.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options bundles the per-call generation knobs every adapter recognizes.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Provider is the uniform capability wrapper over one backend text model.
// Implementations perform a single network call per invocation and never
// retry; retry-by-substitution belongs to the Registry.
type Provider interface {
	Descriptor() Descriptor
	Generate(ctx context.Context, prompt, systemMessage string, opts Options) (string, error)
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)
}

// GenerationResult is the outcome of one orchestrated call.
type GenerationResult struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
}

// Factory builds a provider from its connection config. A factory must fail
// (typically with ErrConfiguration) rather than return a half-usable
// adapter; registration-time failures are logged and skipped.
type Factory func(cfg config.ProviderConfig) (Provider, error)

var factories = map[string]Factory{}

// RegisterFactory binds a vendor tag to its provider factory. Adapters call
// this from init.
func RegisterFactory(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	factories[key] = factory
}

// NewProvider instantiates the provider registered under the vendor tag.
func NewProvider(name string, cfg config.ProviderConfig) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	factory := factories[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
	return factory(cfg)
}

// foldMessages flattens role-tagged messages into a single prompt for
// backends without native multi-role support.
func foldMessages(messages []Message) string {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			parts = append(parts, "System: "+msg.Content)
		case "assistant":
			parts = append(parts, "Assistant: "+msg.Content)
		default:
			parts = append(parts, "Human: "+msg.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
