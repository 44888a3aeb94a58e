package llm

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tripwise-ai/tripwise/internal/config"
)

// PriorityOrder is the fixed order in which providers are attempted when no
// provider is named explicitly. The registry filters it down to the subset
// actually registered; it is never reordered at runtime.
var PriorityOrder = []string{"ollama", "openai", "azure", "anthropic", "gemini"}

// Registry owns the set of live provider adapters and implements provider
// selection and the fallback chain. It is built once at process start and
// read-only afterwards, so concurrent requests share it without locking.
type Registry struct {
	priority  []string
	providers map[string]Provider
}

// NewRegistry creates an empty registry with the given priority list.
func NewRegistry(priority []string) *Registry {
	if len(priority) == 0 {
		priority = PriorityOrder
	}
	ordered := make([]string, len(priority))
	copy(ordered, priority)
	return &Registry{
		priority:  ordered,
		providers: make(map[string]Provider),
	}
}

// Register adds a constructed adapter. Intended to be called only during
// startup, before the registry is shared.
func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.providers[p.Descriptor().Name] = p
}

// BuildRegistry probes every candidate on the priority list against the
// supplied configs and registers the ones whose preconditions hold. A
// provider that fails construction is logged and skipped, never fatal.
func BuildRegistry(ctx context.Context, cfgs map[string]config.ProviderConfig) *Registry {
	logger := logutil.GetLogger(ctx)
	registry := NewRegistry(PriorityOrder)
	for _, name := range registry.priority {
		cfg, ok := cfgs[name]
		if !ok {
			continue
		}
		provider, err := NewProvider(name, cfg)
		if err != nil {
			logger.Warn("provider not registered", zap.String("provider", name), zap.Error(err))
			continue
		}
		registry.Register(provider)
		logger.Info("provider registered",
			zap.String("provider", name),
			zap.String("model", provider.Descriptor().Model),
		)
	}
	if len(registry.providers) == 0 {
		logger.Warn("no llm providers registered, generation calls will fail")
	}
	return registry
}

// ListProviders returns the registered provider names in priority order.
// Unregistered candidates are silently omitted, never reordered.
func (r *Registry) ListProviders() []string {
	names := make([]string, 0, len(r.providers))
	for _, name := range r.priority {
		if _, ok := r.providers[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// GetProvider returns the named adapter, or the highest-priority one when
// name is empty.
func (r *Registry) GetProvider(name string) (Provider, error) {
	if name == "" {
		names := r.ListProviders()
		if len(names) == 0 {
			return nil, ErrNoProvidersAvailable
		}
		return r.providers[names[0]], nil
	}
	provider, ok := r.providers[name]
	if !ok {
		return nil, &ProviderNotFoundError{Name: name, Available: r.ListProviders()}
	}
	return provider, nil
}

// GenerateResponse answers a plain generation request. With providerName
// set it is a single attempt against that adapter; otherwise the registered
// providers are tried sequentially in priority order and the first success
// wins. When every candidate fails the result carries an ExhaustedError
// wrapping the last attempt's error.
func (r *Registry) GenerateResponse(ctx context.Context, prompt, providerName, systemMessage string, opts Options) GenerationResult {
	return r.dispatch(ctx, providerName, func(ctx context.Context, p Provider) (string, error) {
		return p.Generate(ctx, prompt, systemMessage, opts)
	})
}

// ChatCompletion answers a multi-turn request with the same selection and
// fallback semantics as GenerateResponse.
func (r *Registry) ChatCompletion(ctx context.Context, messages []Message, providerName string, opts Options) GenerationResult {
	return r.dispatch(ctx, providerName, func(ctx context.Context, p Provider) (string, error) {
		return p.Chat(ctx, messages, opts)
	})
}

func (r *Registry) dispatch(ctx context.Context, providerName string, call func(context.Context, Provider) (string, error)) GenerationResult {
	logger := logutil.GetLogger(ctx)

	if providerName != "" {
		provider, err := r.GetProvider(providerName)
		if err != nil {
			return failure(err, "", "")
		}
		desc := provider.Descriptor()
		text, err := call(ctx, provider)
		if err != nil {
			logger.Error("provider call failed", zap.String("provider", desc.Name), zap.Error(err))
			return failure(err, desc.Name, desc.Model)
		}
		return success(text, desc)
	}

	names := r.ListProviders()
	if len(names) == 0 {
		return failure(ErrNoProvidersAvailable, "", "")
	}

	var lastErr error
	for _, name := range names {
		provider := r.providers[name]
		desc := provider.Descriptor()
		text, err := call(ctx, provider)
		if err == nil {
			return success(text, desc)
		}
		lastErr = err
		logger.Warn("provider failed, falling back",
			zap.String("provider", desc.Name),
			zap.Error(err),
		)
	}
	return failure(&ExhaustedError{Attempts: len(names), Last: lastErr}, "", "")
}

func success(text string, desc Descriptor) GenerationResult {
	return GenerationResult{
		Success:  true,
		Response: text,
		Provider: desc.Name,
		Model:    desc.Model,
	}
}

func failure(err error, provider, model string) GenerationResult {
	return GenerationResult{
		Success:  false,
		Provider: provider,
		Model:    model,
		Err:      err,
		Error:    err.Error(),
	}
}
