// Package embed provides the embedding-model collaborator used by the
// vector index: one float vector per text, selected by a vendor tag.
package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tripwise-ai/tripwise/internal/config"
)

// Task types forwarded to embedding backends that distinguish them.
const (
	TaskDocument = "RETRIEVAL_DOCUMENT"
	TaskQuery    = "RETRIEVAL_QUERY"
)

var ErrUnavailable = errors.New("embedder unavailable")

type Embedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	ModelName() string
}

type Factory func(cfg config.EmbedderConfig) (Embedder, error)

var factories = map[string]Factory{}

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	factories[key] = factory
}

func NewEmbedder(cfg config.EmbedderConfig) (Embedder, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if key == "" {
		return nil, fmt.Errorf("embedding provider is required")
	}
	factory := factories[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
	return factory(cfg)
}
