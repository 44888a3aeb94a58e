package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tripwise-ai/tripwise/internal/config"
	"github.com/tripwise-ai/tripwise/internal/document"
	"github.com/tripwise-ai/tripwise/internal/llm"
	"github.com/tripwise-ai/tripwise/internal/rag"
	"github.com/tripwise-ai/tripwise/internal/vector"
)

type fixedProvider struct {
	name     string
	response string
	calls    int
}

func (p *fixedProvider) Descriptor() llm.Descriptor {
	return llm.Descriptor{Name: p.name, Model: p.name + "-model"}
}

func (p *fixedProvider) Generate(ctx context.Context, prompt, systemMessage string, opts llm.Options) (string, error) {
	p.calls++
	return p.response, nil
}

func (p *fixedProvider) Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	p.calls++
	return p.response, nil
}

type constantEmbedder struct{}

func (constantEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return []float32{0.5, 0.5, 0.5}, nil
}

func (constantEmbedder) ModelName() string { return "constant" }

func newTestAssistant(t *testing.T, provider *fixedProvider) *Assistant {
	cfg := &config.Config{
		MaxTokens:           256,
		Temperature:         0.7,
		ChunkSize:           100,
		ChunkOverlap:        20,
		TopKResults:         5,
		SimilarityThreshold: 0.7,
	}
	registry := llm.NewRegistry(llm.PriorityOrder)
	registry.Register(provider)

	store := vector.NewMemoryStore(constantEmbedder{})
	chunker, err := document.NewChunker(nil, cfg.ChunkSize, cfg.ChunkOverlap)
	require.NoError(t, err)
	processor := document.NewProcessor(chunker)
	engine := rag.NewEngine(store, registry, cfg.TopKResults, cfg.SimilarityThreshold)

	return NewAssistant(cfg, registry, processor, store, engine, nil)
}

func TestIngestQueryDeleteRoundTrip(t *testing.T) {
	provider := &fixedProvider{name: "ollama", response: "the shrine opens at dawn"}
	assistant := newTestAssistant(t, provider)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "kyoto.txt")
	require.NoError(t, os.WriteFile(path, []byte("The Fushimi Inari shrine opens at dawn and closes at dusk."), 0o644))

	ingested, err := assistant.IngestDocument(ctx, path)
	require.NoError(t, err)
	require.True(t, ingested.Success)
	require.Len(t, ingested.DocumentHash, 64)
	require.Greater(t, ingested.ChunkCount, 0)

	resp, err := assistant.QueryDocuments(ctx, "when does the shrine open?", 0, "")
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, "the shrine opens at dawn", resp.Answer)
	require.NotEmpty(t, resp.Sources)

	var found bool
	for _, src := range resp.Sources {
		if src.DocumentHash == ingested.DocumentHash {
			found = true
		}
	}
	require.True(t, found)

	deleted, err := assistant.DeleteDocument(ctx, ingested.DocumentHash)
	require.NoError(t, err)
	require.True(t, deleted)

	resp, err = assistant.QueryDocuments(ctx, "when does the shrine open?", 0, "")
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.NotEmpty(t, resp.Error)
}

func TestDeleteUnknownDocument(t *testing.T) {
	assistant := newTestAssistant(t, &fixedProvider{name: "ollama", response: "x"})
	deleted, err := assistant.DeleteDocument(context.Background(), "0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestGenerateResponseAppliesDefaults(t *testing.T) {
	provider := &fixedProvider{name: "ollama", response: "hello"}
	assistant := newTestAssistant(t, provider)

	result := assistant.GenerateResponse(context.Background(), "hi", "", "", 0, 0)
	require.True(t, result.Success)
	require.Equal(t, "ollama", result.Provider)
	require.Equal(t, "hello", result.Response)
}

func TestGenerateResponseCachesRepeats(t *testing.T) {
	provider := &fixedProvider{name: "ollama", response: "cached answer"}
	assistant := newTestAssistant(t, provider)
	ctx := context.Background()

	first := assistant.GenerateResponse(ctx, "same prompt", "", "", 0, 0)
	second := assistant.GenerateResponse(ctx, "same prompt", "", "", 0, 0)
	require.Equal(t, first.Response, second.Response)
	require.Equal(t, 1, provider.calls)

	assistant.GenerateResponse(ctx, "different prompt", "", "", 0, 0)
	require.Equal(t, 2, provider.calls)
}

func TestIngestFromStoreWithoutStore(t *testing.T) {
	assistant := newTestAssistant(t, &fixedProvider{name: "ollama", response: "x"})
	_, err := assistant.IngestFromStore(context.Background(), "anything.txt")
	require.Error(t, err)
}

func TestListProviders(t *testing.T) {
	assistant := newTestAssistant(t, &fixedProvider{name: "ollama", response: "x"})
	require.Equal(t, []string{"ollama"}, assistant.ListProviders())
}
