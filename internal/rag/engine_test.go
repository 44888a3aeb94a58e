package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tripwise-ai/tripwise/internal/llm"
	"github.com/tripwise-ai/tripwise/internal/model"
)

type fakeStore struct {
	results []model.RetrievalResult
	err     error
}

func (f *fakeStore) AddDocuments(ctx context.Context, chunks []model.Chunk, meta model.DocumentMetadata) error {
	return nil
}

func (f *fakeStore) Search(ctx context.Context, query string, topK int) ([]model.RetrievalResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.results) {
		return f.results[:topK], nil
	}
	return f.results, nil
}

func (f *fakeStore) DeleteDocument(ctx context.Context, documentHash string) (bool, error) {
	return false, nil
}

type fakeGenerator struct {
	lastPrompt   string
	lastSystem   string
	lastProvider string
	result       llm.GenerationResult
}

func (f *fakeGenerator) GenerateResponse(ctx context.Context, prompt, providerName, systemMessage string, opts llm.Options) llm.GenerationResult {
	f.lastPrompt = prompt
	f.lastSystem = systemMessage
	f.lastProvider = providerName
	return f.result
}

func scoredResult(hash string, index int, text string, score float64) model.RetrievalResult {
	return model.RetrievalResult{
		Chunk:    model.Chunk{DocumentHash: hash, Index: index, Text: text},
		Score:    score,
		Metadata: model.DocumentMetadata{FileName: hash + ".txt", DocumentHash: hash},
	}
}

func TestQueryFiltersByThreshold(t *testing.T) {
	store := &fakeStore{results: []model.RetrievalResult{
		scoredResult("doc1", 0, "high relevance chunk", 0.9),
		scoredResult("doc2", 0, "medium relevance chunk", 0.75),
		scoredResult("doc3", 0, "low relevance chunk", 0.5),
	}}
	gen := &fakeGenerator{result: llm.GenerationResult{Success: true, Response: "grounded answer", Provider: "ollama", Model: "llama3"}}
	engine := NewEngine(store, gen, 5, 0.7)

	result, err := engine.Query(context.Background(), "what is relevant?", 0, "")
	require.NoError(t, err)
	require.Equal(t, "grounded answer", result.Answer)
	require.Len(t, result.Sources, 2)
	require.Equal(t, "doc1", result.Sources[0].DocumentHash)
	require.Equal(t, "doc2", result.Sources[1].DocumentHash)
	for _, src := range result.Sources {
		require.NotEqual(t, "doc3", src.DocumentHash)
	}

	// The below-threshold chunk never reaches the prompt either.
	require.Contains(t, gen.lastPrompt, "high relevance chunk")
	require.Contains(t, gen.lastPrompt, "medium relevance chunk")
	require.NotContains(t, gen.lastPrompt, "low relevance chunk")
	require.Contains(t, gen.lastPrompt, "what is relevant?")
}

func TestQueryNoRelevantContext(t *testing.T) {
	store := &fakeStore{results: []model.RetrievalResult{
		scoredResult("doc1", 0, "weak", 0.3),
	}}
	gen := &fakeGenerator{result: llm.GenerationResult{Success: true, Response: "should never run"}}
	engine := NewEngine(store, gen, 5, 0.7)

	_, err := engine.Query(context.Background(), "anything", 0, "")
	require.ErrorIs(t, err, ErrNoRelevantContext)
	require.Empty(t, gen.lastPrompt)
}

func TestQueryEmptySearchIsNoContext(t *testing.T) {
	engine := NewEngine(&fakeStore{}, &fakeGenerator{}, 5, 0.7)
	_, err := engine.Query(context.Background(), "anything", 0, "")
	require.ErrorIs(t, err, ErrNoRelevantContext)
}

func TestQueryContextFormat(t *testing.T) {
	store := &fakeStore{results: []model.RetrievalResult{
		scoredResult("doc1", 0, "chunk body", 0.9),
	}}
	gen := &fakeGenerator{result: llm.GenerationResult{Success: true, Response: "ok"}}
	engine := NewEngine(store, gen, 5, 0.7)

	_, err := engine.Query(context.Background(), "q", 0, "")
	require.NoError(t, err)
	require.Contains(t, gen.lastPrompt, "[Source 1 - doc1.txt (Relevance: 0.90)]:")
	require.Contains(t, gen.lastSystem, "strictly on the provided context")
}

func TestQueryForwardsProviderName(t *testing.T) {
	store := &fakeStore{results: []model.RetrievalResult{scoredResult("doc1", 0, "text", 0.9)}}
	gen := &fakeGenerator{result: llm.GenerationResult{Success: true, Response: "ok"}}
	engine := NewEngine(store, gen, 5, 0.7)

	_, err := engine.Query(context.Background(), "q", 3, "anthropic")
	require.NoError(t, err)
	require.Equal(t, "anthropic", gen.lastProvider)
}

func TestQueryGenerationFailurePropagates(t *testing.T) {
	genErr := errors.New("all providers exhausted")
	store := &fakeStore{results: []model.RetrievalResult{scoredResult("doc1", 0, "text", 0.9)}}
	gen := &fakeGenerator{result: llm.GenerationResult{Success: false, Err: genErr, Error: genErr.Error()}}
	engine := NewEngine(store, gen, 5, 0.7)

	_, err := engine.Query(context.Background(), "q", 0, "")
	require.ErrorIs(t, err, genErr)
}

func TestExcerptTruncation(t *testing.T) {
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'x'
	}
	got := excerpt(string(long))
	require.Len(t, []rune(got), excerptLength+3)
	require.Equal(t, "...", got[len(got)-3:])
	require.Equal(t, "short", excerpt("short"))
}
