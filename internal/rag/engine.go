// Package rag composes retrieval and generation: relevant chunks become a
// context block, and the answer is constrained to that block.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tripwise-ai/tripwise/internal/llm"
	"github.com/tripwise-ai/tripwise/internal/model"
	"github.com/tripwise-ai/tripwise/internal/vector"
)

// ErrNoRelevantContext is returned when the similarity filter leaves no
// candidate chunks. Generation is never attempted on zero context.
var ErrNoRelevantContext = errors.New("no relevant context found for the question")

const (
	excerptLength = 200

	answerSystemMessage = "You are a helpful assistant that answers questions based strictly on the provided context. " +
		"If the context does not contain enough information to answer the question, say so explicitly."

	answerPromptTemplate = "Answer the question using ONLY the context below.\n\n" +
		"Context:\n%s\n\nQuestion: %s\n\nAnswer:"
)

// Generator is the slice of the orchestrator the engine needs.
type Generator interface {
	GenerateResponse(ctx context.Context, prompt, providerName, systemMessage string, opts llm.Options) llm.GenerationResult
}

// Source describes one chunk that contributed to an answer.
type Source struct {
	Excerpt      string  `json:"excerpt"`
	FileName     string  `json:"file_name"`
	DocumentHash string  `json:"document_hash"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float64 `json:"score"`
}

// QueryResult is a grounded answer plus the sources actually used.
type QueryResult struct {
	Answer   string   `json:"answer"`
	Provider string   `json:"provider"`
	Model    string   `json:"model"`
	Sources  []Source `json:"sources"`
}

type Engine struct {
	store     vector.Store
	generator Generator
	topK      int
	threshold float64
}

func NewEngine(store vector.Store, generator Generator, topK int, threshold float64) *Engine {
	return &Engine{
		store:     store,
		generator: generator,
		topK:      topK,
		threshold: threshold,
	}
}

// Query retrieves candidates, filters them by similarity threshold, builds
// the context prompt and delegates generation. topK <= 0 uses the configured
// default; providerName empty uses the fallback chain.
func (e *Engine) Query(ctx context.Context, question string, topK int, providerName string) (*QueryResult, error) {
	logger := logutil.GetLogger(ctx)
	if topK <= 0 {
		topK = e.topK
	}
	candidates, err := e.store.Search(ctx, question, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	relevant := candidates[:0:0]
	for _, cand := range candidates {
		if cand.Score >= e.threshold {
			relevant = append(relevant, cand)
		}
	}
	logger.Info("retrieval completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("relevant", len(relevant)),
		zap.Float64("threshold", e.threshold),
	)
	if len(relevant) == 0 {
		return nil, ErrNoRelevantContext
	}

	contextBlock := buildContext(relevant)
	prompt := fmt.Sprintf(answerPromptTemplate, contextBlock, question)
	result := e.generator.GenerateResponse(ctx, prompt, providerName, answerSystemMessage, llm.Options{})
	if !result.Success {
		return nil, fmt.Errorf("generation failed: %w", result.Err)
	}

	sources := make([]Source, 0, len(relevant))
	for _, cand := range relevant {
		sources = append(sources, Source{
			Excerpt:      excerpt(cand.Chunk.Text),
			FileName:     cand.Metadata.FileName,
			DocumentHash: cand.Chunk.DocumentHash,
			ChunkIndex:   cand.Chunk.Index,
			Score:        cand.Score,
		})
	}
	return &QueryResult{
		Answer:   result.Response,
		Provider: result.Provider,
		Model:    result.Model,
		Sources:  sources,
	}, nil
}

func buildContext(results []model.RetrievalResult) string {
	parts := make([]string, 0, len(results))
	for i, res := range results {
		label := res.Metadata.FileName
		if label == "" {
			label = res.Chunk.DocumentHash
		}
		parts = append(parts, fmt.Sprintf("[Source %d - %s (Relevance: %.2f)]:\n%s\n",
			i+1, label, res.Score, res.Chunk.Text))
	}
	return strings.Join(parts, "\n---\n")
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLength {
		return text
	}
	return string(runes[:excerptLength]) + "..."
}
