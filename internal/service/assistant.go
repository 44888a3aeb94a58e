// Package service is the application facade over the orchestrator, the
// document pipeline and the vector index.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tripwise-ai/tripwise/internal/config"
	"github.com/tripwise-ai/tripwise/internal/document"
	"github.com/tripwise-ai/tripwise/internal/filestore"
	"github.com/tripwise-ai/tripwise/internal/llm"
	appErr "github.com/tripwise-ai/tripwise/internal/pkg/errors"
	"github.com/tripwise-ai/tripwise/internal/rag"
	"github.com/tripwise-ai/tripwise/internal/vector"
)

const (
	responseCacheSize = 2048
	responseCacheTTL  = 30 * time.Minute
)

// IngestResult reports what ingestion produced for one file.
type IngestResult struct {
	Success      bool   `json:"success"`
	DocumentHash string `json:"document_hash"`
	ChunkCount   int    `json:"chunk_count"`
}

// QueryResponse wraps an answer for the outer application layer.
type QueryResponse struct {
	Success bool          `json:"success"`
	Answer  string        `json:"answer,omitempty"`
	Sources []rag.Source  `json:"sources,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Assistant exposes the operations the surrounding application calls.
type Assistant struct {
	cfg       *config.Config
	registry  *llm.Registry
	processor *document.Processor
	store     vector.Store
	engine    *rag.Engine
	files     filestore.Store

	// Identical generation requests inside the TTL return the cached
	// response without touching a provider.
	responseCache *expirable.LRU[string, llm.GenerationResult]
}

func NewAssistant(cfg *config.Config, registry *llm.Registry, processor *document.Processor, store vector.Store, engine *rag.Engine, files filestore.Store) *Assistant {
	return &Assistant{
		cfg:           cfg,
		registry:      registry,
		processor:     processor,
		store:         store,
		engine:        engine,
		files:         files,
		responseCache: expirable.NewLRU[string, llm.GenerationResult](responseCacheSize, nil, responseCacheTTL),
	}
}

// ListProviders returns the registered provider names in priority order.
func (a *Assistant) ListProviders() []string {
	return a.registry.ListProviders()
}

// GenerateResponse runs a plain generation request. Zero-valued options
// fall back to the configured defaults; an empty providerName engages the
// fallback chain.
func (a *Assistant) GenerateResponse(ctx context.Context, prompt, providerName, systemMessage string, maxTokens int, temperature float64) llm.GenerationResult {
	opts := a.buildOptions(maxTokens, temperature)
	providerName = a.resolveProvider(providerName)

	cacheKey := responseCacheKey("generate", providerName, systemMessage, prompt, opts)
	if cached, ok := a.responseCache.Get(cacheKey); ok {
		logutil.GetLogger(ctx).Debug("response cache hit", zap.String("provider", providerName))
		return cached
	}
	result := a.registry.GenerateResponse(ctx, prompt, providerName, systemMessage, opts)
	if result.Success {
		a.responseCache.Add(cacheKey, result)
	}
	return result
}

// ChatCompletion runs a multi-turn request with the same defaults and
// fallback semantics as GenerateResponse. Chat responses are not cached;
// transcripts rarely repeat.
func (a *Assistant) ChatCompletion(ctx context.Context, messages []llm.Message, providerName string, maxTokens int, temperature float64) llm.GenerationResult {
	opts := a.buildOptions(maxTokens, temperature)
	return a.registry.ChatCompletion(ctx, messages, a.resolveProvider(providerName), opts)
}

// IngestDocument reads a file from the local filesystem and indexes it.
func (a *Assistant) IngestDocument(ctx context.Context, path string) (*IngestResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return a.ingest(ctx, filepath.Base(path), raw)
}

// IngestFromStore reads a file from the configured file store and indexes it.
func (a *Assistant) IngestFromStore(ctx context.Context, key string) (*IngestResult, error) {
	if a.files == nil {
		return nil, fmt.Errorf("%w: no file store configured", appErr.ErrUnavailable)
	}
	rc, err := a.files.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open %s from store: %w", key, err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s from store: %w", key, err)
	}
	return a.ingest(ctx, key, raw)
}

func (a *Assistant) ingest(ctx context.Context, fileName string, raw []byte) (*IngestResult, error) {
	doc, err := a.processor.Process(ctx, fileName, raw)
	if err != nil {
		return nil, err
	}
	if err := a.store.AddDocuments(ctx, doc.Chunks, doc.Metadata); err != nil {
		return nil, fmt.Errorf("index %s: %w", fileName, err)
	}
	return &IngestResult{
		Success:      true,
		DocumentHash: doc.Hash,
		ChunkCount:   len(doc.Chunks),
	}, nil
}

// QueryDocuments answers a question grounded in the indexed documents.
// An empty candidate set is a normal outcome, reported as Success=false
// with the reason, not as an error.
func (a *Assistant) QueryDocuments(ctx context.Context, question string, topK int, providerName string) (*QueryResponse, error) {
	result, err := a.engine.Query(ctx, question, topK, a.resolveProvider(providerName))
	if err != nil {
		if errors.Is(err, rag.ErrNoRelevantContext) {
			return &QueryResponse{Success: false, Error: err.Error()}, nil
		}
		return nil, err
	}
	return &QueryResponse{
		Success: true,
		Answer:  result.Answer,
		Sources: result.Sources,
	}, nil
}

// DeleteDocument removes every indexed chunk of the document. Returns false
// when the hash was not indexed.
func (a *Assistant) DeleteDocument(ctx context.Context, documentHash string) (bool, error) {
	return a.store.DeleteDocument(ctx, documentHash)
}

func (a *Assistant) buildOptions(maxTokens int, temperature float64) llm.Options {
	if maxTokens <= 0 {
		maxTokens = a.cfg.MaxTokens
	}
	if temperature <= 0 {
		temperature = a.cfg.Temperature
	}
	return llm.Options{MaxTokens: maxTokens, Temperature: temperature}
}

func (a *Assistant) resolveProvider(providerName string) string {
	providerName = strings.TrimSpace(providerName)
	if providerName != "" {
		return providerName
	}
	return strings.TrimSpace(a.cfg.DefaultProvider)
}

func responseCacheKey(kind, provider, system, prompt string, opts llm.Options) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s|%d|%f", kind, provider, system, prompt, opts.MaxTokens, opts.Temperature)))
	return hex.EncodeToString(sum[:])
}
