package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tripwise-ai/tripwise/internal/embed"
	"github.com/tripwise-ai/tripwise/internal/model"
)

type memoryEntry struct {
	chunk     model.Chunk
	meta      model.DocumentMetadata
	embedding []float32
	seq       int
}

// MemoryStore is the in-process index used when no Postgres backend is
// configured. Entries keep their insertion sequence so equal-score hits
// rank deterministically.
type MemoryStore struct {
	embedder embed.Embedder

	mu      sync.RWMutex
	entries map[string]memoryEntry
	nextSeq int
}

func NewMemoryStore(embedder embed.Embedder) *MemoryStore {
	return &MemoryStore{
		embedder: embedder,
		entries:  make(map[string]memoryEntry),
	}
}

// AddDocuments embeds every chunk before touching the index, so a failed
// embedding leaves the store unchanged. Chunks of a hash already present
// are replaced wholesale.
func (s *MemoryStore) AddDocuments(ctx context.Context, chunks []model.Chunk, meta model.DocumentMetadata) error {
	if len(chunks) == 0 {
		return nil
	}
	embeddings := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		vecVals, err := s.embedder.Embed(ctx, chunk.Text, embed.TaskDocument)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", chunk.ChunkID(), err)
		}
		embeddings[i] = vecVals
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		if entry.chunk.DocumentHash == meta.DocumentHash {
			delete(s.entries, id)
		}
	}
	for i, chunk := range chunks {
		s.entries[chunk.ChunkID()] = memoryEntry{
			chunk:     chunk,
			meta:      meta,
			embedding: embeddings[i],
			seq:       s.nextSeq,
		}
		s.nextSeq++
	}
	return nil
}

// Search embeds the query and ranks all entries by cosine similarity.
// Embedding failures degrade to an empty result set so retrieval problems
// never abort the caller's request.
func (s *MemoryStore) Search(ctx context.Context, query string, topK int) ([]model.RetrievalResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	queryVec, err := s.embedder.Embed(ctx, query, embed.TaskQuery)
	if err != nil {
		logutil.GetLogger(ctx).Warn("query embedding failed, returning no results", zap.Error(err))
		return nil, nil
	}

	s.mu.RLock()
	scored := make([]struct {
		result model.RetrievalResult
		seq    int
	}, 0, len(s.entries))
	for _, entry := range s.entries {
		scored = append(scored, struct {
			result model.RetrievalResult
			seq    int
		}{
			result: model.RetrievalResult{
				Chunk:    entry.chunk,
				Score:    cosineSimilarity(queryVec, entry.embedding),
				Metadata: entry.meta,
			},
			seq: entry.seq,
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].result.Score != scored[j].result.Score {
			return scored[i].result.Score > scored[j].result.Score
		}
		return scored[i].seq < scored[j].seq
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	results := make([]model.RetrievalResult, 0, len(scored))
	for _, item := range scored {
		results = append(results, item.result)
	}
	return results, nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, documentHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted bool
	for id, entry := range s.entries {
		if entry.chunk.DocumentHash == documentHash {
			delete(s.entries, id)
			deleted = true
		}
	}
	return deleted, nil
}

// Len reports how many chunks are indexed.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
