package vector

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tripwise-ai/tripwise/internal/embed"
	"github.com/tripwise-ai/tripwise/internal/model"
	"github.com/tripwise-ai/tripwise/internal/repo"
)

// PostgresStore backs the index with pgvector. Similarity comes back from
// the database as 1 minus cosine distance, the same space the memory store
// computes locally.
type PostgresStore struct {
	embedder embed.Embedder
	chunks   *repo.ChunkRepo
}

func NewPostgresStore(embedder embed.Embedder, chunks *repo.ChunkRepo) *PostgresStore {
	return &PostgresStore{embedder: embedder, chunks: chunks}
}

func (s *PostgresStore) AddDocuments(ctx context.Context, chunks []model.Chunk, meta model.DocumentMetadata) error {
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
	return s.chunks.ReplaceDocument(ctx, meta, chunks, embeddings)
}

func (s *PostgresStore) Search(ctx context.Context, query string, topK int) ([]model.RetrievalResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	queryVec, err := s.embedder.Embed(ctx, query, embed.TaskQuery)
	if err != nil {
		logutil.GetLogger(ctx).Warn("query embedding failed, returning no results", zap.Error(err))
		return nil, nil
	}
	results, err := s.chunks.SearchTopK(ctx, queryVec, topK)
	if err != nil {
		logutil.GetLogger(ctx).Warn("vector search failed, returning no results", zap.Error(err))
		return nil, nil
	}
	return results, nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, documentHash string) (bool, error) {
	return s.chunks.DeleteByDocument(ctx, documentHash)
}
