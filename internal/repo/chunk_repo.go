// Package repo contains the Postgres persistence layer for document chunks
// and the embedding cache.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/tripwise-ai/tripwise/internal/model"
)

type ChunkRepo struct {
	db *sqlx.DB
}

func NewChunkRepo(db *sqlx.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ReplaceDocument atomically swaps the stored chunks of one document: any
// previous rows for the hash are removed and the new set inserted in a
// single transaction. Re-ingesting the same content is therefore an
// overwrite, never a partial mix of old and new chunks.
func (r *ChunkRepo) ReplaceDocument(ctx context.Context, meta model.DocumentMetadata, chunks []model.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk repo: %d chunks but %d embeddings", len(chunks), len(embeddings))
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	delSQL, delArgs, err := builder.BuildDelete("document_chunks", map[string]interface{}{
		"document_hash": meta.DocumentHash,
	})
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(delSQL), delArgs...); err != nil {
		return err
	}

	const insert = `
		INSERT INTO document_chunks
			(document_hash, chunk_index, content, start_token, end_token, token_count,
			 file_name, file_type, file_size, processed_at, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	now := time.Now().Unix()
	for i, chunk := range chunks {
		if _, err := tx.ExecContext(ctx, insert,
			chunk.DocumentHash,
			chunk.Index,
			chunk.Text,
			chunk.StartToken,
			chunk.EndToken,
			chunk.TokenCount,
			meta.FileName,
			meta.FileType,
			meta.FileSize,
			meta.ProcessedAt,
			pgvector.NewVector(embeddings[i]),
			now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SearchTopK runs an approximate cosine search and maps pgvector's distance
// back to a similarity score. Ties on distance fall back to insertion order.
func (r *ChunkRepo) SearchTopK(ctx context.Context, queryEmbedding []float32, topK int) ([]model.RetrievalResult, error) {
	const query = `
		SELECT document_hash, chunk_index, content, start_token, end_token, token_count,
		       file_name, file_type, file_size, processed_at,
		       1 - (embedding <=> $1) AS score
		FROM document_chunks
		ORDER BY embedding <=> $1 ASC, ctime ASC, chunk_index ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(queryEmbedding), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.RetrievalResult
	for rows.Next() {
		var res model.RetrievalResult
		if err := rows.Scan(
			&res.Chunk.DocumentHash,
			&res.Chunk.Index,
			&res.Chunk.Text,
			&res.Chunk.StartToken,
			&res.Chunk.EndToken,
			&res.Chunk.TokenCount,
			&res.Metadata.FileName,
			&res.Metadata.FileType,
			&res.Metadata.FileSize,
			&res.Metadata.ProcessedAt,
			&res.Score,
		); err != nil {
			return nil, err
		}
		res.Metadata.DocumentHash = res.Chunk.DocumentHash
		results = append(results, res)
	}
	return results, rows.Err()
}

// DeleteByDocument removes every chunk of the document and reports whether
// any rows existed.
func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentHash string) (bool, error) {
	delSQL, delArgs, err := builder.BuildDelete("document_chunks", map[string]interface{}{
		"document_hash": documentHash,
	})
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(delSQL), delArgs...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
