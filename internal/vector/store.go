// Package vector stores embedded document chunks and answers nearest
// neighbor queries over them in cosine space.
package vector

import (
	"context"

	"github.com/tripwise-ai/tripwise/internal/model"
)

// Store is the vector index behind retrieval. AddDocuments is atomic per
// document: either every chunk of a document is indexed or none are.
// Search never fails the caller's request path; an unreachable backend
// degrades to zero results.
type Store interface {
	AddDocuments(ctx context.Context, chunks []model.Chunk, meta model.DocumentMetadata) error
	Search(ctx context.Context, query string, topK int) ([]model.RetrievalResult, error)
	DeleteDocument(ctx context.Context, documentHash string) (bool, error)
}
