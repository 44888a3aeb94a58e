package vector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tripwise-ai/tripwise/internal/model"
)

// fakeEmbedder maps known texts to fixed vectors so similarity ordering is
// fully controlled by the test.
type fakeEmbedder struct {
	vectors map[string][]float32
	failAll bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if f.failAll {
		return nil, errors.New("embedder down")
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-model" }

func chunkOf(hash string, index int, text string) model.Chunk {
	return model.Chunk{DocumentHash: hash, Index: index, Text: text, TokenCount: len(strings.Fields(text))}
}

func metaOf(hash, name string) model.DocumentMetadata {
	return model.DocumentMetadata{FileName: name, FileType: "txt", DocumentHash: hash}
}

func TestMemoryStoreSearchOrdering(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"query":   {1, 0, 0},
		"close":   {1, 0.1, 0},
		"closer":  {1, 0.01, 0},
		"distant": {0, 1, 0},
	}}
	store := NewMemoryStore(emb)
	ctx := context.Background()

	require.NoError(t, store.AddDocuments(ctx, []model.Chunk{
		chunkOf("doc1", 0, "distant"),
		chunkOf("doc1", 1, "close"),
		chunkOf("doc1", 2, "closer"),
	}, metaOf("doc1", "a.txt")))

	results, err := store.Search(ctx, "query", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "closer", results[0].Chunk.Text)
	require.Equal(t, "close", results[1].Chunk.Text)
	require.Greater(t, results[0].Score, results[1].Score)
}

func TestMemoryStoreTieBreaksByInsertionOrder(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	store := NewMemoryStore(emb)
	ctx := context.Background()

	// Every chunk embeds to the same default vector, so all scores tie.
	require.NoError(t, store.AddDocuments(ctx, []model.Chunk{
		chunkOf("doc1", 0, "first"),
		chunkOf("doc1", 1, "second"),
		chunkOf("doc1", 2, "third"),
	}, metaOf("doc1", "a.txt")))

	results, err := store.Search(ctx, "anything", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "first", results[0].Chunk.Text)
	require.Equal(t, "second", results[1].Chunk.Text)
	require.Equal(t, "third", results[2].Chunk.Text)
}

func TestMemoryStoreReingestOverwrites(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	store := NewMemoryStore(emb)
	ctx := context.Background()

	require.NoError(t, store.AddDocuments(ctx, []model.Chunk{
		chunkOf("doc1", 0, "v1 chunk a"),
		chunkOf("doc1", 1, "v1 chunk b"),
		chunkOf("doc1", 2, "v1 chunk c"),
	}, metaOf("doc1", "a.txt")))
	require.Equal(t, 3, store.Len())

	require.NoError(t, store.AddDocuments(ctx, []model.Chunk{
		chunkOf("doc1", 0, "v2 chunk a"),
	}, metaOf("doc1", "a.txt")))
	require.Equal(t, 1, store.Len())

	results, err := store.Search(ctx, "anything", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "v2 chunk a", results[0].Chunk.Text)
}

func TestMemoryStoreAddAtomicOnEmbedFailure(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	store := NewMemoryStore(emb)
	ctx := context.Background()

	emb.failAll = true
	err := store.AddDocuments(ctx, []model.Chunk{chunkOf("doc1", 0, "text")}, metaOf("doc1", "a.txt"))
	require.Error(t, err)
	require.Equal(t, 0, store.Len())
}

func TestMemoryStoreSearchDegradesOnEmbedFailure(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	store := NewMemoryStore(emb)
	ctx := context.Background()

	require.NoError(t, store.AddDocuments(ctx, []model.Chunk{chunkOf("doc1", 0, "text")}, metaOf("doc1", "a.txt")))

	emb.failAll = true
	results, err := store.Search(ctx, "query", 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestMemoryStoreDeleteDocument(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	store := NewMemoryStore(emb)
	ctx := context.Background()

	require.NoError(t, store.AddDocuments(ctx, []model.Chunk{
		chunkOf("doc1", 0, "keep me not"),
	}, metaOf("doc1", "a.txt")))
	require.NoError(t, store.AddDocuments(ctx, []model.Chunk{
		chunkOf("doc2", 0, "keep me"),
	}, metaOf("doc2", "b.txt")))

	deleted, err := store.DeleteDocument(ctx, "doc1")
	require.NoError(t, err)
	require.True(t, deleted)

	results, err := store.Search(ctx, "anything", 10)
	require.NoError(t, err)
	for _, res := range results {
		require.NotEqual(t, "doc1", res.Chunk.DocumentHash)
	}

	deleted, err = store.DeleteDocument(ctx, "no-such-hash")
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	require.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	require.Zero(t, cosineSimilarity(nil, []float32{1}))
	require.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
