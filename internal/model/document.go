package model

import (
	"fmt"
	"time"
)

// DocumentMetadata describes the source a document was ingested from.
type DocumentMetadata struct {
	FileName     string    `json:"file_name"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	DocumentHash string    `json:"document_hash"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// Document is an ingested piece of content, identified by the sha256 of its
// extracted text. Processing byte-identical content yields the same hash.
type Document struct {
	Hash     string
	Text     string
	Metadata DocumentMetadata
	Chunks   []Chunk
}

// Chunk is one overlapping window over a document's token stream. Identity
// is (DocumentHash, Index); indexes are 0-based and contiguous.
type Chunk struct {
	DocumentHash string
	Index        int
	Text         string
	StartToken   int
	EndToken     int
	TokenCount   int
}

// ChunkID renders the globally unique chunk identity used by vector stores.
func (c Chunk) ChunkID() string {
	return fmt.Sprintf("%s_%d", c.DocumentHash, c.Index)
}
