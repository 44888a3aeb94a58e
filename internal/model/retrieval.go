package model

// RetrievalResult is one vector-search hit: a stored chunk, its similarity
// score in a cosine-like [0,1] space, and the originating document metadata.
type RetrievalResult struct {
	Chunk    Chunk
	Score    float64
	Metadata DocumentMetadata
}
