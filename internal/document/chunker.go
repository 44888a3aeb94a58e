package document

import (
	"fmt"

	"github.com/tripwise-ai/tripwise/internal/model"
)

// Tokenizer maps text to token units and back. Splitting operates on the
// token stream so chunk boundaries never bisect a token.
type Tokenizer interface {
	Encode(text string) []string
	Decode(tokens []string) string
}

// charTokenizer approximates tokens as fixed-width rune groups, roughly four
// characters per token for English text.
type charTokenizer struct {
	runesPerToken int
}

func NewCharTokenizer() Tokenizer {
	return charTokenizer{runesPerToken: 4}
}

func (t charTokenizer) Encode(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	tokens := make([]string, 0, (len(runes)+t.runesPerToken-1)/t.runesPerToken)
	for start := 0; start < len(runes); start += t.runesPerToken {
		end := start + t.runesPerToken
		if end > len(runes) {
			end = len(runes)
		}
		tokens = append(tokens, string(runes[start:end]))
	}
	return tokens
}

func (t charTokenizer) Decode(tokens []string) string {
	var total int
	for _, tok := range tokens {
		total += len(tok)
	}
	buf := make([]byte, 0, total)
	for _, tok := range tokens {
		buf = append(buf, tok...)
	}
	return string(buf)
}

// Chunker splits a token stream into overlapping windows. The stride between
// window starts is chunkSize minus overlap.
type Chunker struct {
	tokenizer Tokenizer
	chunkSize int
	overlap   int
}

func NewChunker(tokenizer Tokenizer, chunkSize, overlap int) (*Chunker, error) {
	if tokenizer == nil {
		tokenizer = NewCharTokenizer()
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be within [0, %d), got %d", chunkSize, overlap)
	}
	return &Chunker{tokenizer: tokenizer, chunkSize: chunkSize, overlap: overlap}, nil
}

// Split is deterministic: the same text always yields the same chunks.
// Consecutive chunks share exactly the configured overlap, and the final
// window is cut short rather than padded past the end of the stream.
func (c *Chunker) Split(documentHash, text string) []model.Chunk {
	tokens := c.tokenizer.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	stride := c.chunkSize - c.overlap
	var chunks []model.Chunk
	for start := 0; start < len(tokens); start += stride {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		window := tokens[start:end]
		chunks = append(chunks, model.Chunk{
			DocumentHash: documentHash,
			Index:        len(chunks),
			Text:         c.tokenizer.Decode(window),
			StartToken:   start,
			EndToken:     end,
			TokenCount:   len(window),
		})
		// A trailing window fully contained in the previous one carries no
		// new tokens; stop once the stream end is reached.
		if end == len(tokens) {
			break
		}
	}
	return chunks
}
