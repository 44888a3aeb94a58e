package document

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// wordTokenizer treats each whitespace-separated word as one token, which
// makes chunk boundaries easy to assert on.
type wordTokenizer struct{}

func (wordTokenizer) Encode(text string) []string { return strings.Fields(text) }
func (wordTokenizer) Decode(tokens []string) string {
	return strings.Join(tokens, " ")
}

func tokenText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "w" + strconv.Itoa(i)
	}
	return strings.Join(words, " ")
}

func TestChunkerWindowBoundaries(t *testing.T) {
	chunker, err := NewChunker(wordTokenizer{}, 1000, 200)
	require.NoError(t, err)

	chunks := chunker.Split("hash", tokenText(3000))
	require.Len(t, chunks, 4)

	wantBounds := [][2]int{{0, 1000}, {800, 1800}, {1600, 2600}, {2400, 3000}}
	for i, chunk := range chunks {
		require.Equal(t, i, chunk.Index)
		require.Equal(t, "hash", chunk.DocumentHash)
		require.Equal(t, wantBounds[i][0], chunk.StartToken)
		require.Equal(t, wantBounds[i][1], chunk.EndToken)
		require.Equal(t, wantBounds[i][1]-wantBounds[i][0], chunk.TokenCount)
	}

	// Consecutive chunks share exactly the configured overlap.
	for i := 0; i < len(chunks)-1; i++ {
		require.Equal(t, 200, chunks[i].EndToken-chunks[i+1].StartToken)
	}
}

func TestChunkerDeterministic(t *testing.T) {
	chunker, err := NewChunker(wordTokenizer{}, 100, 20)
	require.NoError(t, err)

	text := tokenText(450)
	first := chunker.Split("h", text)
	second := chunker.Split("h", text)
	require.Equal(t, first, second)
}

func TestChunkerShortText(t *testing.T) {
	chunker, err := NewChunker(wordTokenizer{}, 1000, 200)
	require.NoError(t, err)

	chunks := chunker.Split("h", tokenText(10))
	require.Len(t, chunks, 1)
	require.Equal(t, 0, chunks[0].StartToken)
	require.Equal(t, 10, chunks[0].EndToken)
}

func TestChunkerEmptyText(t *testing.T) {
	chunker, err := NewChunker(wordTokenizer{}, 1000, 200)
	require.NoError(t, err)
	require.Empty(t, chunker.Split("h", ""))
}

func TestChunkerExactWindowNoEmptyTail(t *testing.T) {
	chunker, err := NewChunker(wordTokenizer{}, 100, 20)
	require.NoError(t, err)

	chunks := chunker.Split("h", tokenText(100))
	require.Len(t, chunks, 1)
}

func TestChunkerCoversAllTokens(t *testing.T) {
	chunker, err := NewChunker(wordTokenizer{}, 100, 30)
	require.NoError(t, err)

	chunks := chunker.Split("h", tokenText(457))
	require.NotEmpty(t, chunks)
	require.Equal(t, 0, chunks[0].StartToken)
	require.Equal(t, 457, chunks[len(chunks)-1].EndToken)
	for i := 0; i < len(chunks)-1; i++ {
		require.LessOrEqual(t, chunks[i+1].StartToken, chunks[i].EndToken)
	}
}

func TestChunkerRejectsBadConfig(t *testing.T) {
	_, err := NewChunker(nil, 0, 0)
	require.Error(t, err)
	_, err = NewChunker(nil, 100, 100)
	require.Error(t, err)
	_, err = NewChunker(nil, 100, -1)
	require.Error(t, err)
}

func TestCharTokenizerRoundTrip(t *testing.T) {
	tok := NewCharTokenizer()
	text := "the quick brown fox jumps over the lazy dog"
	tokens := tok.Encode(text)
	require.NotEmpty(t, tokens)
	require.Equal(t, text, tok.Decode(tokens))
	// Roughly four characters per token.
	require.Equal(t, (len(text)+3)/4, len(tokens))
}
