package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T) *Processor {
	chunker, err := NewChunker(nil, 100, 20)
	require.NoError(t, err)
	return NewProcessor(chunker)
}

func TestProcessTextFile(t *testing.T) {
	p := newTestProcessor(t)
	doc, err := p.Process(context.Background(), "notes.txt", []byte("hello travel world"))
	require.NoError(t, err)
	require.Len(t, doc.Hash, 64)
	require.Equal(t, "notes.txt", doc.Metadata.FileName)
	require.Equal(t, "txt", doc.Metadata.FileType)
	require.Equal(t, doc.Hash, doc.Metadata.DocumentHash)
	require.NotEmpty(t, doc.Chunks)
	require.Equal(t, doc.Hash, doc.Chunks[0].DocumentHash)
}

func TestProcessSameContentSameHash(t *testing.T) {
	p := newTestProcessor(t)
	first, err := p.Process(context.Background(), "a.txt", []byte("identical content"))
	require.NoError(t, err)
	second, err := p.Process(context.Background(), "b.txt", []byte("identical content"))
	require.NoError(t, err)
	require.Equal(t, first.Hash, second.Hash)
}

func TestProcessMarkdownStripsSyntax(t *testing.T) {
	p := newTestProcessor(t)
	md := "# Kyoto Guide\n\nVisit the **Fushimi Inari** shrine.\n\n```sh\ntrain to inari station\n```\n"
	doc, err := p.Process(context.Background(), "guide.md", []byte(md))
	require.NoError(t, err)
	require.Contains(t, doc.Text, "Kyoto Guide")
	require.Contains(t, doc.Text, "Fushimi Inari")
	require.Contains(t, doc.Text, "train to inari station")
	require.NotContains(t, doc.Text, "# ")
	require.NotContains(t, doc.Text, "**")
}

func TestProcessHTMLDropsScripts(t *testing.T) {
	p := newTestProcessor(t)
	html := `<html><head><style>.x{color:red}</style></head><body><h1>Lisbon</h1><script>alert(1)</script><p>Tram 28 route</p></body></html>`
	doc, err := p.Process(context.Background(), "city.html", []byte(html))
	require.NoError(t, err)
	require.Contains(t, doc.Text, "Lisbon")
	require.Contains(t, doc.Text, "Tram 28 route")
	require.NotContains(t, doc.Text, "alert(1)")
	require.NotContains(t, doc.Text, "color:red")
}

func TestProcessUnsupportedType(t *testing.T) {
	p := newTestProcessor(t)
	_, err := p.Process(context.Background(), "slides.pptx", []byte("data"))
	require.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestProcessEmptyContent(t *testing.T) {
	p := newTestProcessor(t)
	_, err := p.Process(context.Background(), "empty.txt", []byte("   \n  "))
	require.Error(t, err)
}
