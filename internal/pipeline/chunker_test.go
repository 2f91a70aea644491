package pipeline

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peptiq-labs/peptiq/internal/websearch"
)

func TestChunkPages_Coverage(t *testing.T) {
	const (
		size    = 1000
		overlap = 200
		length  = 2500
	)
	text := strings.Repeat("a", length)
	chunks := ChunkPages([]websearch.Page{{URL: "https://a.com", Content: text}}, size, overlap, 10, 5)

	require.NotEmpty(t, chunks)
	assert.Equal(t, 0, chunks[0].Offset)

	// windows cover [0, L) left to right with no gap exceeding the overlap
	coveredTo := 0
	for _, c := range chunks {
		assert.LessOrEqual(t, c.Offset, coveredTo)
		end := c.Offset + len(c.Text)
		assert.Greater(t, end, coveredTo)
		coveredTo = end
		assert.LessOrEqual(t, len(c.Text), size)
	}
	assert.Equal(t, length, coveredTo)

	// consecutive windows share exactly the overlap
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, size-overlap, chunks[i].Offset-chunks[i-1].Offset)
	}
}

func TestChunkPages_MaxPerPage(t *testing.T) {
	text := strings.Repeat("b", 100_000)
	chunks := ChunkPages([]websearch.Page{{URL: "https://a.com", Content: text}}, 1000, 200, 5, 5)
	assert.Len(t, chunks, 5)
}

func TestChunkPages_ShortTextSingleWindow(t *testing.T) {
	chunks := ChunkPages([]websearch.Page{{URL: "https://a.com", Title: "T", Content: "short text"}}, 1000, 200, 5, 5)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Text)
	assert.Equal(t, "T", chunks[0].Title)
	assert.Equal(t, "https://a.com", chunks[0].SourceURL)
}

func TestChunkPages_SkipsEmptyPagesAndCapsPages(t *testing.T) {
	pages := []websearch.Page{
		{URL: "https://a.com", Content: "  \n "},
		{URL: "https://b.com", Content: "usable"},
		{URL: "https://c.com", Content: "also usable"},
		{URL: "https://d.com", Content: "past the page cap"},
	}

	chunks := ChunkPages(pages, 1000, 200, 5, 3)
	require.Len(t, chunks, 2)
	assert.Equal(t, "https://b.com", chunks[0].SourceURL)
	assert.Equal(t, "https://c.com", chunks[1].SourceURL)
}

func TestChunkPages_NoPages(t *testing.T) {
	assert.Empty(t, ChunkPages(nil, 1000, 200, 5, 5))
}

func TestChunkPages_MultiByteWindowsStayOnRuneBoundaries(t *testing.T) {
	// 500 runes, 1000 bytes: byte-offset windows would cut characters in half
	text := strings.Repeat("αβγδε", 100)
	chunks := ChunkPages([]websearch.Page{{URL: "https://a.com", Content: text}}, 200, 50, 5, 5)

	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c.Text))
	}
	assert.Equal(t, 200, utf8.RuneCountInString(chunks[0].Text))

	// consecutive windows share exactly the overlap, measured in runes
	first := []rune(chunks[0].Text)
	second := []rune(chunks[1].Text)
	assert.Equal(t, string(first[150:]), string(second[:50]))
}
