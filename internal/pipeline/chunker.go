package pipeline

import (
	"strings"

	"github.com/peptiq-labs/peptiq/internal/domain"
	"github.com/peptiq-labs/peptiq/internal/websearch"
)

// ChunkPages splits fetched pages into overlapping character windows. Pages
// past maxPages and windows past maxPerPage are dropped; pages with no
// extracted text are skipped before chunking. Windows cover the text left to
// right with stride size-overlap, so consecutive windows share exactly
// overlap characters.
func ChunkPages(pages []websearch.Page, size, overlap, maxPerPage, maxPages int) []domain.Chunk {
	if len(pages) > maxPages {
		pages = pages[:maxPages]
	}

	var chunks []domain.Chunk
	for _, page := range pages {
		text := strings.TrimSpace(page.Content)
		if text == "" {
			continue
		}
		chunks = append(chunks, chunkText(page, text, size, overlap, maxPerPage)...)
	}
	return chunks
}

func chunkText(page websearch.Page, text string, size, overlap, maxPerPage int) []domain.Chunk {
	stride := size - overlap
	if stride <= 0 {
		stride = size
	}

	// windows are measured in runes so multi-byte characters never split
	runes := []rune(text)

	var out []domain.Chunk
	for start := 0; start < len(runes) && len(out) < maxPerPage; start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, domain.Chunk{
			SourceURL: page.URL,
			Title:     page.Title,
			Text:      string(runes[start:end]),
			Offset:    start,
		})
		if end == len(runes) {
			break
		}
	}
	return out
}
