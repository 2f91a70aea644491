package pipeline

import (
	"context"
	"math"
	"sort"

	"github.com/peptiq-labs/peptiq/internal/domain"
)

// Cosine returns the cosine similarity of two vectors, in [-1, 1]. It is 0
// when either vector has zero norm or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Round6 rounds a score to 6 decimal digits. Used only when reporting scores
// to callers; internal comparisons keep full precision.
func Round6(score float64) float64 {
	return math.Round(score*1e6) / 1e6
}

// ScoreChunks embeds every chunk and scores it against the query embedding.
// A chunk whose embedding fails is dropped rather than failing the batch.
func ScoreChunks(ctx context.Context, embedder Embedder, queryEmbedding []float32, chunks []domain.Chunk) []domain.Chunk {
	scored := make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := embedder.GenerateEmbedding(ctx, chunk.Text)
		if err != nil {
			continue
		}
		chunk.Score = Cosine(queryEmbedding, embedding)
		scored = append(scored, chunk)
	}
	return scored
}

// RankSources groups scored chunks by source URL, keeps the best-scoring
// chunk per URL and returns the sources sorted by score descending. Sources
// scoring below floor are dropped; a floor of 0 keeps everything. Equal
// scores order by URL ascending so the ranking is deterministic.
func RankSources(chunks []domain.Chunk, floor float64) []domain.RankedSource {
	best := make(map[string]domain.Chunk)
	order := make([]string, 0)
	length := make(map[string]int)

	for _, chunk := range chunks {
		length[chunk.SourceURL] += len(chunk.Text)
		current, seen := best[chunk.SourceURL]
		if !seen {
			order = append(order, chunk.SourceURL)
			best[chunk.SourceURL] = chunk
			continue
		}
		if chunk.Score > current.Score {
			best[chunk.SourceURL] = chunk
		}
	}

	sources := make([]domain.RankedSource, 0, len(order))
	for _, url := range order {
		chunk := best[url]
		if floor > 0 && chunk.Score < floor {
			continue
		}
		sources = append(sources, domain.RankedSource{
			URL:           url,
			Title:         chunk.Title,
			BestScore:     chunk.Score,
			BestChunkText: chunk.Text,
			ContentLength: length[url],
		})
	}

	sort.Slice(sources, func(i, j int) bool {
		if sources[i].BestScore == sources[j].BestScore {
			return sources[i].URL < sources[j].URL
		}
		return sources[i].BestScore > sources[j].BestScore
	})
	return sources
}
