package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/peptiq-labs/peptiq/internal/domain"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosine_Bounds(t *testing.T) {
	vectors := [][]float32{
		{0.3, -0.7, 2.1},
		{5, 5, 5},
		{-1.5, 0.01, 100},
		{1e-6, 1e6, -3},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			got := Cosine(a, b)
			assert.GreaterOrEqual(t, got, -1.0-1e-9)
			assert.LessOrEqual(t, got, 1.0+1e-9)
		}
	}
}

func TestRound6(t *testing.T) {
	assert.Equal(t, 0.123457, Round6(0.1234567))
	assert.Equal(t, 0.75, Round6(0.75))
	assert.Equal(t, 1.0, Round6(0.9999999))
}

func TestRankSources_Stability(t *testing.T) {
	chunks := []domain.Chunk{
		{SourceURL: "A", Text: "a1", Score: 0.9},
		{SourceURL: "A", Text: "a2", Score: 0.7},
		{SourceURL: "B", Text: "b1", Score: 0.5},
	}

	sources := RankSources(chunks, 0)
	require.Len(t, sources, 2)
	assert.Equal(t, "A", sources[0].URL)
	assert.Equal(t, 0.9, sources[0].BestScore)
	assert.Equal(t, "a1", sources[0].BestChunkText)
	assert.Equal(t, "B", sources[1].URL)
	assert.Equal(t, 0.5, sources[1].BestScore)
}

func TestRankSources_SortsDescending(t *testing.T) {
	chunks := []domain.Chunk{
		{SourceURL: "low", Text: "x", Score: 0.2},
		{SourceURL: "high", Text: "y", Score: 0.95},
		{SourceURL: "mid", Text: "z", Score: 0.6},
	}

	sources := RankSources(chunks, 0)
	require.Len(t, sources, 3)
	assert.Equal(t, []string{"high", "mid", "low"}, []string{sources[0].URL, sources[1].URL, sources[2].URL})
}

func TestRankSources_TieBreaksByURL(t *testing.T) {
	chunks := []domain.Chunk{
		{SourceURL: "https://b.example/page", Text: "b", Score: 0.7},
		{SourceURL: "https://a.example/page", Text: "a", Score: 0.7},
		{SourceURL: "https://c.example/page", Text: "c", Score: 0.9},
	}

	sources := RankSources(chunks, 0)
	require.Len(t, sources, 3)
	assert.Equal(t, "https://c.example/page", sources[0].URL)
	assert.Equal(t, "https://a.example/page", sources[1].URL)
	assert.Equal(t, "https://b.example/page", sources[2].URL)
}

func TestRankSources_ConfidenceFloor(t *testing.T) {
	chunks := []domain.Chunk{
		{SourceURL: "A", Text: "a", Score: 0.8},
		{SourceURL: "B", Text: "b", Score: 0.3},
	}

	sources := RankSources(chunks, 0.5)
	require.Len(t, sources, 1)
	assert.Equal(t, "A", sources[0].URL)
}

func TestRankSources_ContentLengthSumsAllChunks(t *testing.T) {
	chunks := []domain.Chunk{
		{SourceURL: "A", Text: "12345", Score: 0.9},
		{SourceURL: "A", Text: "678", Score: 0.4},
	}

	sources := RankSources(chunks, 0)
	require.Len(t, sources, 1)
	assert.Equal(t, 8, sources[0].ContentLength)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func TestScoreChunks(t *testing.T) {
	embedder := new(MockEmbedder)
	query := []float32{1, 0}

	embedder.On("GenerateEmbedding", mock.Anything, "aligned").Return([]float32{2, 0}, nil)
	embedder.On("GenerateEmbedding", mock.Anything, "diagonal").Return([]float32{1, 1}, nil)
	embedder.On("GenerateEmbedding", mock.Anything, "broken").Return(nil, errors.New("embed failed"))

	chunks := []domain.Chunk{
		{SourceURL: "A", Text: "aligned"},
		{SourceURL: "B", Text: "broken"},
		{SourceURL: "C", Text: "diagonal"},
	}

	scored := ScoreChunks(context.Background(), embedder, query, chunks)
	require.Len(t, scored, 2)
	assert.InDelta(t, 1.0, scored[0].Score, 1e-9)
	assert.InDelta(t, 1/math.Sqrt2, scored[1].Score, 1e-9)
	embedder.AssertExpectations(t)
}
