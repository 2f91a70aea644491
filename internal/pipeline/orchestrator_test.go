package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/peptiq-labs/peptiq/internal/cache"
	"github.com/peptiq-labs/peptiq/internal/domain"
	"github.com/peptiq-labs/peptiq/internal/websearch"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateAnswer(ctx context.Context, query domain.Query, contextText string, restrictions domain.RestrictionSet) (string, error) {
	args := m.Called(ctx, query, contextText, restrictions)
	return args.String(0), args.Error(1)
}

type MockPeptideStore struct {
	mock.Mock
}

func (m *MockPeptideStore) FindBest(ctx context.Context, embedding []float32) (*domain.SimilarityResult, error) {
	args := m.Called(ctx, embedding)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SimilarityResult), args.Error(1)
}

func (m *MockPeptideStore) FindByName(ctx context.Context, name string) (*domain.Peptide, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Peptide), args.Error(1)
}

func (m *MockPeptideStore) FindSimilarTo(ctx context.Context, name string, limit int) ([]domain.SimilarityResult, error) {
	args := m.Called(ctx, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SimilarityResult), args.Error(1)
}

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, query string) ([]websearch.Page, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]websearch.Page), args.Error(1)
}

type staticRestrictions []string

func (s staticRestrictions) ListRestrictions(ctx context.Context) ([]string, error) {
	return s, nil
}

type staticAllowlist []string

func (s staticAllowlist) ListAllowedDomains(ctx context.Context) ([]string, error) {
	return s, nil
}

type fixture struct {
	tier1     *cache.MemoryStore
	tier2     *cache.MemoryStore
	embedder  *MockEmbedder
	generator *MockGenerator
	peptides  *MockPeptideStore
	searcher  *MockSearcher
	orch      *Orchestrator
}

func testSettings() Settings {
	return Settings{
		HighThreshold:    0.8,
		MediumThreshold:  0.6,
		LowThreshold:     0.4,
		Tier1TTL:         time.Hour,
		Tier2TTL:         24 * time.Hour,
		ChunkSize:        1000,
		ChunkOverlap:     200,
		MaxChunksPerPage: 5,
		MaxPages:         5,
	}
}

func newFixture(allowed []string) *fixture {
	f := &fixture{
		tier1:     cache.NewMemoryStore(),
		tier2:     cache.NewMemoryStore(),
		embedder:  new(MockEmbedder),
		generator: new(MockGenerator),
		peptides:  new(MockPeptideStore),
		searcher:  new(MockSearcher),
	}
	f.orch = NewOrchestrator(
		testSettings,
		f.tier1, f.tier2,
		f.embedder, f.generator, f.peptides,
		staticRestrictions(nil), staticAllowlist(allowed),
		f.searcher, nil, nil,
	)
	return f
}

func generalQuery(t *testing.T, text string) domain.Query {
	t.Helper()
	q, err := domain.NewQuery(text, domain.QueryModeGeneral, "")
	require.NoError(t, err)
	return q
}

func TestRun_VectorHit(t *testing.T) {
	f := newFixture([]string{"*"})
	ctx := context.Background()
	query := generalQuery(t, "muscle recovery peptides")

	queryVec := []float32{1, 0}
	f.embedder.On("GenerateEmbedding", mock.Anything, "muscle recovery peptides").Return(queryVec, nil)
	f.peptides.On("FindBest", mock.Anything, queryVec).Return(&domain.SimilarityResult{
		Name:     "BPC-157",
		Score:    0.85,
		FullText: "Peptide: BPC-157\nOverview: healing",
	}, nil)
	f.generator.On("GenerateAnswer", mock.Anything, query, "Peptide: BPC-157\nOverview: healing", mock.Anything).
		Return("BPC-157 supports muscle recovery.", nil)

	result, err := f.orch.Run(ctx, query)
	require.NoError(t, err)

	assert.Equal(t, domain.TierVector, result.Tier)
	assert.Equal(t, "BPC-157", result.MatchedPeptide)
	require.NotNil(t, result.SimilarityScore)
	assert.Equal(t, 0.85, *result.SimilarityScore)
	assert.Empty(t, result.Sources)
	assert.False(t, result.ServedFromCache)
	assert.False(t, result.Uncertain)
	assert.False(t, result.WebSearchRecommended)

	// the payload was written back to both tiers
	for _, tier := range []*cache.MemoryStore{f.tier1, f.tier2} {
		bundle, ok, err := tier.Get(ctx, query.NormalizedKey())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "BPC-157 supports muscle recovery.", bundle.AnswerText)
	}
}

func TestRun_Tier1HitSkipsEverything(t *testing.T) {
	f := newFixture([]string{"*"})
	ctx := context.Background()
	query := generalQuery(t, "muscle recovery peptides")

	require.NoError(t, f.tier1.Set(ctx, query.NormalizedKey(), &domain.AnswerBundle{
		AnswerText: "cached answer",
		Tier:       domain.TierVector,
	}, time.Hour))

	result, err := f.orch.Run(ctx, query)
	require.NoError(t, err)

	assert.Equal(t, domain.TierMemory, result.Tier)
	assert.True(t, result.ServedFromCache)
	assert.Equal(t, "cached answer", result.AnswerText)

	// no network collaborator was touched
	f.embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	f.peptides.AssertNotCalled(t, "FindBest", mock.Anything, mock.Anything)
	f.searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	f.generator.AssertNotCalled(t, "GenerateAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_Idempotence(t *testing.T) {
	f := newFixture([]string{"*"})
	ctx := context.Background()
	query := generalQuery(t, "muscle recovery peptides")

	queryVec := []float32{1, 0}
	f.embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(queryVec, nil).Once()
	f.peptides.On("FindBest", mock.Anything, queryVec).Return(&domain.SimilarityResult{
		Name: "BPC-157", Score: 0.9, FullText: "context",
	}, nil).Once()
	f.generator.On("GenerateAnswer", mock.Anything, query, "context", mock.Anything).
		Return("stable answer", nil).Once()

	first, err := f.orch.Run(ctx, query)
	require.NoError(t, err)
	assert.False(t, first.ServedFromCache)

	second, err := f.orch.Run(ctx, query)
	require.NoError(t, err)
	assert.True(t, second.ServedFromCache)
	assert.Equal(t, first.AnswerText, second.AnswerText)
	f.generator.AssertExpectations(t)
}

func TestRun_MediumScoreIsUncertain(t *testing.T) {
	f := newFixture([]string{"*"})
	query := generalQuery(t, "obscure peptide question")

	f.embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	f.peptides.On("FindBest", mock.Anything, mock.Anything).Return(&domain.SimilarityResult{
		Name: "TB-500", Score: 0.65, FullText: "context",
	}, nil)
	f.generator.On("GenerateAnswer", mock.Anything, query, "context", mock.Anything).Return("answer", nil)

	result, err := f.orch.Run(context.Background(), query)
	require.NoError(t, err)
	assert.True(t, result.Uncertain)
	assert.False(t, result.WebSearchRecommended)
	assert.Equal(t, domain.TierVector, result.Tier)
}

func TestRun_LowScoreRecommendsWebSearch(t *testing.T) {
	f := newFixture([]string{"*"})
	query := generalQuery(t, "barely related question")

	f.embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	f.peptides.On("FindBest", mock.Anything, mock.Anything).Return(&domain.SimilarityResult{
		Name: "TB-500", Score: 0.45, FullText: "context",
	}, nil)
	f.generator.On("GenerateAnswer", mock.Anything, query, "context", mock.Anything).Return("answer", nil)

	result, err := f.orch.Run(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, result.Uncertain)
	assert.True(t, result.WebSearchRecommended)
}

func TestRun_Tier2HitWritesBackToTier1(t *testing.T) {
	f := newFixture([]string{"*"})
	ctx := context.Background()
	query := generalQuery(t, "shared cache question")

	f.embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	f.peptides.On("FindBest", mock.Anything, mock.Anything).Return(nil, nil)

	require.NoError(t, f.tier2.Set(ctx, query.NormalizedKey(), &domain.AnswerBundle{
		AnswerText: "answer from the shared tier",
		Tier:       domain.TierWeb,
	}, time.Hour))

	result, err := f.orch.Run(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, domain.TierRedis, result.Tier)
	assert.True(t, result.ServedFromCache)

	_, ok, err := f.tier1.Get(ctx, query.NormalizedKey())
	require.NoError(t, err)
	assert.True(t, ok)
	f.searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestRun_WebFallback(t *testing.T) {
	f := newFixture([]string{"examine.com", "pubmed.gov"})
	ctx := context.Background()
	query := generalQuery(t, "muscle recovery peptides")

	queryVec := []float32{1, 0}
	f.embedder.On("GenerateEmbedding", mock.Anything, "muscle recovery peptides").Return(queryVec, nil)
	f.peptides.On("FindBest", mock.Anything, queryVec).Return(&domain.SimilarityResult{
		Name: "BPC-157", Score: 0.3, FullText: "too weak",
	}, nil)

	f.searcher.On("Search", mock.Anything, "muscle recovery peptides").Return([]websearch.Page{
		{URL: "https://examine.com/page1", Title: "P1", Content: "page one text", Score: 0.9},
		{URL: "https://pubmed.gov/page2", Title: "P2", Content: "page two text", Score: 0.8},
	}, nil)

	// cos([1,0], [0.75, 0.661...]) = 0.75, cos([1,0], [0.55, 0.835...]) = 0.55
	f.embedder.On("GenerateEmbedding", mock.Anything, "page one text").Return([]float32{0.75, 0.6614378}, nil)
	f.embedder.On("GenerateEmbedding", mock.Anything, "page two text").Return([]float32{0.55, 0.8351646}, nil)

	f.generator.On("GenerateAnswer", mock.Anything, query, mock.MatchedBy(func(ctxText string) bool {
		return strings.Contains(ctxText, "page one text") && strings.Contains(ctxText, "page two text")
	}), mock.Anything).Return("web grounded answer", nil)

	result, err := f.orch.Run(ctx, query)
	require.NoError(t, err)

	assert.Equal(t, domain.TierWeb, result.Tier)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "https://examine.com/page1", result.Sources[0].URL)
	assert.InDelta(t, 0.75, result.Sources[0].BestScore, 1e-4)
	assert.Equal(t, "https://pubmed.gov/page2", result.Sources[1].URL)
	assert.InDelta(t, 0.55, result.Sources[1].BestScore, 1e-4)
}

func TestRun_DisallowedHostNeverRanked(t *testing.T) {
	f := newFixture([]string{"examine.com"})
	query := generalQuery(t, "anything")

	f.embedder.On("GenerateEmbedding", mock.Anything, "anything").Return([]float32{1, 0}, nil)
	f.peptides.On("FindBest", mock.Anything, mock.Anything).Return(nil, nil)
	f.searcher.On("Search", mock.Anything, mock.Anything).Return([]websearch.Page{
		{URL: "https://evil.net/spam", Title: "Spam", Content: "spam text", Score: 0.99},
		{URL: "https://examine.com/good", Title: "Good", Content: "good text", Score: 0.5},
	}, nil)
	f.embedder.On("GenerateEmbedding", mock.Anything, "good text").Return([]float32{1, 0}, nil)
	f.generator.On("GenerateAnswer", mock.Anything, query, mock.Anything, mock.Anything).Return("answer", nil)

	result, err := f.orch.Run(context.Background(), query)
	require.NoError(t, err)

	require.Len(t, result.Sources, 1)
	assert.Equal(t, "https://examine.com/good", result.Sources[0].URL)
	// the disallowed page's text was never embedded
	f.embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, "spam text")
}

func TestRun_NoWebContext(t *testing.T) {
	f := newFixture([]string{"examine.com"})
	query := generalQuery(t, "question nobody can answer")

	f.embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	f.peptides.On("FindBest", mock.Anything, mock.Anything).Return(nil, nil)
	f.searcher.On("Search", mock.Anything, mock.Anything).Return([]websearch.Page{}, nil)

	result, err := f.orch.Run(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, NoWebContextText, result.AnswerText)
	assert.Empty(t, result.Sources)
	assert.Equal(t, domain.TierWeb, result.Tier)
	f.generator.AssertNotCalled(t, "GenerateAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// degraded answers are not cached
	_, ok, err := f.tier1.Get(context.Background(), query.NormalizedKey())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_EmptyAllowlistBlocksWebTier(t *testing.T) {
	f := newFixture(nil)
	query := generalQuery(t, "anything")

	f.embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	f.peptides.On("FindBest", mock.Anything, mock.Anything).Return(nil, nil)

	result, err := f.orch.Run(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, NoWebContextText, result.AnswerText)
	f.searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestRun_GeneratorFailureReturnsApology(t *testing.T) {
	f := newFixture([]string{"*"})
	query := generalQuery(t, "muscle recovery peptides")

	f.embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	f.peptides.On("FindBest", mock.Anything, mock.Anything).Return(&domain.SimilarityResult{
		Name: "BPC-157", Score: 0.9, FullText: "context",
	}, nil)
	f.generator.On("GenerateAnswer", mock.Anything, query, "context", mock.Anything).
		Return("", domain.ErrGeneratorUnavailable).Twice()

	result, err := f.orch.Run(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, ApologyText, result.AnswerText)
	assert.Equal(t, "BPC-157", result.MatchedPeptide)
	f.generator.AssertExpectations(t)

	// the apology is not cached
	_, ok, err := f.tier1.Get(context.Background(), query.NormalizedKey())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_TransientVectorFailureRetriesOnce(t *testing.T) {
	f := newFixture([]string{"*"})
	query := generalQuery(t, "flaky store question")

	f.embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	f.peptides.On("FindBest", mock.Anything, mock.Anything).
		Return(nil, domain.NewTransientUpstreamError("store timeout", nil)).Once()
	f.peptides.On("FindBest", mock.Anything, mock.Anything).Return(&domain.SimilarityResult{
		Name: "BPC-157", Score: 0.9, FullText: "context",
	}, nil).Once()
	f.generator.On("GenerateAnswer", mock.Anything, query, "context", mock.Anything).Return("answer", nil)

	result, err := f.orch.Run(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, domain.TierVector, result.Tier)
	f.peptides.AssertExpectations(t)
}

func TestRun_SpecificMode(t *testing.T) {
	f := newFixture([]string{"*"})
	query, err := domain.NewQuery("what is it studied for?", domain.QueryModeSpecific, "BPC-157")
	require.NoError(t, err)

	f.peptides.On("FindByName", mock.Anything, "BPC-157").Return(&domain.Peptide{
		Name:     "BPC-157",
		FullText: "Peptide: BPC-157\nOverview: healing research",
	}, nil)
	f.generator.On("GenerateAnswer", mock.Anything, query, "Peptide: BPC-157\nOverview: healing research", mock.Anything).
		Return("It is studied for tissue repair.", nil)

	result, err := f.orch.Run(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, domain.TierVector, result.Tier)
	assert.Equal(t, "BPC-157", result.MatchedPeptide)
	assert.Nil(t, result.SimilarityScore)
}

func TestRun_SpecificModeUnknownNameFallsThrough(t *testing.T) {
	f := newFixture([]string{"examine.com"})
	query, err := domain.NewQuery("what is it?", domain.QueryModeSpecific, "NOPE-1")
	require.NoError(t, err)

	f.peptides.On("FindByName", mock.Anything, "NOPE-1").Return(nil, domain.ErrPeptideNotFound)
	f.searcher.On("Search", mock.Anything, "NOPE-1 peptide what is it?").Return([]websearch.Page{
		{URL: "https://examine.com/nope", Title: "N", Content: "page text", Score: 0.8},
	}, nil)
	f.embedder.On("GenerateEmbedding", mock.Anything, "NOPE-1 what is it?").Return([]float32{1, 0}, nil)
	f.embedder.On("GenerateEmbedding", mock.Anything, "page text").Return([]float32{1, 0}, nil)
	f.generator.On("GenerateAnswer", mock.Anything, query, mock.Anything, mock.Anything).Return("answer", nil)

	result, err := f.orch.Run(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, domain.TierWeb, result.Tier)
}

func TestRun_RecommendationMode(t *testing.T) {
	f := newFixture([]string{"*"})
	query, err := domain.NewQuery("", domain.QueryModeRecommendation, "BPC-157")
	require.NoError(t, err)

	f.peptides.On("FindByName", mock.Anything, "BPC-157").Return(&domain.Peptide{
		Name:     "BPC-157",
		FullText: "Peptide: BPC-157",
	}, nil)
	f.peptides.On("FindSimilarTo", mock.Anything, "BPC-157", recommendationLimit).Return([]domain.SimilarityResult{
		{Name: "TB-500", Score: 0.82, FullText: "Peptide: TB-500"},
		{Name: "GHK-Cu", Score: 0.71, FullText: "Peptide: GHK-Cu"},
	}, nil)
	f.generator.On("GenerateAnswer", mock.Anything, query, mock.MatchedBy(func(ctxText string) bool {
		return strings.Contains(ctxText, "Peptide: TB-500") &&
			strings.Contains(ctxText, "Peptide: GHK-Cu")
	}), mock.Anything).Return("TB-500 and GHK-Cu are closest.", nil)

	result, err := f.orch.Run(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, domain.TierVector, result.Tier)
	assert.Equal(t, "BPC-157", result.MatchedPeptide)
	require.NotNil(t, result.SimilarityScore)
	assert.Equal(t, 0.82, *result.SimilarityScore)
}

func TestRun_RecommendationModeUnknownPeptide(t *testing.T) {
	f := newFixture([]string{"*"})
	query, err := domain.NewQuery("", domain.QueryModeRecommendation, "NOPE-1")
	require.NoError(t, err)

	f.peptides.On("FindByName", mock.Anything, "NOPE-1").Return(nil, domain.ErrPeptideNotFound)

	_, err = f.orch.Run(context.Background(), query)
	assert.ErrorIs(t, err, domain.ErrPeptideNotFound)
}

func TestRun_RecommendationModeStoreFailureFallsThroughToTier2(t *testing.T) {
	f := newFixture([]string{"*"})
	ctx := context.Background()
	query, err := domain.NewQuery("", domain.QueryModeRecommendation, "BPC-157")
	require.NoError(t, err)

	require.NoError(t, f.tier2.Set(ctx, query.NormalizedKey(), &domain.AnswerBundle{
		AnswerText:     "cached recommendation",
		MatchedPeptide: "BPC-157",
		Tier:           domain.TierVector,
	}, time.Hour))

	// transient, so the lookup is retried once before falling through
	f.peptides.On("FindByName", mock.Anything, "BPC-157").
		Return(nil, domain.NewTransientUpstreamError("store timeout", nil)).Twice()

	result, err := f.orch.Run(ctx, query)
	require.NoError(t, err)

	assert.Equal(t, "cached recommendation", result.AnswerText)
	assert.Equal(t, domain.TierRedis, result.Tier)
	assert.True(t, result.ServedFromCache)
	f.peptides.AssertExpectations(t)
	f.generator.AssertNotCalled(t, "GenerateAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_RecommendationModeSimilarFailureFallsThrough(t *testing.T) {
	f := newFixture(nil)
	query, err := domain.NewQuery("", domain.QueryModeRecommendation, "BPC-157")
	require.NoError(t, err)

	f.peptides.On("FindByName", mock.Anything, "BPC-157").Return(&domain.Peptide{
		Name:     "BPC-157",
		FullText: "Peptide: BPC-157",
	}, nil)
	f.peptides.On("FindSimilarTo", mock.Anything, "BPC-157", recommendationLimit).
		Return(nil, domain.NewTransientUpstreamError("store timeout", nil)).Twice()

	result, err := f.orch.Run(context.Background(), query)
	require.NoError(t, err)

	// no tier answered and the web tier is blocked, so the run degrades
	// without an apology
	assert.Equal(t, NoWebContextText, result.AnswerText)
}

func TestRun_CacheReplayKeepsDisclaimerFlags(t *testing.T) {
	f := newFixture([]string{"*"})
	ctx := context.Background()
	query := generalQuery(t, "obscure peptide question")

	f.embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	f.peptides.On("FindBest", mock.Anything, mock.Anything).Return(&domain.SimilarityResult{
		Name: "TB-500", Score: 0.65, FullText: "context",
	}, nil)
	f.generator.On("GenerateAnswer", mock.Anything, query, "context", mock.Anything).Return("answer", nil)

	first, err := f.orch.Run(ctx, query)
	require.NoError(t, err)
	require.True(t, first.Uncertain)

	second, err := f.orch.Run(ctx, query)
	require.NoError(t, err)
	assert.True(t, second.ServedFromCache)
	assert.True(t, second.Uncertain)
	assert.False(t, second.WebSearchRecommended)
}
