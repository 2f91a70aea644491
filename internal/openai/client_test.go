package openai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/peptiq-labs/peptiq/internal/domain"
)

// MockOpenAIAPI is a mock for the OpenAI API
type MockOpenAIAPI struct {
	mock.Mock
}

func (m *MockOpenAIAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockOpenAIAPI) CreateChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

func TestClient_GenerateEmbedding_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	text := "Peptide: BPC-157"
	expectedEmbedding := make([]float32, domain.EmbeddingDimensions)
	for i := range expectedEmbedding {
		expectedEmbedding[i] = float32(i) * 0.001
	}

	mockAPI.On("CreateEmbeddings", ctx, text).Return(expectedEmbedding, nil)

	embedding, err := client.GenerateEmbedding(ctx, text)

	assert.NoError(t, err)
	assert.Len(t, embedding, domain.EmbeddingDimensions)
	assert.Equal(t, expectedEmbedding, embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient("")

	ctx := context.Background()
	embedding, err := client.GenerateEmbedding(ctx, "")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_GenerateEmbedding_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	text := "Test text"
	apiErr := errors.New("API rate limit exceeded")

	mockAPI.On("CreateEmbeddings", ctx, text).Return(nil, apiErr)

	embedding, err := client.GenerateEmbedding(ctx, text)

	assert.Error(t, err)
	assert.Nil(t, embedding)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeTransientUpstream, domainErr.Code)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_WrongDimensions(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: domain.EmbeddingDimensions}

	ctx := context.Background()
	text := "Test text"
	wrongEmbedding := make([]float32, 512)

	mockAPI.On("CreateEmbeddings", ctx, text).Return(wrongEmbedding, nil)

	embedding, err := client.GenerateEmbedding(ctx, text)

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Equal(t, ErrWrongDimensions, err)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateAnswer_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	query, err := domain.NewQuery("what does it do?", domain.QueryModeSpecific, "BPC-157")
	require.NoError(t, err)

	mockAPI.On("CreateChatCompletion", ctx,
		mock.MatchedBy(func(system string) bool {
			return strings.Contains(system, "IMPORTANT RESTRICTIONS TO FOLLOW:") &&
				strings.Contains(system, "- Never give dosing advice.")
		}),
		mock.MatchedBy(func(user string) bool {
			return strings.Contains(user, "Context:") &&
				strings.Contains(user, "About the peptide BPC-157:")
		}),
	).Return("**BPC-157** promotes tissue repair.", nil)

	restrictions := domain.NewRestrictionSet([]string{"Never give dosing advice."})
	answer, err := client.GenerateAnswer(ctx, query, "Peptide: BPC-157\nOverview: ...", restrictions)

	require.NoError(t, err)
	assert.Equal(t, "BPC-157 promotes tissue repair.", answer)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateAnswer_NoRestrictionBlockWhenEmpty(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	query, err := domain.NewQuery("what is a peptide?", domain.QueryModeGeneral, "")
	require.NoError(t, err)

	mockAPI.On("CreateChatCompletion", ctx,
		mock.MatchedBy(func(system string) bool {
			return !strings.Contains(system, "IMPORTANT RESTRICTIONS")
		}),
		mock.Anything,
	).Return("A peptide is a short chain of amino acids.", nil)

	answer, err := client.GenerateAnswer(ctx, query, "some context", domain.NewRestrictionSet(nil))

	require.NoError(t, err)
	assert.Equal(t, "A peptide is a short chain of amino acids.", answer)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateAnswer_UpstreamError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	query, err := domain.NewQuery("anything", domain.QueryModeGeneral, "")
	require.NoError(t, err)

	mockAPI.On("CreateChatCompletion", ctx, mock.Anything, mock.Anything).
		Return("", errors.New("503 service unavailable"))

	_, err = client.GenerateAnswer(ctx, query, "some context", domain.NewRestrictionSet(nil))

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeTransientUpstream, domainErr.Code)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateAnswer_EmptyContext(t *testing.T) {
	client := NewClient("test-key")

	query, err := domain.NewQuery("anything", domain.QueryModeGeneral, "")
	require.NoError(t, err)

	_, err = client.GenerateAnswer(context.Background(), query, "  ", domain.NewRestrictionSet(nil))
	assert.Equal(t, ErrEmptyText, err)
}

func TestCleanAnswer(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "BPC-157 promotes healing.", "BPC-157 promotes healing."},
		{"strips headings", "## Summary\nIt heals.", "Summary\nIt heals."},
		{"strips bold and italics", "It is **very** _promising_.", "It is very promising."},
		{"strips code fences", "Use `TB-500` carefully.", "Use TB-500 carefully."},
		{"normalizes bullets", "  * first\n  + second", "- first\n- second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanAnswer(tt.in))
		})
	}
}

func TestCleanAnswer_ClampsAtWordBoundary(t *testing.T) {
	long := strings.Repeat("peptide research continues ", 60)
	out := CleanAnswer(long)

	assert.LessOrEqual(t, len(out), MaxAnswerLength+3)
	assert.True(t, strings.HasSuffix(out, "..."))
	// never cuts mid-word
	trimmed := strings.TrimSuffix(out, "...")
	assert.True(t, strings.HasSuffix(trimmed, "peptide") ||
		strings.HasSuffix(trimmed, "research") ||
		strings.HasSuffix(trimmed, "continues"))
}

func TestCleanAnswer_ClampsOnRuneBoundaries(t *testing.T) {
	// 1200 runes of two-byte characters; a byte-offset clamp would split one
	long := strings.Repeat("αβγδ ", 240)
	out := CleanAnswer(long)

	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, utf8.RuneCountInString(out), MaxAnswerLength+3)
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestCleanAnswer_ShortMultiByteUntouched(t *testing.T) {
	in := strings.Repeat("αβγδε", 199) // 995 runes, over MaxAnswerLength in bytes
	assert.Equal(t, in, CleanAnswer(in))
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.NotNil(t, client)
	assert.NotNil(t, client.api)
}
