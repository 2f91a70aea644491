package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/peptiq-labs/peptiq/internal/domain"
	"github.com/peptiq-labs/peptiq/internal/telemetry"
)

// PeptideRepositoryInterface defines the repository interface for peptide persistence
type PeptideRepositoryInterface interface {
	Create(ctx context.Context, p *domain.Peptide) error
	DeleteByName(ctx context.Context, name string) error
	FindByName(ctx context.Context, name string) (*domain.Peptide, error)
	List(ctx context.Context) ([]*domain.Peptide, error)
	FindSimilarTo(ctx context.Context, name string, limit int) ([]domain.SimilarityResult, error)
}

// EmbedderInterface defines the embedding provider used when ingesting peptides
type EmbedderInterface interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// PeptideService handles business logic for peptide records
type PeptideService struct {
	repo     PeptideRepositoryInterface
	embedder EmbedderInterface
	uuidGen  UUIDGenerator
	now      func() time.Time
}

// NewPeptideService creates a new PeptideService instance
func NewPeptideService(repo PeptideRepositoryInterface, embedder EmbedderInterface) *PeptideService {
	return &PeptideService{
		repo:     repo,
		embedder: embedder,
		uuidGen:  &DefaultUUIDGenerator{},
		now:      time.Now,
	}
}

// NewPeptideServiceWithUUIDGen creates a new PeptideService with custom UUID generator (for testing)
func NewPeptideServiceWithUUIDGen(repo PeptideRepositoryInterface, embedder EmbedderInterface, uuidGen UUIDGenerator) *PeptideService {
	return &PeptideService{
		repo:     repo,
		embedder: embedder,
		uuidGen:  uuidGen,
		now:      time.Now,
	}
}

// CreateInput represents the input for creating a peptide record
type CreateInput struct {
	Name           string
	Overview       string
	Mechanism      string
	ResearchFields []string
}

// Create validates the input, embeds the record's text and persists it
func (s *PeptideService) Create(ctx context.Context, input CreateInput) (*domain.Peptide, error) {
	ctx, span := telemetry.StartSpan(ctx, "PeptideService.Create", telemetry.SpanAttributes{
		Peptide:   input.Name,
		Operation: "create",
	})
	defer span.End()

	p := domain.NewPeptide(
		s.uuidGen.NewString(),
		input.Name,
		input.Overview,
		input.Mechanism,
		input.ResearchFields,
		s.now().UTC(),
	)

	if err := domain.ValidatePeptide(p); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid peptide", err)
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, p.FullText)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	p.Embedding = embedding

	if err := domain.ValidatePeptide(p); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid peptide embedding", err)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		span.SetError(err)
		return nil, err
	}

	return p, nil
}

// Get returns the peptide with the given name, matched case-insensitively
func (s *PeptideService) Get(ctx context.Context, name string) (*domain.Peptide, error) {
	if name == "" {
		return nil, domain.ErrMissingPeptideName
	}
	return s.repo.FindByName(ctx, name)
}

// Delete removes the peptide with the given name
func (s *PeptideService) Delete(ctx context.Context, name string) error {
	if name == "" {
		return domain.ErrMissingPeptideName
	}

	ctx, span := telemetry.StartSpan(ctx, "PeptideService.Delete", telemetry.SpanAttributes{
		Peptide:   name,
		Operation: "delete",
	})
	defer span.End()

	if err := s.repo.DeleteByName(ctx, name); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// List returns all peptide records ordered by name
func (s *PeptideService) List(ctx context.Context) ([]*domain.Peptide, error) {
	return s.repo.List(ctx)
}

// Similar returns the stored peptides closest to the named one, excluding the
// peptide itself. The reference peptide must exist.
func (s *PeptideService) Similar(ctx context.Context, name string, limit int) ([]domain.SimilarityResult, error) {
	if name == "" {
		return nil, domain.ErrMissingPeptideName
	}

	ctx, span := telemetry.StartSpan(ctx, "PeptideService.Similar", telemetry.SpanAttributes{
		Peptide:   name,
		Operation: "similar",
	})
	defer span.End()

	if _, err := s.repo.FindByName(ctx, name); err != nil {
		span.SetError(err)
		return nil, err
	}

	results, err := s.repo.FindSimilarTo(ctx, name, limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return results, nil
}
