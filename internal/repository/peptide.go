package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/peptiq-labs/peptiq/internal/domain"
)

// PeptideRepository handles persistence and nearest-neighbor lookups for
// peptides.
type PeptideRepository struct {
	db dbtx
}

func NewPeptideRepository(pool *pgxpool.Pool) *PeptideRepository {
	return &PeptideRepository{db: pool}
}

func NewPeptideRepositoryWithTx(tx pgx.Tx) *PeptideRepository {
	return &PeptideRepository{db: tx}
}

func (r *PeptideRepository) Create(ctx context.Context, p *domain.Peptide) error {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM peptides WHERE lower(name) = lower($1))`,
		p.Name,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrPeptideAlreadyExists
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO peptides (id, name, overview, mechanism, research_fields, full_text, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Overview, p.Mechanism, p.ResearchFields, p.FullText,
		pgvector.NewVector(p.Embedding), p.CreatedAt,
	)
	return err
}

func (r *PeptideRepository) DeleteByName(ctx context.Context, name string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM peptides WHERE lower(name) = lower($1)`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPeptideNotFound
	}
	return nil
}

// FindByName is an exact, case-insensitive lookup.
func (r *PeptideRepository) FindByName(ctx context.Context, name string) (*domain.Peptide, error) {
	var (
		p         domain.Peptide
		embedding pgvector.Vector
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, name, overview, mechanism, research_fields, full_text, embedding, created_at
		 FROM peptides WHERE lower(name) = lower($1)`,
		name,
	).Scan(&p.ID, &p.Name, &p.Overview, &p.Mechanism, &p.ResearchFields, &p.FullText, &embedding, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPeptideNotFound
		}
		return nil, err
	}
	p.Embedding = embedding.Slice()
	return &p, nil
}

func (r *PeptideRepository) List(ctx context.Context) ([]*domain.Peptide, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, overview, mechanism, research_fields, full_text, created_at
		 FROM peptides ORDER BY name ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var peptides []*domain.Peptide
	for rows.Next() {
		var p domain.Peptide
		if err := rows.Scan(&p.ID, &p.Name, &p.Overview, &p.Mechanism, &p.ResearchFields, &p.FullText, &p.CreatedAt); err != nil {
			return nil, err
		}
		peptides = append(peptides, &p)
	}
	return peptides, rows.Err()
}

// FindBest returns the single closest record to the query embedding, or nil
// when the store is empty. Ties break deterministically by insertion time,
// then name.
func (r *PeptideRepository) FindBest(ctx context.Context, embedding []float32) (*domain.SimilarityResult, error) {
	var result domain.SimilarityResult
	err := r.db.QueryRow(ctx,
		`SELECT name, 1 - (embedding <=> $1) AS score, overview, full_text
		 FROM peptides
		 WHERE embedding IS NOT NULL
		 ORDER BY score DESC, created_at ASC, name ASC
		 LIMIT 1`,
		pgvector.NewVector(embedding),
	).Scan(&result.Name, &result.Score, &result.Overview, &result.FullText)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// FindSimilarTo returns the nearest neighbors of the named peptide, excluding
// the peptide itself, ordered most similar first.
func (r *PeptideRepository) FindSimilarTo(ctx context.Context, name string, limit int) ([]domain.SimilarityResult, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.db.Query(ctx,
		`WITH ref AS (
			SELECT embedding FROM peptides WHERE lower(name) = lower($1) AND embedding IS NOT NULL
		)
		SELECT p.name, 1 - (p.embedding <=> ref.embedding) AS score, p.overview, p.full_text
		FROM peptides p, ref
		WHERE lower(p.name) <> lower($1) AND p.embedding IS NOT NULL
		ORDER BY score DESC, p.created_at ASC, p.name ASC
		LIMIT $2`,
		name, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.SimilarityResult, 0, limit)
	for rows.Next() {
		var result domain.SimilarityResult
		if err := rows.Scan(&result.Name, &result.Score, &result.Overview, &result.FullText); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
