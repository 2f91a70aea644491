package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peptiq-labs/peptiq/internal/domain"
)

// RestrictionRepository handles persistence of generation restrictions.
type RestrictionRepository struct {
	db dbtx
}

func NewRestrictionRepository(pool *pgxpool.Pool) *RestrictionRepository {
	return &RestrictionRepository{db: pool}
}

func (r *RestrictionRepository) Create(ctx context.Context, restriction *domain.Restriction) error {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM restrictions WHERE text = $1)`,
		restriction.Text,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrRestrictionAlreadyExists
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO restrictions (id, text, created_at) VALUES ($1, $2, $3)`,
		restriction.ID, restriction.Text, restriction.CreatedAt,
	)
	return err
}

func (r *RestrictionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM restrictions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRestrictionNotFound
	}
	return nil
}

func (r *RestrictionRepository) List(ctx context.Context) ([]*domain.Restriction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, text, created_at FROM restrictions ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var restrictions []*domain.Restriction
	for rows.Next() {
		var restriction domain.Restriction
		if err := rows.Scan(&restriction.ID, &restriction.Text, &restriction.CreatedAt); err != nil {
			return nil, err
		}
		restrictions = append(restrictions, &restriction)
	}
	return restrictions, rows.Err()
}

// ListRestrictions returns just the statements, oldest first. This is the
// snapshot the pipeline folds into every generation request.
func (r *RestrictionRepository) ListRestrictions(ctx context.Context) ([]string, error) {
	restrictions, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	statements := make([]string, 0, len(restrictions))
	for _, restriction := range restrictions {
		statements = append(statements, restriction.Text)
	}
	return statements, nil
}
