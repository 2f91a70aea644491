package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peptiq-labs/peptiq/internal/domain"
)

// AllowedDomainRepository handles persistence of the web search allow-list.
type AllowedDomainRepository struct {
	db dbtx
}

func NewAllowedDomainRepository(pool *pgxpool.Pool) *AllowedDomainRepository {
	return &AllowedDomainRepository{db: pool}
}

func (r *AllowedDomainRepository) Create(ctx context.Context, d *domain.AllowedDomain) error {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM allowed_domains WHERE lower(host) = lower($1))`,
		d.Host,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrAllowedDomainAlreadyExists
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO allowed_domains (id, host, created_at) VALUES ($1, $2, $3)`,
		d.ID, d.Host, d.CreatedAt,
	)
	return err
}

func (r *AllowedDomainRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM allowed_domains WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAllowedDomainNotFound
	}
	return nil
}

func (r *AllowedDomainRepository) List(ctx context.Context) ([]*domain.AllowedDomain, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, host, created_at FROM allowed_domains ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var domains []*domain.AllowedDomain
	for rows.Next() {
		var d domain.AllowedDomain
		if err := rows.Scan(&d.ID, &d.Host, &d.CreatedAt); err != nil {
			return nil, err
		}
		domains = append(domains, &d)
	}
	return domains, rows.Err()
}

// ListAllowedDomains returns just the host strings. This is the per-run
// allow-list snapshot the web tier filters against.
func (r *AllowedDomainRepository) ListAllowedDomains(ctx context.Context) ([]string, error) {
	domains, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	hosts := make([]string, 0, len(domains))
	for _, d := range domains {
		hosts = append(hosts, d.Host)
	}
	return hosts, nil
}
