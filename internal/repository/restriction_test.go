//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peptiq-labs/peptiq/internal/domain"
	"github.com/peptiq-labs/peptiq/internal/testutil"
)

func TestRestrictionRepository(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRestrictionRepository(pool)

	newRestriction := func(text string, at time.Time) *domain.Restriction {
		return &domain.Restriction{ID: uuid.NewString(), Text: text, CreatedAt: at}
	}

	t.Run("Create and ListRestrictions preserves insertion order", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		base := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, repo.Create(ctx, newRestriction("Never give dosing advice.", base)))
		require.NoError(t, repo.Create(ctx, newRestriction("Do not discuss human use.", base.Add(time.Second))))

		statements, err := repo.ListRestrictions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Never give dosing advice.",
			"Do not discuss human use.",
		}, statements)
	})

	t.Run("Create duplicate text rejected", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		now := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, repo.Create(ctx, newRestriction("No dosing advice.", now)))
		err := repo.Create(ctx, newRestriction("No dosing advice.", now))
		assert.ErrorIs(t, err, domain.ErrRestrictionAlreadyExists)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		r := newRestriction("Temporary rule.", time.Now().UTC().Truncate(time.Microsecond))
		require.NoError(t, repo.Create(ctx, r))
		require.NoError(t, repo.Delete(ctx, r.ID))
		assert.ErrorIs(t, repo.Delete(ctx, r.ID), domain.ErrRestrictionNotFound)
	})
}

func TestAllowedDomainRepository(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewAllowedDomainRepository(pool)

	newDomain := func(host string) *domain.AllowedDomain {
		return &domain.AllowedDomain{
			ID:        uuid.NewString(),
			Host:      host,
			CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		}
	}

	t.Run("Create and ListAllowedDomains", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		require.NoError(t, repo.Create(ctx, newDomain("examine.com")))
		require.NoError(t, repo.Create(ctx, newDomain("pubmed.ncbi.nlm.nih.gov")))

		hosts, err := repo.ListAllowedDomains(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"examine.com", "pubmed.ncbi.nlm.nih.gov"}, hosts)
	})

	t.Run("Create duplicate host rejected case-insensitively", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		require.NoError(t, repo.Create(ctx, newDomain("Examine.com")))
		err := repo.Create(ctx, newDomain("examine.com"))
		assert.ErrorIs(t, err, domain.ErrAllowedDomainAlreadyExists)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		d := newDomain("examine.com")
		require.NoError(t, repo.Create(ctx, d))
		require.NoError(t, repo.Delete(ctx, d.ID))
		assert.ErrorIs(t, repo.Delete(ctx, d.ID), domain.ErrAllowedDomainNotFound)
	})
}
