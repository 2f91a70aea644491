package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peptiq-labs/peptiq/internal/domain"
)

// UsageLogRepository persists one row per answered query and aggregates them
// for the dashboard.
type UsageLogRepository struct {
	db dbtx
}

func NewUsageLogRepository(pool *pgxpool.Pool) *UsageLogRepository {
	return &UsageLogRepository{db: pool}
}

// Record inserts one usage event. The pipeline calls this fire-and-forget.
func (r *UsageLogRepository) Record(ctx context.Context, event domain.UsageEvent) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO usage_logs (id, mode, tier, similarity_score, latency_ms, success, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.Mode, event.Tier, event.SimilarityScore, event.LatencyMS, event.Success, event.CreatedAt,
	)
	return err
}

// DashboardStats is the admin dashboard aggregate over a time window.
type DashboardStats struct {
	TotalQueries   int64            `json:"total_queries"`
	SuccessCount   int64            `json:"success_count"`
	AvgLatencyMS   float64          `json:"avg_latency_ms"`
	QueriesByTier  map[string]int64 `json:"queries_by_tier"`
	QueriesByMode  map[string]int64 `json:"queries_by_mode"`
	CacheHitRate   float64          `json:"cache_hit_rate"`
	WindowStartUTC time.Time        `json:"window_start_utc"`
}

// Dashboard aggregates usage since the given time.
func (r *UsageLogRepository) Dashboard(ctx context.Context, since time.Time) (*DashboardStats, error) {
	stats := &DashboardStats{
		QueriesByTier:  make(map[string]int64),
		QueriesByMode:  make(map[string]int64),
		WindowStartUTC: since.UTC(),
	}

	err := r.db.QueryRow(ctx,
		`SELECT count(*),
		        count(*) FILTER (WHERE success),
		        coalesce(avg(latency_ms), 0)
		 FROM usage_logs WHERE created_at >= $1`,
		since,
	).Scan(&stats.TotalQueries, &stats.SuccessCount, &stats.AvgLatencyMS)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT tier, count(*) FROM usage_logs WHERE created_at >= $1 GROUP BY tier`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cached int64
	for rows.Next() {
		var (
			tier  string
			count int64
		)
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, err
		}
		stats.QueriesByTier[tier] = count
		if tier == string(domain.TierMemory) || tier == string(domain.TierRedis) {
			cached += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if stats.TotalQueries > 0 {
		stats.CacheHitRate = float64(cached) / float64(stats.TotalQueries)
	}

	modeRows, err := r.db.Query(ctx,
		`SELECT mode, count(*) FROM usage_logs WHERE created_at >= $1 GROUP BY mode`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer modeRows.Close()
	for modeRows.Next() {
		var (
			mode  string
			count int64
		)
		if err := modeRows.Scan(&mode, &count); err != nil {
			return nil, err
		}
		stats.QueriesByMode[mode] = count
	}
	return stats, modeRows.Err()
}

// DeleteOlderThan removes usage rows past the retention window and returns
// how many were deleted.
func (r *UsageLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM usage_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
