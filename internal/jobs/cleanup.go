package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// UsageLogPruner deletes usage rows past the retention window.
type UsageLogPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupWorker prunes old usage log rows on each tick.
type CleanupWorker struct {
	pruner    UsageLogPruner
	retention time.Duration
	now       func() time.Time
}

func NewCleanupWorker(pruner UsageLogPruner, retention time.Duration) *CleanupWorker {
	return &CleanupWorker{
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
	}
}

// Run deletes usage rows older than the retention window.
func (w *CleanupWorker) Run(ctx context.Context) error {
	cutoff := w.now().UTC().Add(-w.retention)

	deleted, err := w.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune usage logs: %w", err)
	}

	if deleted > 0 {
		log.Printf("jobs: pruned %d usage log rows older than %s", deleted, cutoff.Format(time.RFC3339))
	}

	return nil
}
