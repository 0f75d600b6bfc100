package purge

import (
	"context"
	"log/slog"
	"time"
)

// Purger deletes expired shared results and reports how many went.
type Purger interface {
	PurgeExpiredSharedResults(ctx context.Context) (int64, error)
}

// Runner periodically deletes expired share rows. Reads already reject
// expired rows, so this only keeps the table small.
type Runner struct {
	store    Purger
	interval time.Duration
}

// NewRunner creates a purge runner that fires every interval.
func NewRunner(store Purger, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Runner{
		store:    store,
		interval: interval,
	}
}

// Run purges once on startup and then on every tick until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			slog.Info("purge runner stopped")
			return
		}
	}
}

// RunOnce purges once and returns the number of rows deleted.
func (r *Runner) RunOnce(ctx context.Context) int64 {
	count, err := r.store.PurgeExpiredSharedResults(ctx)
	if err != nil {
		slog.Error("failed to purge expired shares", "error", err)
		return 0
	}
	if count > 0 {
		slog.Info("purged expired shares", "count", count)
	}
	return count
}
