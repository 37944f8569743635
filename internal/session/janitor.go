package session

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner removes expired badge faces and reports how many were removed
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Janitor purges expired rows periodically. Expired rows are never served
// either way; the janitor only keeps the table small.
type Janitor struct {
	cleaner  Cleaner
	logger   *slog.Logger
	interval time.Duration
}

// NewJanitor creates a new cleanup worker
func NewJanitor(cleaner Cleaner, logger *slog.Logger, interval time.Duration) *Janitor {
	return &Janitor{
		cleaner:  cleaner,
		logger:   logger,
		interval: interval,
	}
}

// Run starts the worker loop
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("session janitor started", "interval", j.interval)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("session janitor stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	removed, err := j.cleaner.CleanupExpired(ctx)
	if err != nil {
		j.logger.Warn("failed to purge expired badge faces", "error", err)
		return
	}
	if removed > 0 {
		j.logger.Debug("expired badge faces purged", "removed", removed)
	}
}
