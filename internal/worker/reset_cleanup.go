package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

// ResetCleanupWorker periodically drops expired password reset tokens.
// Lookups already ignore them, this only keeps the table small.
type ResetCleanupWorker struct {
	repo            repository.PasswordResetRepository
	cleanupInterval time.Duration
	logger          *logger.Logger
	now             func() time.Time
}

func NewResetCleanupWorker(repo repository.PasswordResetRepository, cleanupInterval time.Duration, log *logger.Logger) *ResetCleanupWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &ResetCleanupWorker{
		repo:            repo,
		cleanupInterval: cleanupInterval,
		logger:          log.WithComponent("reset-cleanup"),
		now:             time.Now,
	}
}

func (w *ResetCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Cleanup(ctx); err != nil {
				// keep going, the next tick retries
				w.logger.Error(err, "Error cleaning up reset tokens")
			}
		}
	}
}

// Cleanup removes every token that expired before now.
func (w *ResetCleanupWorker) Cleanup(ctx context.Context) (int64, error) {
	cutoff := w.now()

	rows, err := w.repo.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup reset tokens: %w", err)
	}

	if rows > 0 {
		w.logger.Info("Cleaned up expired reset tokens", "count", rows)
	}
	return rows, nil
}
