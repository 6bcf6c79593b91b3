package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotlight/internal/shared"
)

// ExpiredDeleter removes sessions past their expiry. Implemented by repositories.SessionRepository.
type ExpiredDeleter interface {
	DeleteExpired(now time.Time) (int, error)
}

// Sweeper periodically purges expired sessions from the store.
type Sweeper struct {
	store    ExpiredDeleter
	interval time.Duration
	logger   *log.Logger
	now      func() time.Time
}

// NewSweeper creates a sweeper running every interval. A non-positive interval defaults to ten minutes.
func NewSweeper(store ExpiredDeleter, interval time.Duration, logger *log.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Sweeper{store: store, interval: interval, logger: logger, now: time.Now}
}

// Interval returns the time between sweeps.
func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

// SweepOnce deletes every session that expired before now.
func (s *Sweeper) SweepOnce(progress chan<- ProgressUpdate) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("%w: session store not initialized", shared.ErrServiceUnavailable)
	}

	now := s.now()
	removed, err := s.store.DeleteExpired(now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	if removed > 0 {
		s.logger.Info("purged expired sessions", "count", removed)
	}
	sendProgress(progress, sweptUpdate(removed, now))
	return removed, nil
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
//
// Sweep failures are logged and do not stop the loop.
func (s *Sweeper) Run(ctx context.Context, progress chan<- ProgressUpdate) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(progress); err != nil {
			s.logger.Error("session sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}
