package sweep

import (
	"context"
	"time"

	"callqa-backend/internal/shared/telemetry"
)

// Pending is the claim-and-process entry point the sweep drives.
type Pending interface {
	ClaimAndProcessPending(ctx context.Context, maxCount int) (int, error)
}

// Sweeper periodically claims pending calls as a safety net for uploads that
// were never explicitly triggered.
type Sweeper struct {
	pending  Pending
	interval time.Duration
	batch    int
}

// New constructs a sweeper.
func New(pending Pending, interval time.Duration, batch int) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if batch <= 0 {
		batch = 10
	}
	return &Sweeper{pending: pending, interval: interval, batch: batch}
}

// Run loops until ctx is canceled, invoking the claim scheduler at the
// configured interval. Blocks; run in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	telemetry.Info("sweep.started", map[string]any{"interval": s.interval.String(), "batch": s.batch})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			telemetry.Info("sweep.stopped", nil)
			return
		case <-ticker.C:
			claimed, err := s.pending.ClaimAndProcessPending(ctx, s.batch)
			if err != nil {
				telemetry.Error("sweep.claim_failed", map[string]any{"error": err.Error()})
				continue
			}
			if claimed > 0 {
				telemetry.Info("sweep.claimed", map[string]any{"count": claimed})
			}
		}
	}
}
