// Package maintenance runs the periodic housekeeping loop: pruning expired
// rate limit windows and evicting idle reputation records.
package maintenance

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/wardenlabs/warden/internal/ratelimit"
	"github.com/wardenlabs/warden/internal/reputation"
	"go.uber.org/zap"
)

const (
	// DefaultInterval is how often the sweep runs.
	DefaultInterval = time.Minute

	// DefaultIdleEviction is how long a reputation record may sit idle in
	// memory before the sweep evicts it.
	DefaultIdleEviction = 24 * time.Hour
)

// Worker handles the periodic maintenance sweeps.
type Worker struct {
	limiter  *ratelimit.Limiter
	ledger   *reputation.Ledger
	interval time.Duration
	idleFor  time.Duration
	logger   *zap.Logger
}

// New creates a maintenance worker. Zero durations select the defaults.
func New(limiter *ratelimit.Limiter, ledger *reputation.Ledger, interval, idleFor time.Duration, logger *zap.Logger) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}

	if idleFor <= 0 {
		idleFor = DefaultIdleEviction
	}

	return &Worker{
		limiter:  limiter,
		ledger:   ledger,
		interval: interval,
		idleFor:  idleFor,
		logger:   logger.Named("maintenance"),
	}
}

// Start begins the maintenance loop and blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Maintenance worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Maintenance worker stopped")
			return
		case now := <-ticker.C:
			w.Sweep(now.UTC())
		}
	}
}

// Sweep runs one maintenance pass. The two sweeps touch independent state,
// so they run concurrently.
func (w *Worker) Sweep(now time.Time) {
	var prunedWindows, evictedRecords int

	p := pool.New()
	p.Go(func() {
		prunedWindows = w.limiter.Prune(now)
	})
	p.Go(func() {
		evictedRecords = w.ledger.Sweep(now, w.idleFor)
	})
	p.Wait()

	if prunedWindows > 0 || evictedRecords > 0 {
		w.logger.Debug("Maintenance sweep finished",
			zap.Int("prunedWindows", prunedWindows),
			zap.Int("evictedRecords", evictedRecords))
	}
}
