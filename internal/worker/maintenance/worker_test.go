package maintenance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenlabs/warden/internal/ratelimit"
	"github.com/wardenlabs/warden/internal/reputation"
	"github.com/wardenlabs/warden/internal/worker/maintenance"
	"go.uber.org/zap"
)

func setupTest(t *testing.T) (*maintenance.Worker, *ratelimit.Limiter, *reputation.Ledger) {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	limiter := ratelimit.NewLimiter(5, time.Minute)
	ledger := reputation.NewLedger(nil, 0, logger)
	worker := maintenance.New(limiter, ledger, 10*time.Millisecond, 24*time.Hour, logger)

	return worker, limiter, ledger
}

func TestSweep(t *testing.T) {
	t.Parallel()
	worker, limiter, ledger := setupTest(t)

	now := time.Now().UTC()

	limiter.Allow("stale", now.Add(-2*time.Minute))
	limiter.Allow("fresh", now)
	ledger.RecordEvaluation(t.Context(), "idle", 90, nil, false, now.Add(-48*time.Hour))

	worker.Sweep(now)

	assert.Equal(t, 0, limiter.Count("stale", now))
	assert.Equal(t, 1, limiter.Count("fresh", now))
	assert.Zero(t, ledger.TrackedCount())
}

func TestStartStopsOnCancel(t *testing.T) {
	t.Parallel()
	worker, _, _ := setupTest(t)

	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
