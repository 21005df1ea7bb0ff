package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wardenlabs/warden/internal/ratelimit"
)

func TestAllowWithinQuota(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.NewLimiter(3, time.Minute)
	now := time.Now()

	for i := range 3 {
		assert.True(t, limiter.Allow("alice", now.Add(time.Duration(i)*time.Second)), "submission %d should be allowed", i+1)
	}

	assert.False(t, limiter.Allow("alice", now.Add(4*time.Second)))
}

func TestIdentitiesIndependent(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.NewLimiter(1, time.Minute)
	now := time.Now()

	assert.True(t, limiter.Allow("alice", now))
	assert.False(t, limiter.Allow("alice", now))
	assert.True(t, limiter.Allow("bob", now))
}

func TestWindowSlides(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.NewLimiter(2, time.Minute)
	now := time.Now()

	assert.True(t, limiter.Allow("alice", now))
	assert.True(t, limiter.Allow("alice", now.Add(time.Second)))
	assert.False(t, limiter.Allow("alice", now.Add(2*time.Second)))

	// The first two entries age out after the trailing minute.
	assert.True(t, limiter.Allow("alice", now.Add(62*time.Second)))
}

func TestDeniedSubmissionStillCounted(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.NewLimiter(1, time.Minute)
	now := time.Now()

	assert.True(t, limiter.Allow("alice", now))

	// Hammering keeps refreshing the window, so the identity stays limited.
	for i := 1; i <= 5; i++ {
		assert.False(t, limiter.Allow("alice", now.Add(time.Duration(i)*time.Second)))
	}

	assert.Equal(t, 6, limiter.Count("alice", now.Add(5*time.Second)))
}

func TestCountUnknownIdentity(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.NewLimiter(5, time.Minute)

	assert.Equal(t, 0, limiter.Count("nobody", time.Now()))
}

func TestPrune(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.NewLimiter(5, time.Minute)
	now := time.Now()

	limiter.Allow("alice", now)
	limiter.Allow("bob", now.Add(30*time.Second))

	removed := limiter.Prune(now.Add(70 * time.Second))

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, limiter.Count("bob", now.Add(70*time.Second)))
}
