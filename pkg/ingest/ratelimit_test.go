package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRateLimiter(delay time.Duration) *RateLimiter {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	return NewRateLimiter(delay, logrus.NewEntry(log))
}

func TestRateLimiter_NoDelayOnFirstRequest(t *testing.T) {
	rl := newTestRateLimiter(time.Second)

	start := time.Now()
	require.NoError(t, rl.Wait(context.Background(), "fresh-host.com"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRateLimiter_SleepsForDelay(t *testing.T) {
	rl := newTestRateLimiter(100 * time.Millisecond)
	rl.Touch("example.com")

	start := time.Now()
	require.NoError(t, rl.Wait(context.Background(), "example.com"))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 300*time.Millisecond)
}

func TestRateLimiter_HostsAreIndependent(t *testing.T) {
	rl := newTestRateLimiter(time.Second)
	rl.Touch("a.com")

	start := time.Now()
	require.NoError(t, rl.Wait(context.Background(), "b.com"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRateLimiter_RespectsContextCancellation(t *testing.T) {
	rl := newTestRateLimiter(5 * time.Second)
	rl.Touch("example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := rl.Wait(ctx, "example.com")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiter_DisabledWithZeroDelay(t *testing.T) {
	rl := newTestRateLimiter(0)
	rl.Touch("example.com")

	start := time.Now()
	require.NoError(t, rl.Wait(context.Background(), "example.com"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
