package ingest

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RateLimiter spaces requests to the same host by a minimum delay
type RateLimiter struct {
	lastRequest map[string]time.Time // host -> last request attempt
	mu          sync.Mutex
	delay       time.Duration
	log         *logrus.Entry
}

// NewRateLimiter creates a RateLimiter. A delay <= 0 disables waiting.
func NewRateLimiter(delay time.Duration, log *logrus.Entry) *RateLimiter {
	return &RateLimiter{
		lastRequest: make(map[string]time.Time),
		delay:       delay,
		log:         log,
	}
}

// Wait blocks until delay has passed since the last request to host, with
// +/- 10% jitter. It returns early with ctx's error when ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, host string) error {
	if rl.delay <= 0 {
		return nil
	}

	rl.mu.Lock()
	last, seen := rl.lastRequest[host]
	rl.mu.Unlock()
	if !seen {
		return nil
	}

	elapsed := time.Since(last)
	if elapsed >= rl.delay {
		return nil
	}
	sleep := rl.delay - elapsed
	if spread := int64(sleep) / 5; spread > 0 {
		sleep += time.Duration(rand.Int63n(spread)) - sleep/10
	}
	if sleep <= 0 {
		return nil
	}

	rl.log.WithFields(logrus.Fields{"host": host, "sleep": sleep, "elapsed": elapsed}).Debug("Rate limit applying sleep")
	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Touch records now as the last request attempt to host. Call it after the attempt.
func (rl *RateLimiter) Touch(host string) {
	rl.mu.Lock()
	rl.lastRequest[host] = time.Now()
	rl.mu.Unlock()
}
