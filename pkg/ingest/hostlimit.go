package ingest

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// HostLimiter caps concurrent requests per host. One limiter is shared by
// every fetch of a batch so the limit holds across workers.
type HostLimiter struct {
	sems  map[string]*semaphore.Weighted
	mu    sync.Mutex
	limit int64
	log   *logrus.Entry
}

// NewHostLimiter creates a limiter allowing maxPerHost concurrent requests per host.
func NewHostLimiter(maxPerHost int, log *logrus.Entry) *HostLimiter {
	limit := int64(maxPerHost)
	if limit <= 0 {
		limit = 2
	}
	return &HostLimiter{
		sems:  make(map[string]*semaphore.Weighted),
		limit: limit,
		log:   log,
	}
}

// Acquire blocks until a permit for host is available or ctx is done.
func (h *HostLimiter) Acquire(ctx context.Context, host string) error {
	h.mu.Lock()
	sem, ok := h.sems[host]
	if !ok {
		sem = semaphore.NewWeighted(h.limit)
		h.sems[host] = sem
		h.log.WithFields(logrus.Fields{"host": host, "limit": h.limit}).Debug("Created host semaphore")
	}
	h.mu.Unlock()

	return sem.Acquire(ctx, 1)
}

// Release returns a permit for host. Releasing an unknown host is a no-op.
func (h *HostLimiter) Release(host string) {
	h.mu.Lock()
	sem, ok := h.sems[host]
	h.mu.Unlock()
	if ok {
		sem.Release(1)
	}
}

// Hosts returns the number of hosts seen so far
func (h *HostLimiter) Hosts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sems)
}
