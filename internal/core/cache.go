package core

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const summaryKey = "all"

// summaryCache keeps the unfiltered aggregates for a short TTL.
// Every mutation purges it, so staleness is bounded by the TTL only for
// writes made by other processes.
type summaryCache struct {
	lru *expirable.LRU[string, Summary]

	// gen is bumped by invalidate. A load whose snapshot may predate an
	// invalidate is returned to its caller but never stored.
	mu  sync.Mutex
	gen uint64
}

// newSummaryCache returns nil when ttl is zero, which disables caching.
func newSummaryCache(ttl time.Duration) *summaryCache {
	if ttl <= 0 {
		return nil
	}
	return &summaryCache{lru: expirable.NewLRU[string, Summary](1, nil, ttl)}
}

// generation must be read before the snapshot that load will query is
// opened, and passed to get.
func (c *summaryCache) generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *summaryCache) get(ctx context.Context, gen uint64, load func(context.Context) (Summary, error)) (Summary, error) {
	if c == nil {
		return load(ctx)
	}
	if s, ok := c.lru.Get(summaryKey); ok {
		summaryCacheTotal.WithLabelValues("hit").Inc()
		return s, nil
	}
	summaryCacheTotal.WithLabelValues("miss").Inc()

	s, err := load(ctx)
	if err != nil {
		return Summary{}, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.lru.Add(summaryKey, s)
	}
	c.mu.Unlock()
	return s, nil
}

func (c *summaryCache) invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.gen++
	c.lru.Purge()
	c.mu.Unlock()
}
