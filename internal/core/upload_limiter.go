package core

// upload_limiter.go bounds how many ingest requests decode and parse at once.
//
// Merges already serialize on the store's advisory lock, but decoding and
// parsing a large report happens before that and holds the whole payload in
// memory. The limiter caps that work; when all slots are busy a request waits
// up to maxWait and then fails with ErrTooManyUploads.

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultMaxConcurrentUploads is used when the configured limit is not positive.
const DefaultMaxConcurrentUploads = 4

// DefaultMaxWaitTime is used when the configured wait is not positive.
const DefaultMaxWaitTime = 30 * time.Second

// UploadLimiter is a counting semaphore for ingest requests.
type UploadLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int32
}

// NewUploadLimiter allows at most maxConcurrent simultaneous ingests.
func NewUploadLimiter(maxConcurrent int, maxWait time.Duration) *UploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentUploads
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &UploadLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait.
// The caller must Release after a nil return.
func (l *UploadLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyUploads
	}
}

// Release returns a slot taken by Acquire.
func (l *UploadLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// ActiveCount returns the number of ingests holding a slot.
func (l *UploadLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// UploadLimiterStatus is a snapshot for health output.
type UploadLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *UploadLimiter) Status() UploadLimiterStatus {
	return UploadLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}

// WaitForDrain blocks until no ingest holds a slot or ctx ends.
// Used during shutdown.
func (l *UploadLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
