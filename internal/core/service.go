package core

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/RepRech/internal/config"
)

// Defaults applied by NewService when an option is not positive.
const (
	DefaultLookupChunkSize = 500
	DefaultPageSize        = 20
	DefaultMaxPageSize     = 200
	DefaultUploadLabel     = "archivo.rpt"
	DefaultMergeTimeout    = 5 * time.Minute
)

// Options tunes a Service.
type Options struct {
	// LookupChunkSize bounds how many keys go into one existence query.
	LookupChunkSize int
	// DefaultLabel is the source label for uploads without a name.
	DefaultLabel string

	DefaultPageSize int
	MaxPageSize     int

	// MergeTimeout bounds the merge of a single file.
	MergeTimeout time.Duration

	MaxConcurrent int
	MaxWait       time.Duration

	// SummaryTTL caches unfiltered aggregates; zero disables the cache.
	SummaryTTL time.Duration

	// IgnoredPrefixes replaces IgnoredDetailPrefixes when non-nil.
	IgnoredPrefixes []string
}

// OptionsFromConfig maps application configuration onto service options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		LookupChunkSize: cfg.Upload.LookupChunkSize,
		DefaultLabel:    cfg.Ingest.DefaultLabel,
		DefaultPageSize: cfg.Query.DefaultPageSize,
		MaxPageSize:     cfg.Query.MaxPageSize,
		MergeTimeout:    cfg.Upload.Timeout,
		MaxConcurrent:   cfg.Upload.MaxConcurrent,
		MaxWait:         cfg.Upload.MaxWaitTime,
		SummaryTTL:      cfg.Query.SummaryTTL,
	}
}

// Service implements ingest, query and row mutations on top of a Store.
type Service struct {
	store   Store
	opts    Options
	ignored *PrefixMatcher
	limiter *UploadLimiter
	summary *summaryCache

	now         func() time.Time
	lastCreated atomic.Int64
}

// NewService creates a Service backed by store.
func NewService(store Store, opts Options) *Service {
	if opts.LookupChunkSize <= 0 {
		opts.LookupChunkSize = DefaultLookupChunkSize
	}
	if opts.DefaultLabel == "" {
		opts.DefaultLabel = DefaultUploadLabel
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = DefaultMaxPageSize
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = DefaultPageSize
	}
	opts.DefaultPageSize = min(opts.DefaultPageSize, opts.MaxPageSize)
	if opts.MergeTimeout <= 0 {
		opts.MergeTimeout = DefaultMergeTimeout
	}
	if opts.IgnoredPrefixes == nil {
		opts.IgnoredPrefixes = IgnoredDetailPrefixes
	}

	return &Service{
		store:   store,
		opts:    opts,
		ignored: NewPrefixMatcher(opts.IgnoredPrefixes),
		limiter: NewUploadLimiter(opts.MaxConcurrent, opts.MaxWait),
		summary: newSummaryCache(opts.SummaryTTL),
		now:     time.Now,
	}
}

// UploadLimiterStatus reports ingest slot usage.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until no ingest is running or ctx ends.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Ready reports whether the backing store answers. Stores without a
// Ping method are always ready.
func (s *Service) Ready(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// createdBase reserves n consecutive created_at ordinals and returns the
// first. Ordinals never go backwards within a process even when the clock
// does or when a previous batch ran past the current millisecond.
func (s *Service) createdBase(n int) int64 {
	for {
		last := s.lastCreated.Load()
		base := max(s.now().UnixMilli(), last+1)
		if s.lastCreated.CompareAndSwap(last, base+int64(n)-1) {
			return base
		}
	}
}
