package core

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
)

// memStore is an in-memory Store for service tests. Merge works on a copy
// of the rows and swaps it in only when fn succeeds.
type memStore struct {
	mu   sync.Mutex
	rows map[string]StoredRecord

	lookupBatches []int
	reads         int
	failInsert    error
	failSet       error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]StoredRecord)}
}

func (m *memStore) Merge(ctx context.Context, fn func(MergeTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := make(map[string]StoredRecord, len(m.rows))
	for k, r := range m.rows {
		r.Sources = slices.Clone(r.Sources)
		staged[k] = r
	}
	tx := &memTx{store: m, rows: staged}
	if err := fn(tx); err != nil {
		return err
	}
	m.rows = staged
	return nil
}

type memTx struct {
	store *memStore
	rows  map[string]StoredRecord
}

func (t *memTx) LookupSources(_ context.Context, keys []string) (map[string]SourceSet, error) {
	t.store.lookupBatches = append(t.store.lookupBatches, len(keys))
	out := make(map[string]SourceSet)
	for _, k := range keys {
		if r, ok := t.rows[k]; ok {
			out[k] = slices.Clone(r.Sources)
		}
	}
	return out, nil
}

func (t *memTx) SetSources(_ context.Context, key string, sources SourceSet) error {
	if t.store.failSet != nil {
		return t.store.failSet
	}
	r := t.rows[key]
	r.Sources = slices.Clone(sources)
	t.rows[key] = r
	return nil
}

func (t *memTx) Insert(_ context.Context, rows []StoredRecord) error {
	if t.store.failInsert != nil {
		return t.store.failInsert
	}
	for _, r := range rows {
		t.rows[r.Key] = r
	}
	return nil
}

func (m *memStore) matching(f RowFilter) []StoredRecord {
	var out []StoredRecord
	for _, r := range m.rows {
		if f.DateFrom != "" && (r.RepDate == "" || r.RepDate < f.DateFrom) {
			continue
		}
		if f.DateTo != "" && (r.RepDate == "" || r.RepDate > f.DateTo) {
			continue
		}
		if f.Detail != "" && !strings.Contains(r.DetailNormalized, f.Detail) {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b StoredRecord) int {
		if a.CreatedAt != b.CreatedAt {
			if a.CreatedAt < b.CreatedAt {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Key, b.Key)
	})
	return out
}

// Read hands fn the store itself; rows are guarded per call, not
// snapshotted.
func (m *memStore) Read(_ context.Context, fn func(RowReader) error) error {
	m.mu.Lock()
	m.reads++
	m.mu.Unlock()
	return fn(m)
}

func (m *memStore) IsEmpty(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows) == 0, nil
}

func (m *memStore) Count(_ context.Context, f RowFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.matching(f))), nil
}

func (m *memStore) Page(_ context.Context, f RowFilter, limit, offset int) ([]StoredRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.matching(f)
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (m *memStore) Summary(context.Context) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s Summary
	for _, r := range m.rows {
		s.CountAll++
		if r.Resolved {
			s.ResolvedCount++
		}
		if r.RepDate == "" {
			continue
		}
		if s.Bounds == nil {
			s.Bounds = &DateBounds{Min: r.RepDate, Max: r.RepDate}
			continue
		}
		s.Bounds.Min = min(s.Bounds.Min, r.RepDate)
		s.Bounds.Max = max(s.Bounds.Max, r.RepDate)
	}
	return s, nil
}

func (m *memStore) Toggle(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[key]
	if !ok {
		return false, ErrRowNotFound
	}
	r.Resolved = !r.Resolved
	m.rows[key] = r
	return r.Resolved, nil
}

func (m *memStore) DeleteResolved(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	maps.DeleteFunc(m.rows, func(_ string, r StoredRecord) bool {
		if r.Resolved {
			n++
		}
		return r.Resolved
	})
	return n, nil
}

func (m *memStore) get(key string) (StoredRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[key]
	return r, ok
}

func (m *memStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
