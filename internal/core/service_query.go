package core

import (
	"context"
	"fmt"
	"strings"
)

// Query returns one page of rows matching the filters, ordered by insertion,
// plus the unfiltered aggregates. All reads share one store snapshot.
//
// PageSize 0 selects the default page size; other values are clamped to
// [1, MaxPageSize]. Page is clamped to [1, TotalPages], so asking past the
// end returns the last page instead of an empty one.
func (s *Service) Query(ctx context.Context, p QueryParams) (*QueryResult, error) {
	filter := RowFilter{
		DateFrom: strings.TrimSpace(p.DateFrom),
		DateTo:   strings.TrimSpace(p.DateTo),
		Detail:   NormalizeDetail(p.Detail),
	}

	pageSize := p.PageSize
	if pageSize == 0 {
		pageSize = s.opts.DefaultPageSize
	}
	pageSize = max(1, min(pageSize, s.opts.MaxPageSize))

	var (
		total      int64
		totalPages int
		page       int
		stored     []StoredRecord
		sum        Summary
	)
	gen := s.summary.generation()
	err := s.store.Read(ctx, func(r RowReader) error {
		var err error
		total, err = r.Count(ctx, filter)
		if err != nil {
			return fmt.Errorf("count rows: %w", err)
		}

		totalPages = max(1, int((total+int64(pageSize)-1)/int64(pageSize)))
		page = max(1, min(p.Page, totalPages))

		stored, err = r.Page(ctx, filter, pageSize, (page-1)*pageSize)
		if err != nil {
			return fmt.Errorf("fetch page: %w", err)
		}

		sum, err = s.summary.get(ctx, gen, r.Summary)
		if err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows := make([]RowView, len(stored))
	for i, r := range stored {
		rows[i] = toRowView(r)
	}

	return &QueryResult{
		Rows:          rows,
		Total:         total,
		CountAll:      sum.CountAll,
		ResolvedCount: sum.ResolvedCount,
		Bounds:        sum.Bounds,
		Page:          page,
		PageSize:      pageSize,
		TotalPages:    totalPages,
	}, nil
}

// toRowView re-repairs every text value, since rows stored by older
// versions may still carry mis-decoded text.
func toRowView(r StoredRecord) RowView {
	sources := make([]string, len(r.Sources))
	for i, src := range r.Sources {
		sources[i] = RepairText(src)
	}

	var repDate *string
	if r.RepDate != "" {
		d := r.RepDate
		repDate = &d
	}

	return RowView{
		ID:       r.Key,
		Record:   repairRecord(r.Record),
		Resolved: r.Resolved,
		Sources:  sources,
		RepDate:  repDate,
	}
}
