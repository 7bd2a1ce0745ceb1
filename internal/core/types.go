package core

import (
	"context"
	"slices"
)

// Column labels in the order the legacy report emits them.
const (
	ColEmpRUC               = "EmpRUC"
	ColEmpRazonSocial       = "EmpRazonSocial"
	ColEmpNom               = "EmpNom"
	ColRepFecha             = "RepFecha"
	ColRepLiqEstadoConsulta = "RepLiqEstadoConsulta"
	ColRepDetalleRechazo    = "RepDetalleRechazo"
)

// Columns is the fixed ordered list of report columns.
var Columns = [NumColumns]string{
	ColEmpRUC,
	ColEmpRazonSocial,
	ColEmpNom,
	ColRepFecha,
	ColRepLiqEstadoConsulta,
	ColRepDetalleRechazo,
}

// NumColumns is the number of fields in a report row.
const NumColumns = 6

// Record is one employer-rejection entry as parsed from a report.
// Field values are immutable once stored.
type Record struct {
	EmpRUC               string `json:"EmpRUC"`
	EmpRazonSocial       string `json:"EmpRazonSocial"`
	EmpNom               string `json:"EmpNom"`
	RepFecha             string `json:"RepFecha"`
	RepLiqEstadoConsulta string `json:"RepLiqEstadoConsulta"`
	RepDetalleRechazo    string `json:"RepDetalleRechazo"`
}

// Fields returns the record values in column order.
func (r Record) Fields() [NumColumns]string {
	return [NumColumns]string{
		r.EmpRUC,
		r.EmpRazonSocial,
		r.EmpNom,
		r.RepFecha,
		r.RepLiqEstadoConsulta,
		r.RepDetalleRechazo,
	}
}

// recordFromFields builds a Record from values in column order.
func recordFromFields(v [NumColumns]string) Record {
	return Record{
		EmpRUC:               v[0],
		EmpRazonSocial:       v[1],
		EmpNom:               v[2],
		RepFecha:             v[3],
		RepLiqEstadoConsulta: v[4],
		RepDetalleRechazo:    v[5],
	}
}

// SourceSet is an insertion-ordered set of originating file labels.
type SourceSet []string

// Add appends label if absent and reports whether the set changed.
func (s *SourceSet) Add(label string) bool {
	if slices.Contains(*s, label) {
		return false
	}
	*s = append(*s, label)
	return true
}

// Contains reports whether label is in the set.
func (s SourceSet) Contains(label string) bool {
	return slices.Contains(s, label)
}

// StoredRecord is a persisted row: the parsed fields plus derived state.
type StoredRecord struct {
	Key              string
	Record           Record
	RepDate          string // strict YYYY-MM-DD or empty
	DetailNormalized string
	Resolved         bool
	Sources          SourceSet
	CreatedAt        int64
}

// MergeCounts is the outcome of merging one batch.
type MergeCounts struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Ignored    int `json:"ignored"`
}

// FileResult summarizes the ingest of one uploaded blob.
type FileResult struct {
	Name  string `json:"name"`
	Total int    `json:"total"`
	MergeCounts
}

// IngestTotals aggregates FileResults across a request.
type IngestTotals struct {
	Total int `json:"total"`
	MergeCounts
}

// IngestResult is the response of one ingest request.
type IngestResult struct {
	RunID  string       `json:"run_id"`
	Files  []FileResult `json:"files"`
	Totals IngestTotals `json:"totals"`
}

// Upload is one named blob submitted for ingest.
type Upload struct {
	Name string
	Data []byte
}

// RowFilter restricts the query side. Empty fields are ignored.
type RowFilter struct {
	DateFrom string
	DateTo   string
	// Detail is already normalized by the caller.
	Detail string
}

// DateBounds holds the min/max rep_date across stored rows.
type DateBounds struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// Summary holds unfiltered aggregates over the whole store.
type Summary struct {
	CountAll      int64
	ResolvedCount int64
	Bounds        *DateBounds
}

// RowView is the serialized form of a stored row.
type RowView struct {
	ID string `json:"id"`
	Record
	Resolved bool     `json:"resolved"`
	Sources  []string `json:"sources"`
	RepDate  *string  `json:"rep_date"`
}

// QueryParams are the caller-supplied query inputs.
type QueryParams struct {
	DateFrom string
	DateTo   string
	Detail   string
	Page     int
	PageSize int
}

// QueryResult is a page of rows plus aggregates.
type QueryResult struct {
	Rows          []RowView   `json:"rows"`
	Total         int64       `json:"total"`
	CountAll      int64       `json:"count_all"`
	ResolvedCount int64       `json:"resolved_count"`
	Bounds        *DateBounds `json:"bounds"`
	Page          int         `json:"page"`
	PageSize      int         `json:"page_size"`
	TotalPages    int         `json:"total_pages"`
}

// ToggleResult is the new state of a toggled row.
type ToggleResult struct {
	ID       string `json:"id"`
	Resolved bool   `json:"resolved"`
}

// Store is the persistence boundary for report rows.
// PGStore is the production implementation.
type Store interface {
	// Merge runs fn inside one transaction. Concurrent merges serialize.
	// If fn returns an error nothing it wrote is committed.
	Merge(ctx context.Context, fn func(MergeTx) error) error

	// Read runs fn against one consistent snapshot, so counts and the
	// page they describe agree even while other requests write.
	Read(ctx context.Context, fn func(RowReader) error) error

	RowReader
	IsEmpty(ctx context.Context) (bool, error)
	Toggle(ctx context.Context, key string) (bool, error)
	DeleteResolved(ctx context.Context) (int64, error)
}

// RowReader is the query surface shared by Store and Store.Read.
type RowReader interface {
	Count(ctx context.Context, f RowFilter) (int64, error)
	Page(ctx context.Context, f RowFilter, limit, offset int) ([]StoredRecord, error)
	Summary(ctx context.Context) (Summary, error)
}

// MergeTx is the write surface available inside Store.Merge.
type MergeTx interface {
	// LookupSources returns the stored sources for every key that exists.
	LookupSources(ctx context.Context, keys []string) (map[string]SourceSet, error)
	SetSources(ctx context.Context, key string, sources SourceSet) error
	Insert(ctx context.Context, rows []StoredRecord) error
}
