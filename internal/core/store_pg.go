package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// rowsTable is the single table holding report rows.
const rowsTable = "report_rows"

// mergeLockKey is the transaction-scoped advisory lock taken by every merge.
const mergeLockKey int64 = 0x5245505245434801

// copyColumns lists report_rows columns in the order copyRow emits them.
var copyColumns = []string{
	"id",
	"emp_ruc",
	"emp_razon_social",
	"emp_nom",
	"rep_fecha",
	"rep_fecha_date",
	"rep_liq_estado_consulta",
	"rep_detalle_rechazo",
	"detail_normalized",
	"resolved",
	"sources",
	"created_at",
}

const selectColumns = `id, emp_ruc, emp_razon_social, emp_nom, rep_fecha, rep_fecha_date,
	rep_liq_estado_consulta, rep_detalle_rechazo, detail_normalized, resolved, sources, created_at`

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore is the PostgreSQL implementation of Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps a connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Ping checks that the database is reachable.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Read runs fn in a read-only REPEATABLE READ transaction.
func (s *PGStore) Read(ctx context.Context, fn func(RowReader) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(pgReader{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Merge runs fn in a transaction that first takes an advisory lock, so the
// lookup-then-insert sequence of concurrent merges never interleaves.
// The primary key on id remains the backstop.
func (s *PGStore) Merge(ctx context.Context, fn func(MergeTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", mergeLockKey); err != nil {
		return fmt.Errorf("acquire merge lock: %w", err)
	}

	if err := fn(&pgMergeTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgMergeTx struct {
	tx pgx.Tx
}

func (m *pgMergeTx) LookupSources(ctx context.Context, keys []string) (map[string]SourceSet, error) {
	found := make(map[string]SourceSet, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	rows, err := m.tx.Query(ctx, "SELECT id, sources FROM "+rowsTable+" WHERE id = ANY($1)", keys)
	if err != nil {
		return nil, fmt.Errorf("lookup keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id      string
			sources []string
		)
		if err := rows.Scan(&id, &sources); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		found[id] = SourceSet(sources)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup keys: %w", err)
	}
	return found, nil
}

func (m *pgMergeTx) SetSources(ctx context.Context, key string, sources SourceSet) error {
	_, err := m.tx.Exec(ctx, "UPDATE "+rowsTable+" SET sources = $2 WHERE id = $1", key, []string(sources))
	if err != nil {
		return fmt.Errorf("update sources: %w", err)
	}
	return nil
}

func (m *pgMergeTx) Insert(ctx context.Context, rows []StoredRecord) error {
	if len(rows) == 0 {
		return nil
	}
	n, err := m.tx.CopyFrom(ctx,
		pgx.Identifier{rowsTable},
		copyColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return copyRow(rows[i]), nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy rows: wrote %d of %d", n, len(rows))
	}
	return nil
}

// copyRow converts a StoredRecord to values matching copyColumns.
func copyRow(r StoredRecord) []any {
	return []any{
		r.Key,
		r.Record.EmpRUC,
		r.Record.EmpRazonSocial,
		r.Record.EmpNom,
		r.Record.RepFecha,
		pgtype.Text{String: r.RepDate, Valid: r.RepDate != ""},
		r.Record.RepLiqEstadoConsulta,
		r.Record.RepDetalleRechazo,
		r.DetailNormalized,
		r.Resolved,
		[]string(r.Sources),
		r.CreatedAt,
	}
}

// whereClause renders f as a WHERE clause with positional args starting at $1.
func whereClause(f RowFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.DateFrom != "" {
		args = append(args, f.DateFrom)
		conds = append(conds, fmt.Sprintf("rep_fecha_date >= $%d", len(args)))
	}
	if f.DateTo != "" {
		args = append(args, f.DateTo)
		conds = append(conds, fmt.Sprintf("rep_fecha_date <= $%d", len(args)))
	}
	if f.Detail != "" {
		// strpos gives plain substring semantics; LIKE would treat % and _ as wildcards.
		args = append(args, f.Detail)
		conds = append(conds, fmt.Sprintf("strpos(detail_normalized, $%d) > 0", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *PGStore) IsEmpty(ctx context.Context) (bool, error) {
	var empty bool
	err := s.pool.QueryRow(ctx, "SELECT NOT EXISTS (SELECT 1 FROM "+rowsTable+")").Scan(&empty)
	if err != nil {
		return false, fmt.Errorf("check empty: %w", err)
	}
	return empty, nil
}

func (s *PGStore) Count(ctx context.Context, f RowFilter) (int64, error) {
	return pgReader{q: s.pool}.Count(ctx, f)
}

func (s *PGStore) Page(ctx context.Context, f RowFilter, limit, offset int) ([]StoredRecord, error) {
	return pgReader{q: s.pool}.Page(ctx, f, limit, offset)
}

func (s *PGStore) Summary(ctx context.Context) (Summary, error) {
	return pgReader{q: s.pool}.Summary(ctx)
}

// pgReader runs the query side against the pool or a read transaction.
type pgReader struct {
	q dbtx
}

func (r pgReader) Count(ctx context.Context, f RowFilter) (int64, error) {
	where, args := whereClause(f)
	var n int64
	if err := r.q.QueryRow(ctx, "SELECT COUNT(*) FROM "+rowsTable+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

func (r pgReader) Page(ctx context.Context, f RowFilter, limit, offset int) ([]StoredRecord, error) {
	where, args := whereClause(f)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY created_at, id LIMIT $%d OFFSET $%d",
		selectColumns, rowsTable, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []StoredRecord
	for rows.Next() {
		var (
			rec     StoredRecord
			repDate pgtype.Text
			sources []string
		)
		err := rows.Scan(
			&rec.Key,
			&rec.Record.EmpRUC,
			&rec.Record.EmpRazonSocial,
			&rec.Record.EmpNom,
			&rec.Record.RepFecha,
			&repDate,
			&rec.Record.RepLiqEstadoConsulta,
			&rec.Record.RepDetalleRechazo,
			&rec.DetailNormalized,
			&rec.Resolved,
			&sources,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.RepDate = repDate.String
		rec.Sources = SourceSet(sources)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func (r pgReader) Summary(ctx context.Context) (Summary, error) {
	var (
		sum    Summary
		lo, hi pgtype.Text
	)
	err := r.q.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE resolved),
			MIN(rep_fecha_date) FILTER (WHERE rep_fecha_date <> ''),
			MAX(rep_fecha_date) FILTER (WHERE rep_fecha_date <> '')
		FROM `+rowsTable).Scan(&sum.CountAll, &sum.ResolvedCount, &lo, &hi)
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	if lo.Valid || hi.Valid {
		sum.Bounds = &DateBounds{Min: lo.String, Max: hi.String}
	}
	return sum, nil
}

func (s *PGStore) Toggle(ctx context.Context, key string) (bool, error) {
	var resolved bool
	err := s.pool.QueryRow(ctx,
		"UPDATE "+rowsTable+" SET resolved = NOT resolved WHERE id = $1 RETURNING resolved", key,
	).Scan(&resolved)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrRowNotFound
	}
	if err != nil {
		return false, fmt.Errorf("toggle row: %w", err)
	}
	return resolved, nil
}

func (s *PGStore) DeleteResolved(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM "+rowsTable+" WHERE resolved")
	if err != nil {
		return 0, fmt.Errorf("delete resolved: %w", err)
	}
	return tag.RowsAffected(), nil
}
