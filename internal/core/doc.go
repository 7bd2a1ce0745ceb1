// Package core ingests fixed-width employer rejection reports and serves the
// resulting rows.
//
// This package holds all domain logic independent of the HTTP layer. It can
// be used by web handlers, the startup seed, or tests without modification.
//
// # Pipeline
//
// An uploaded blob flows through:
//
//  1. [DecodePayload]: UTF-8, falling back to Latin-1.
//  2. [ParseReport]: header lines pick the column [Layout] through
//     [DetectLayout], data lines are cut by [ParseLine].
//  3. [Service.Merge]: [RepairText] on every field, [NormalizeDetail] for the
//     ignore check and detail search, [BuildKey] for identity, then one store
//     transaction that appends source labels to existing keys and inserts
//     the rest.
//
// [Service.Ingest] runs this for each file of a request, sequentially, with
// one transaction per file.
//
// # Storage
//
// [Store] is the persistence boundary. [PGStore] implements it on PostgreSQL;
// merges take a transaction-scoped advisory lock so concurrent uploads of
// overlapping data serialize.
//
// # Errors
//
// Sentinel errors ([ErrNoFiles], [ErrRowNotFound], [ErrTooManyUploads]) are
// matched with errors.Is. [MapError] turns any error into a [UserMessage]
// with a support code.
package core
