package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/RepRech/internal/logging"
)

// candidate is a record that survived filtering and is ready to merge.
type candidate struct {
	key    string
	record Record
	detail string
}

// Merge upserts a batch of parsed records under one source label.
//
// Records are repaired, records with an ignorable detail are dropped and
// counted as ignored, and records with an empty key are dropped silently.
// Existing keys gain the source label and count as duplicates; new keys are
// inserted. Everything happens in one store transaction: on error the store
// is unchanged and the returned counts are zero.
func (s *Service) Merge(ctx context.Context, records []Record, source string) (MergeCounts, error) {
	var ignored int
	cands := make([]candidate, 0, len(records))
	for _, r := range records {
		r = repairRecord(r)
		detail := NormalizeDetail(r.RepDetalleRechazo)
		if s.ignored.Match(detail) {
			ignored++
			continue
		}
		key := BuildKey(r)
		if key == "" {
			continue
		}
		cands = append(cands, candidate{key: key, record: r, detail: detail})
	}
	if len(cands) == 0 {
		counts := MergeCounts{Ignored: ignored}
		observeMerge(counts)
		return counts, nil
	}

	keys := make([]string, 0, len(cands))
	seen := make(map[string]struct{}, len(cands))
	for _, c := range cands {
		if _, ok := seen[c.key]; !ok {
			seen[c.key] = struct{}{}
			keys = append(keys, c.key)
		}
	}

	var counts MergeCounts
	start := time.Now()
	err := s.store.Merge(ctx, func(tx MergeTx) error {
		counts = MergeCounts{Ignored: ignored}

		existing := make(map[string]SourceSet, len(keys))
		for chunk := range slices.Chunk(keys, s.opts.LookupChunkSize) {
			found, err := tx.LookupSources(ctx, chunk)
			if err != nil {
				return err
			}
			maps.Copy(existing, found)
		}

		var (
			inserts []StoredRecord
			touched []string
		)
		for _, c := range cands {
			if sources, ok := existing[c.key]; ok {
				if sources.Add(source) {
					existing[c.key] = sources
					touched = append(touched, c.key)
				}
				counts.Duplicates++
				continue
			}
			inserts = append(inserts, StoredRecord{
				Key:              c.key,
				Record:           c.record,
				RepDate:          ExtractRepDate(c.record.RepFecha),
				DetailNormalized: c.detail,
				Sources:          SourceSet{source},
			})
			existing[c.key] = SourceSet{source}
			counts.Added++
		}

		for _, key := range touched {
			if err := tx.SetSources(ctx, key, existing[key]); err != nil {
				return err
			}
		}

		if len(inserts) == 0 {
			return nil
		}
		base := s.createdBase(len(inserts))
		for i := range inserts {
			inserts[i].CreatedAt = base + int64(i)
		}
		return tx.Insert(ctx, inserts)
	})
	mergeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return MergeCounts{}, fmt.Errorf("merge %q: %w", source, err)
	}

	observeMerge(counts)
	if counts.Added > 0 || counts.Duplicates > 0 {
		s.summary.invalidate()
	}
	return counts, nil
}

// Ingest decodes, parses and merges each upload in order. Each file is its
// own merge transaction, so when file N fails the files before it stay
// committed and the partial result is returned with the error.
func (s *Service) Ingest(ctx context.Context, uploads []Upload) (*IngestResult, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	result := &IngestResult{
		RunID: uuid.New().String(),
		Files: make([]FileResult, 0, len(uploads)),
	}
	logger := logging.WithFields(ctx, "run_id", result.RunID)

	for _, u := range uploads {
		name := u.Name
		if name == "" {
			name = s.opts.DefaultLabel
		}

		text, enc := DecodePayload(u.Data)
		parsed := ParseReport(text)

		mergeCtx, cancel := context.WithTimeout(ctx, s.opts.MergeTimeout)
		counts, err := s.Merge(mergeCtx, parsed.Records, name)
		cancel()
		if err != nil {
			ingestFilesTotal.WithLabelValues("error", string(enc)).Inc()
			logger.Error("file ingest failed", "file", name, "error", err)
			return result, err
		}
		ingestFilesTotal.WithLabelValues("ok", string(enc)).Inc()

		fr := FileResult{Name: name, Total: len(parsed.Records), MergeCounts: counts}
		result.Files = append(result.Files, fr)
		result.Totals.Total += fr.Total
		result.Totals.Added += counts.Added
		result.Totals.Duplicates += counts.Duplicates
		result.Totals.Ignored += counts.Ignored

		logger.Info("file ingested",
			"file", name,
			"encoding", enc,
			"layout", parsed.LastLayout.Source,
			"parsed", fr.Total,
			"dropped", parsed.Dropped,
			"added", counts.Added,
			"duplicates", counts.Duplicates,
			"ignored", counts.Ignored,
		)
	}

	return result, nil
}

// Bootstrap ingests the seed file at path under label when the file exists
// and the store holds no rows. It reports whether anything was ingested.
func (s *Service) Bootstrap(ctx context.Context, path, label string) (bool, error) {
	if path == "" {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read seed file: %w", err)
	}

	empty, err := s.store.IsEmpty(ctx)
	if err != nil {
		return false, fmt.Errorf("check store: %w", err)
	}
	if !empty {
		return false, nil
	}

	if label == "" {
		label = s.opts.DefaultLabel
	}
	res, err := s.Ingest(ctx, []Upload{{Name: label, Data: data}})
	if err != nil {
		return false, fmt.Errorf("seed %s: %w", path, err)
	}

	logging.FromContext(ctx).Info("seed file ingested",
		"path", path,
		"label", label,
		"added", res.Totals.Added,
		"ignored", res.Totals.Ignored,
	)
	return true, nil
}
