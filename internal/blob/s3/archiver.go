package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

const jsonlContentType = "application/x-ndjson"

// ArchiveImpl implements domain.Archiver. It drains rows older than the
// cutoff from the primary store into JSONL objects in blob storage, then
// deletes them. Deletion happens only after every upload succeeded, so a
// failed run leaves the primary store intact and the next run re-archives
// the same rows (uploads are idempotent per key).
type ArchiveImpl struct {
	writer domain.BlobWriter
	opps   domain.OpportunityStore
	prices domain.PriceHistoryStore
	logger *slog.Logger
}

var _ domain.Archiver = (*ArchiveImpl)(nil)

// NewArchiver creates an ArchiveImpl over the given writer and stores.
func NewArchiver(writer domain.BlobWriter, opps domain.OpportunityStore, prices domain.PriceHistoryStore, logger *slog.Logger) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		opps:   opps,
		prices: prices,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// Archive moves all opportunities and price observations recorded strictly
// before the cutoff into blob storage.
func (a *ArchiveImpl) Archive(ctx context.Context, before time.Time) (domain.ArchiveResult, error) {
	result := domain.ArchiveResult{Cutoff: before}

	opps, err := a.opps.ListBefore(ctx, before)
	if err != nil {
		return result, fmt.Errorf("s3blob: archive opportunities query: %w", err)
	}
	points, err := a.prices.ListBefore(ctx, before)
	if err != nil {
		return result, fmt.Errorf("s3blob: archive prices query: %w", err)
	}
	if len(opps) == 0 && len(points) == 0 {
		a.logger.InfoContext(ctx, "nothing to archive",
			slog.Time("cutoff", before))
		return result, nil
	}

	oppKeys, err := uploadByMonth(ctx, a.writer, "opportunities", before, opps,
		func(o domain.Opportunity) time.Time { return o.DetectedAt })
	if err != nil {
		return result, err
	}
	result.OpportunitiesWritten = len(opps)
	result.Keys = append(result.Keys, oppKeys...)

	priceKeys, err := uploadByMonth(ctx, a.writer, "prices", before, points,
		func(p domain.PricePoint) time.Time { return p.Timestamp })
	if err != nil {
		return result, err
	}
	result.PricePointsWritten = len(points)
	result.Keys = append(result.Keys, priceKeys...)

	// Both uploads are durable; now the rows can go.
	oppDeleted, err := a.opps.DeleteBefore(ctx, before)
	if err != nil {
		return result, fmt.Errorf("s3blob: delete archived opportunities: %w", err)
	}
	priceDeleted, err := a.prices.DeleteBefore(ctx, before)
	if err != nil {
		return result, fmt.Errorf("s3blob: delete archived prices: %w", err)
	}
	result.RowsDeleted = oppDeleted + priceDeleted

	a.logger.InfoContext(ctx, "archive complete",
		slog.Time("cutoff", before),
		slog.Int("opportunities", result.OpportunitiesWritten),
		slog.Int("price_points", result.PricePointsWritten),
		slog.Int64("rows_deleted", result.RowsDeleted),
	)
	return result, nil
}

// uploadByMonth groups records by the year-month of their own timestamp and
// writes one object per month. Keys carry the run cutoff, so runs with
// different cutoffs never touch each other's objects; a retry after a failed
// run reuses the same cutoff and rewrites the same keys.
func uploadByMonth[T any](ctx context.Context, writer domain.BlobWriter, kind string, before time.Time, records []T, ts func(T) time.Time) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	groups := make(map[string][]T)
	for _, rec := range records {
		month := ts(rec).UTC().Format("2006-01")
		groups[month] = append(groups[month], rec)
	}

	months := make([]string, 0, len(groups))
	for month := range groups {
		months = append(months, month)
	}
	sort.Strings(months)

	keys := make([]string, 0, len(months))
	for _, month := range months {
		key := archiveKey(kind, month, before)
		if err := upload(ctx, writer, key, groups[month]); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func upload[T any](ctx context.Context, writer domain.BlobWriter, key string, records []T) error {
	buf, err := marshalJSONL(records)
	if err != nil {
		return fmt.Errorf("s3blob: archive marshal %s: %w", key, err)
	}
	if err := writer.Write(ctx, key, buf, jsonlContentType); err != nil {
		return fmt.Errorf("s3blob: archive upload %s: %w", key, err)
	}
	return nil
}

// archiveKey builds the blob key for an archive object, partitioned by the
// records' year-month and stamped with the run cutoff:
//
//	archive/opportunities/2026-06/cutoff-20260730T000000Z.jsonl
//	archive/prices/2026-07/cutoff-20260730T000000Z.jsonl
func archiveKey(kind, month string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s/cutoff-%s.jsonl", kind, month, before.UTC().Format("20060102T150405Z"))
}

// marshalJSONL serialises a slice as newline-delimited JSON, one compact
// object per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
