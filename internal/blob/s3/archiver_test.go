package s3blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

type memWriter struct {
	objects map[string][]byte
	failOn  string
}

func newMemWriter() *memWriter {
	return &memWriter{objects: map[string][]byte{}}
}

func (w *memWriter) Write(_ context.Context, key string, data []byte, _ string) error {
	if w.failOn != "" && strings.Contains(key, w.failOn) {
		return errors.New("upload rejected")
	}
	w.objects[key] = append([]byte(nil), data...)
	return nil
}

type memOppStore struct {
	rows []domain.Opportunity
}

func (s *memOppStore) Insert(_ context.Context, o domain.Opportunity) error {
	s.rows = append(s.rows, o)
	return nil
}

func (s *memOppStore) ListRecent(context.Context, int) ([]domain.Opportunity, error) {
	return s.rows, nil
}

func (s *memOppStore) ListBySymbol(context.Context, string, int) ([]domain.Opportunity, error) {
	return s.rows, nil
}

func (s *memOppStore) ListBefore(_ context.Context, before time.Time) ([]domain.Opportunity, error) {
	var out []domain.Opportunity
	for _, o := range s.rows {
		if o.DetectedAt.Before(before) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memOppStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	var kept []domain.Opportunity
	var deleted int64
	for _, o := range s.rows {
		if o.DetectedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, o)
	}
	s.rows = kept
	return deleted, nil
}

type memPriceStore struct {
	rows []domain.PricePoint
}

func (s *memPriceStore) Insert(_ context.Context, p domain.PricePoint) error {
	s.rows = append(s.rows, p)
	return nil
}

func (s *memPriceStore) ListBySymbol(context.Context, string, string, int) ([]domain.PricePoint, error) {
	return s.rows, nil
}

func (s *memPriceStore) ListBefore(_ context.Context, before time.Time) ([]domain.PricePoint, error) {
	var out []domain.PricePoint
	for _, p := range s.rows {
		if p.Timestamp.Before(before) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memPriceStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	var kept []domain.PricePoint
	var deleted int64
	for _, p := range s.rows {
		if p.Timestamp.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, p)
	}
	s.rows = kept
	return deleted, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func opp(id string, detectedAt time.Time) domain.Opportunity {
	return domain.Opportunity{
		ID:           id,
		Symbol:       "BTCUSDT",
		BuyExchange:  "nobitex",
		SellExchange: "wallex",
		BuyPrice:     100,
		SellPrice:    102,
		SpreadPct:    2,
		DetectedAt:   detectedAt,
	}
}

func TestArchiveSuccessiveRunsPreserveEarlierObjects(t *testing.T) {
	writer := newMemWriter()
	opps := &memOppStore{rows: []domain.Opportunity{
		opp("opp-june", time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)),
		opp("opp-july-29", time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)),
		opp("opp-july-30", time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)),
	}}
	prices := &memPriceStore{}
	arch := NewArchiver(writer, opps, prices, testLogger())

	// Day one: everything before the 30th goes out.
	res1, err := arch.Archive(context.Background(), time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, res1.OpportunitiesWritten)
	assert.Equal(t, int64(2), res1.RowsDeleted)
	require.Equal(t, []string{
		"archive/opportunities/2026-06/cutoff-20260730T000000Z.jsonl",
		"archive/opportunities/2026-07/cutoff-20260730T000000Z.jsonl",
	}, res1.Keys)

	// June rows land in the June partition, not the cutoff's month.
	assert.Contains(t, string(writer.objects[res1.Keys[0]]), "opp-june")
	assert.Contains(t, string(writer.objects[res1.Keys[1]]), "opp-july-29")

	// Day two: a later cutoff in the same month must not touch day one's
	// objects.
	res2, err := arch.Archive(context.Background(), time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, []string{
		"archive/opportunities/2026-07/cutoff-20260731T000000Z.jsonl",
	}, res2.Keys)
	assert.Contains(t, string(writer.objects[res2.Keys[0]]), "opp-july-30")

	assert.Contains(t, string(writer.objects["archive/opportunities/2026-06/cutoff-20260730T000000Z.jsonl"]), "opp-june")
	assert.Contains(t, string(writer.objects["archive/opportunities/2026-07/cutoff-20260730T000000Z.jsonl"]), "opp-july-29")
	assert.Empty(t, opps.rows)
}

func TestArchiveKeepsRowsWhenUploadFails(t *testing.T) {
	writer := newMemWriter()
	writer.failOn = "prices"
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	opps := &memOppStore{rows: []domain.Opportunity{
		opp("opp-1", cutoff.Add(-time.Hour)),
	}}
	prices := &memPriceStore{rows: []domain.PricePoint{
		{Symbol: "BTCUSDT", Exchange: "nobitex", Price: 100, Timestamp: cutoff.Add(-time.Hour)},
	}}
	arch := NewArchiver(writer, opps, prices, testLogger())

	_, err := arch.Archive(context.Background(), cutoff)
	require.Error(t, err)

	// Nothing was deleted; the next run with the same cutoff rewrites the
	// same keys.
	assert.Len(t, opps.rows, 1)
	assert.Len(t, prices.rows, 1)
}

func TestArchiveNothingToDo(t *testing.T) {
	writer := newMemWriter()
	arch := NewArchiver(writer, &memOppStore{}, &memPriceStore{}, testLogger())

	res, err := arch.Archive(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, res.OpportunitiesWritten)
	assert.Empty(t, writer.objects)
}

func TestMarshalJSONLOneObjectPerLine(t *testing.T) {
	buf, err := marshalJSONL([]domain.PricePoint{
		{Symbol: "BTCUSDT", Exchange: "nobitex", Price: 100},
		{Symbol: "BTCUSDT", Exchange: "wallex", Price: 101},
	})
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimRight(buf, "\n"), []byte("\n"))
	assert.Len(t, lines, 2)
}
