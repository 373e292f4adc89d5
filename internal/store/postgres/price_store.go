package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// PriceStore implements domain.PriceHistoryStore using PostgreSQL.
type PriceStore struct {
	pool *pgxpool.Pool
}

var _ domain.PriceHistoryStore = (*PriceStore)(nil)

// NewPriceStore creates a PriceStore backed by the given pool.
func NewPriceStore(pool *pgxpool.Pool) *PriceStore {
	return &PriceStore{pool: pool}
}

// Insert stores one price observation.
func (s *PriceStore) Insert(ctx context.Context, point domain.PricePoint) error {
	const query = `
		INSERT INTO price_data (symbol, exchange, price, ts)
		VALUES ($1, $2, $3, $4)`

	_, err := s.pool.Exec(ctx, query,
		point.Symbol, point.Exchange, point.Price, point.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres: insert price %s/%s: %w", point.Exchange, point.Symbol, err)
	}
	return nil
}

// ListBySymbol returns the most recent observations for one symbol on one
// exchange, newest first.
func (s *PriceStore) ListBySymbol(ctx context.Context, symbol, exchange string, limit int) ([]domain.PricePoint, error) {
	query := `SELECT id, symbol, exchange, price, ts FROM price_data
		WHERE symbol = $1 AND exchange = $2 ORDER BY ts DESC`
	args := []any{symbol, exchange}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list prices for %s/%s: %w", exchange, symbol, err)
	}
	return scanPricePoints(rows)
}

// ListBefore returns observations recorded strictly before the cutoff, oldest
// first, for archival.
func (s *PriceStore) ListBefore(ctx context.Context, before time.Time) ([]domain.PricePoint, error) {
	const query = `SELECT id, symbol, exchange, price, ts FROM price_data
		WHERE ts < $1 ORDER BY ts ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list prices before %s: %w", before, err)
	}
	return scanPricePoints(rows)
}

// DeleteBefore removes observations recorded strictly before the cutoff.
func (s *PriceStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM price_data WHERE ts < $1", before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete prices before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

func scanPricePoints(rows pgx.Rows) ([]domain.PricePoint, error) {
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Exchange, &p.Price, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan price point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate price points: %w", err)
	}
	return points, nil
}
