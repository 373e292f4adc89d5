package domain

import (
	"context"
	"time"
)

// PricePoint is a persisted price observation. Unlike PriceQuote it survives
// the scan tick that produced it; the history table feeds later analysis and
// the cold-storage archiver.
type PricePoint struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Exchange  string    `json:"exchange"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// OpportunityStore persists detected opportunities.
type OpportunityStore interface {
	Insert(ctx context.Context, opp Opportunity) error
	ListRecent(ctx context.Context, limit int) ([]Opportunity, error)
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]Opportunity, error)
	// ListBefore returns opportunities detected strictly before the cutoff,
	// for archival.
	ListBefore(ctx context.Context, before time.Time) ([]Opportunity, error)
	// DeleteBefore removes opportunities detected strictly before the cutoff.
	// Called only after a successful archive upload.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// PriceHistoryStore persists per-fetch price observations.
type PriceHistoryStore interface {
	Insert(ctx context.Context, point PricePoint) error
	ListBySymbol(ctx context.Context, symbol, exchange string, limit int) ([]PricePoint, error)
	ListBefore(ctx context.Context, before time.Time) ([]PricePoint, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
