// Package store defines storage for historical daily price bars and provides
// SQLite- and Parquet-backed implementations. A BarStore is the engine's
// price series provider: it returns ascending-date-ordered bars for one
// symbol over a date range.
package store

import (
	"context"
	"time"

	"kepler/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars, replacing any existing bar with
	// the same symbol and date.
	WriteBars(ctx context.Context, bars []domain.PriceBar) error

	// ReadBars returns bars for the given symbol within [start, end],
	// ordered ascending by date.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error)

	// ListSymbols returns all distinct symbols available in the store.
	ListSymbols(ctx context.Context) ([]string, error)
}
