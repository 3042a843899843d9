package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kepler/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ BarStore = (*SQLiteStore)(nil)

// dateLayout is the canonical on-disk date format. Lexicographic order of
// the TEXT column matches chronological order, so range scans stay simple.
const dateLayout = "2006-01-02"

// SQLiteStore implements BarStore backed by a SQLite database. Prices are
// stored as TEXT so decimal values round-trip exactly.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, ensures the
// schema exists, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating bar schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT NOT NULL,
			date   TEXT NOT NULL,
			open   TEXT NOT NULL,
			high   TEXT NOT NULL,
			low    TEXT NOT NULL,
			close  TEXT NOT NULL,
			volume TEXT NOT NULL,
			PRIMARY KEY (symbol, date)
		)`)
	return err
}

// WriteBars upserts a batch of bars in a single transaction.
func (s *SQLiteStore) WriteBars(ctx context.Context, bars []domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx,
			b.Symbol, b.Date.Format(dateLayout),
			b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(),
			b.Volume.String())
		if err != nil {
			return fmt.Errorf("inserting bar %s/%s: %w", b.Symbol, b.Date.Format(dateLayout), err)
		}
	}
	return tx.Commit()
}

// ReadBars returns the bars for symbol within [start, end], ascending by
// date.
func (s *SQLiteStore) ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, date, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		symbol, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.PriceBar
	for rows.Next() {
		var (
			b       domain.PriceBar
			date    string
			o, h, l string
			c, v    string
		)
		if err := rows.Scan(&b.Symbol, &date, &o, &h, &l, &c, &v); err != nil {
			return nil, err
		}
		if b.Date, err = time.ParseInLocation(dateLayout, date, time.UTC); err != nil {
			return nil, fmt.Errorf("parsing bar date %q: %w", date, err)
		}
		if b.Open, b.High, b.Low, b.Close, b.Volume, err = parsePrices(o, h, l, c, v); err != nil {
			return nil, fmt.Errorf("parsing bar %s/%s: %w", b.Symbol, date, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ListSymbols returns all distinct symbols in the store, sorted.
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

func parsePrices(o, h, l, c, v string) (open, high, low, cls, vol decimal.Decimal, err error) {
	if open, err = decimal.NewFromString(o); err != nil {
		return
	}
	if high, err = decimal.NewFromString(h); err != nil {
		return
	}
	if low, err = decimal.NewFromString(l); err != nil {
		return
	}
	if cls, err = decimal.NewFromString(c); err != nil {
		return
	}
	vol, err = decimal.NewFromString(v)
	return
}
