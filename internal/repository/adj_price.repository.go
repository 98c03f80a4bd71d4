package repository

import (
	"context"
	"fmt"
	"time"

	"quantshield/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// AdjustedPriceRepository is a local cache of adjusted daily closes, so
// repeated training runs and predictions don't hammer the upstream
// provider for the same history.
type AdjustedPriceRepository interface {
	Add(ctx context.Context, series domain.PriceSeries) error
	List(ctx context.Context, symbol string, start, end time.Time) (*domain.PriceSeries, error)
	Span(ctx context.Context, symbol string) (first, last time.Time, err error)
}

const schema = `
CREATE TABLE IF NOT EXISTS adjusted_price (
	symbol     TEXT NOT NULL,
	date       TEXT NOT NULL,
	price      TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (symbol, date)
);
`

type adjustedPriceRow struct {
	Symbol    string `db:"symbol"`
	Date      string `db:"date"`
	Price     string `db:"price"`
	CreatedAt string `db:"created_at"`
}

type adjustedPriceRepositoryHandler struct {
	db *sqlx.DB
}

func NewAdjustedPriceRepository(db *sqlx.DB) (AdjustedPriceRepository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to ensure adjusted_price table: %w", err)
	}
	return &adjustedPriceRepositoryHandler{db: db}, nil
}

func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price cache db: %w", err)
	}
	return db, nil
}

func (h *adjustedPriceRepositoryHandler) Add(ctx context.Context, series domain.PriceSeries) error {
	tx, err := h.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, p := range series.Points {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO adjusted_price (symbol, date, price, created_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (symbol, date) DO UPDATE SET price = excluded.price`,
			series.Symbol,
			p.Date.Format(time.DateOnly),
			p.Price.String(),
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert price %s %s: %w", series.Symbol, p.Date.Format(time.DateOnly), err)
		}
	}

	return tx.Commit()
}

func (h *adjustedPriceRepositoryHandler) List(ctx context.Context, symbol string, start, end time.Time) (*domain.PriceSeries, error) {
	rows := []adjustedPriceRow{}
	err := h.db.SelectContext(ctx, &rows,
		`SELECT symbol, date, price, created_at FROM adjusted_price
		 WHERE symbol = ? AND date >= ? AND date <= ?
		 ORDER BY date ASC`,
		symbol,
		start.Format(time.DateOnly),
		end.Format(time.DateOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list prices for %s: %w", symbol, err)
	}

	series := &domain.PriceSeries{Symbol: symbol}
	for _, row := range rows {
		date, err := time.Parse(time.DateOnly, row.Date)
		if err != nil {
			return nil, fmt.Errorf("corrupt date %q for %s: %w", row.Date, symbol, err)
		}
		price, err := decimal.NewFromString(row.Price)
		if err != nil {
			return nil, fmt.Errorf("corrupt price %q for %s: %w", row.Price, symbol, err)
		}
		series.Points = append(series.Points, domain.PricePoint{Date: date, Price: price})
	}
	return series, nil
}

func (h *adjustedPriceRepositoryHandler) Span(ctx context.Context, symbol string) (time.Time, time.Time, error) {
	var span struct {
		First *string `db:"first"`
		Last  *string `db:"last"`
	}
	err := h.db.GetContext(ctx, &span,
		`SELECT MIN(date) AS first, MAX(date) AS last FROM adjusted_price WHERE symbol = ?`,
		symbol,
	)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to get span for %s: %w", symbol, err)
	}
	if span.First == nil || span.Last == nil {
		return time.Time{}, time.Time{}, nil
	}

	first, err := time.Parse(time.DateOnly, *span.First)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	last, err := time.Parse(time.DateOnly, *span.Last)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return first, last, nil
}
