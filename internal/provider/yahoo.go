package provider

import (
	"context"
	"fmt"
	"time"

	"quantshield/internal/domain"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
)

const DefaultFetchTimeout = 30 * time.Second

// YahooProvider fetches adjusted daily closes through the yahoo finance
// chart API. The chart iterator blocks on network I/O and knows nothing
// about contexts, so each fetch runs under a bounded deadline and an
// expiry surfaces as ProviderTimeoutError instead of hanging the caller.
type YahooProvider struct {
	Timeout time.Duration
}

func NewYahooProvider(timeout time.Duration) YahooProvider {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return YahooProvider{Timeout: timeout}
}

func (p YahooProvider) GetPrices(ctx context.Context, tickers []string, start, end time.Time) (map[string]domain.PriceSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	out := map[string]domain.PriceSeries{}
	for _, ticker := range tickers {
		series, err := p.fetchOne(ctx, ticker, start, end)
		if err != nil {
			return nil, err
		}
		out[ticker] = *series
	}
	return out, nil
}

type fetchResult struct {
	series *domain.PriceSeries
	err    error
}

func (p YahooProvider) fetchOne(ctx context.Context, symbol string, start, end time.Time) (*domain.PriceSeries, error) {
	done := make(chan fetchResult, 1)
	go func() {
		series, err := fetchChart(symbol, start, end)
		done <- fetchResult{series: series, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, domain.ProviderTimeoutError{Symbol: symbol, Err: ctx.Err()}
	case res := <-done:
		return res.series, res.err
	}
}

func fetchChart(symbol string, start, end time.Time) (*domain.PriceSeries, error) {
	params := &chart.Params{
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Symbol:   symbol,
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	series := &domain.PriceSeries{Symbol: symbol}
	for iter.Next() {
		ts := time.Unix(int64(iter.Bar().Timestamp), 0).UTC()
		series.Points = append(series.Points, domain.PricePoint{
			Date:  time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
			Price: iter.Bar().AdjClose,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get prices for %s: %w", symbol, err)
	}
	if len(series.Points) == 0 {
		return nil, fmt.Errorf("no prices returned for %s", symbol)
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}
