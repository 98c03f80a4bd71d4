package provider

import (
	"context"
	"time"

	"quantshield/internal/domain"
	"quantshield/internal/logger"
	"quantshield/internal/repository"
)

// coverageSlack tolerates the gap between a requested range boundary and
// the nearest trading day (weekends, holidays).
const coverageSlack = 7 * 24 * time.Hour

// CachedProvider serves prices from the local sqlite cache and falls
// through to the inner provider only for symbols the cache cannot cover,
// writing fetched history back.
type CachedProvider struct {
	Repo  repository.AdjustedPriceRepository
	Inner PriceProvider
}

func NewCachedProvider(repo repository.AdjustedPriceRepository, inner PriceProvider) CachedProvider {
	return CachedProvider{Repo: repo, Inner: inner}
}

func (p CachedProvider) GetPrices(ctx context.Context, tickers []string, start, end time.Time) (map[string]domain.PriceSeries, error) {
	log := logger.FromContext(ctx)

	out := map[string]domain.PriceSeries{}
	misses := []string{}
	for _, ticker := range tickers {
		covered, err := p.covers(ctx, ticker, start, end)
		if err != nil {
			return nil, err
		}
		if !covered {
			misses = append(misses, ticker)
			continue
		}
		series, err := p.Repo.List(ctx, ticker, start, end)
		if err != nil {
			return nil, err
		}
		out[ticker] = *series
	}

	if len(misses) == 0 {
		return out, nil
	}

	log.Infow("price cache misses, fetching upstream", "symbols", misses)
	fetched, err := p.Inner.GetPrices(ctx, misses, start, end)
	if err != nil {
		return nil, err
	}
	for ticker, series := range fetched {
		if err := p.Repo.Add(ctx, series); err != nil {
			// a failed cache write shouldn't fail the request
			log.Warnw("failed to cache prices", "symbol", ticker, "error", err)
		}
		out[ticker] = series
	}

	return out, nil
}

func (p CachedProvider) covers(ctx context.Context, symbol string, start, end time.Time) (bool, error) {
	first, last, err := p.Repo.Span(ctx, symbol)
	if err != nil {
		return false, err
	}
	if first.IsZero() {
		return false, nil
	}
	return !first.After(start.Add(coverageSlack)) && !last.Before(end.Add(-coverageSlack)), nil
}
