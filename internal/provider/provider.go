package provider

import (
	"context"
	"time"

	"quantshield/internal/domain"
)

//go:generate mockgen -source=provider.go -destination=mocks/price_provider.go -package=mock_provider

// PriceProvider supplies adjusted price series per ticker for a date
// range. The pipeline treats implementations as opaque: anything that
// can return clean series qualifies, whether a live market-data API or a
// local cache.
type PriceProvider interface {
	GetPrices(ctx context.Context, tickers []string, start, end time.Time) (map[string]domain.PriceSeries, error)
}
