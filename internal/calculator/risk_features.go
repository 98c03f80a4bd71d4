package calculator

import (
	"math"
	"sort"

	"quantshield/internal/domain"

	"github.com/montanaflynn/stats"
)

const TradingDaysPerYear = 252

// Engineer computes the four approved risk metrics from a portfolio
// return series. Same inputs always produce bit-identical outputs; there
// is no randomness anywhere in here.
type Engineer struct{}

func NewEngineer() Engineer {
	return Engineer{}
}

// ComputeFeatures computes the full feature vector. Constituents and
// weights are required for the diversification ratio and must already be
// aligned on the portfolio's date axis.
func (e Engineer) ComputeFeatures(
	portfolio domain.ReturnSeries,
	constituents map[string]domain.ReturnSeries,
	weights map[string]float64,
) (*domain.FeatureVector, error) {
	values := portfolio.Values()
	if len(values) < 2 {
		return nil, domain.DegenerateInputError{Reason: "fewer than 2 return observations"}
	}

	dailyVol, err := stats.StandardDeviationSample(values)
	if err != nil {
		return nil, err
	}

	varValue, err := e.HistoricalVaR95(values)
	if err != nil {
		return nil, err
	}

	divRatio, err := e.DiversificationRatio(dailyVol, constituents, weights)
	if err != nil {
		return nil, err
	}

	return &domain.FeatureVector{
		AnnualizedVolatility: dailyVol * math.Sqrt(TradingDaysPerYear),
		HistoricalVaR95:      varValue,
		MaximumDrawdown:      e.MaxDrawdown(values),
		DiversificationRatio: divRatio,
	}, nil
}

// HistoricalVaR95 is the negated empirical 5th percentile of daily
// returns, reported as a non-negative loss magnitude.
func (e Engineer) HistoricalVaR95(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, domain.DegenerateInputError{Reason: "fewer than 2 return observations"}
	}
	return math.Abs(quantile(values, 0.05)), nil
}

// MaxDrawdown is the deepest peak-to-trough decline of cumulative wealth,
// with wealth starting at 1. Always <= 0; exactly 0 when cumulative
// wealth never dips below a prior peak.
func (e Engineer) MaxDrawdown(values []float64) float64 {
	wealth := 1.0
	peak := 1.0
	maxDrawdown := 0.0
	for _, r := range values {
		wealth *= 1 + r
		if wealth > peak {
			peak = wealth
		}
		drawdown := (wealth - peak) / peak
		if drawdown < maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// DiversificationRatio is the weighted average of constituent volatilities
// over the portfolio volatility, both as sample stdevs of daily returns.
func (e Engineer) DiversificationRatio(
	portfolioVol float64,
	constituents map[string]domain.ReturnSeries,
	weights map[string]float64,
) (float64, error) {
	if portfolioVol == 0 {
		return 0, domain.DegenerateInputError{Reason: "portfolio volatility is zero"}
	}

	// iterate in sorted ticker order so the sum never depends on map order
	tickers := make([]string, 0, len(weights))
	for ticker := range weights {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	weightedVol := 0.0
	for _, ticker := range tickers {
		series, ok := constituents[ticker]
		if !ok {
			return 0, domain.DegenerateInputError{Reason: "missing constituent returns for " + ticker}
		}
		vol, err := stats.StandardDeviationSample(series.Values())
		if err != nil {
			return 0, err
		}
		weightedVol += weights[ticker] * vol
	}

	return weightedVol / portfolioVol, nil
}

// quantile computes the q-th empirical quantile with linear interpolation
// between order statistics (the same scheme numpy's percentile defaults
// to). The stats package's Percentile rounds to a rank instead of
// interpolating, which breaks the VaR contract on short series.
func quantile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
