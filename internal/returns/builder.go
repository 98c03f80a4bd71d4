package returns

import (
	"fmt"
	"sort"
	"time"

	"quantshield/internal/domain"
)

const DefaultMinObservations = 60

// Builder reconstructs a single weighted portfolio return series from
// per-ticker price series. It is a pure computation shared by the trainer
// and the inference path; the two must never diverge.
type Builder struct {
	MinObservations int
}

func NewBuilder(minObservations int) Builder {
	if minObservations <= 0 {
		minObservations = DefaultMinObservations
	}
	return Builder{MinObservations: minObservations}
}

// Result carries the weighted portfolio series plus the aligned
// constituent series, which the diversification ratio needs.
type Result struct {
	Portfolio    domain.ReturnSeries
	Constituents map[string]domain.ReturnSeries
	Weights      map[string]float64
}

// Build validates the portfolio, derives per-ticker daily returns, inner
// joins them on trading dates and computes Σ(w_i * r_i) per date. Dates
// missing for any ticker are dropped entirely, never imputed.
func (b Builder) Build(portfolio domain.Portfolio, prices map[string]domain.PriceSeries) (*Result, error) {
	if err := portfolio.Validate(); err != nil {
		return nil, err
	}

	weights := portfolio.Weights()
	tickers := portfolio.Tickers()

	constituentReturns := map[string]domain.ReturnSeries{}
	for _, ticker := range tickers {
		series, ok := prices[ticker]
		if !ok {
			return nil, fmt.Errorf("no price series provided for %s", ticker)
		}
		rs, err := series.Returns()
		if err != nil {
			return nil, fmt.Errorf("failed to compute returns for %s: %w", ticker, err)
		}
		constituentReturns[ticker] = rs
	}

	dates := intersectDates(tickers, constituentReturns)
	if len(dates) < b.MinObservations {
		return nil, domain.DataAlignmentError{
			Observations:    len(dates),
			MinObservations: b.MinObservations,
		}
	}

	// index each constituent by date, then re-emit aligned series so every
	// output series shares the same date axis
	byDate := map[string]map[time.Time]float64{}
	for ticker, rs := range constituentReturns {
		byDate[ticker] = map[time.Time]float64{}
		for _, p := range rs.Points {
			byDate[ticker][p.Date] = p.Return
		}
	}

	result := &Result{
		Portfolio:    domain.ReturnSeries{Symbol: "PORTFOLIO"},
		Constituents: map[string]domain.ReturnSeries{},
		Weights:      weights,
	}
	for _, ticker := range tickers {
		result.Constituents[ticker] = domain.ReturnSeries{Symbol: ticker}
	}

	for _, date := range dates {
		weighted := 0.0
		// tickers are sorted, so the summation order is stable regardless
		// of how the holdings were listed
		for _, ticker := range tickers {
			r := byDate[ticker][date]
			weighted += weights[ticker] * r
			aligned := result.Constituents[ticker]
			aligned.Points = append(aligned.Points, domain.ReturnPoint{Date: date, Return: r})
			result.Constituents[ticker] = aligned
		}
		result.Portfolio.Points = append(result.Portfolio.Points, domain.ReturnPoint{
			Date:   date,
			Return: weighted,
		})
	}

	return result, nil
}

func intersectDates(tickers []string, series map[string]domain.ReturnSeries) []time.Time {
	counts := map[time.Time]int{}
	for _, ticker := range tickers {
		for _, p := range series[ticker].Points {
			counts[p.Date]++
		}
	}

	dates := []time.Time{}
	for date, n := range counts {
		if n == len(tickers) {
			dates = append(dates, date)
		}
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates
}
