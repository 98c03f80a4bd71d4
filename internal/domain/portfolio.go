package domain

import (
	"math"
	"sort"
)

// WeightSumTolerance is how far Σweights may drift from 1.0 before we
// reject the portfolio instead of silently normalizing it.
const WeightSumTolerance = 1e-6

type Holding struct {
	Ticker string  `json:"ticker"`
	Weight float64 `json:"weight"`
}

// Portfolio is a weighted set of holdings. Ordering of the slice carries
// no meaning; weights must sum to 1 within WeightSumTolerance.
type Portfolio struct {
	Holdings []Holding
}

func NewPortfolio(holdings []Holding) Portfolio {
	return Portfolio{Holdings: holdings}
}

// Validate checks the weight invariants. It never mutates the portfolio.
func (p Portfolio) Validate() error {
	if len(p.Holdings) == 0 {
		return WeightValidationError{Reason: "portfolio has no holdings"}
	}
	seen := map[string]bool{}
	total := 0.0
	for _, h := range p.Holdings {
		if h.Ticker == "" {
			return WeightValidationError{Reason: "holding has empty ticker"}
		}
		if seen[h.Ticker] {
			return WeightValidationError{Reason: "duplicate ticker " + h.Ticker}
		}
		seen[h.Ticker] = true
		if h.Weight < 0 || math.IsNaN(h.Weight) {
			return WeightValidationError{Reason: "negative or NaN weight for " + h.Ticker}
		}
		total += h.Weight
	}
	if math.Abs(total-1) > WeightSumTolerance {
		return WeightValidationError{Reason: "weights must sum to 1", WeightSum: total}
	}
	return nil
}

// Weights returns the ticker -> weight mapping.
func (p Portfolio) Weights() map[string]float64 {
	weights := map[string]float64{}
	for _, h := range p.Holdings {
		weights[h.Ticker] = h.Weight
	}
	return weights
}

// Tickers returns the constituent tickers in sorted order, so that
// downstream arithmetic never depends on how the holdings were listed.
func (p Portfolio) Tickers() []string {
	tickers := []string{}
	for _, h := range p.Holdings {
		tickers = append(tickers, h.Ticker)
	}
	sort.Strings(tickers)
	return tickers
}
