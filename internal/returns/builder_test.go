package returns

import (
	"testing"
	"time"

	"quantshield/internal/domain"
	"quantshield/internal/util"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// seriesFromReturns builds a price series that reproduces the given daily
// returns, starting from 100 on the day before the first return.
func seriesFromReturns(symbol string, start time.Time, rets []float64) domain.PriceSeries {
	s := domain.PriceSeries{Symbol: symbol}
	price := 100.0
	s.Points = append(s.Points, domain.PricePoint{Date: start, Price: decimal.NewFromFloat(price)})
	for i, r := range rets {
		price *= 1 + r
		s.Points = append(s.Points, domain.PricePoint{
			Date:  start.AddDate(0, 0, i+1),
			Price: decimal.NewFromFloat(price),
		})
	}
	return s
}

func Test_Build(t *testing.T) {
	start := util.NewDate(2023, 1, 2)
	retsA := []float64{0.01, -0.02, 0.015, -0.01, 0.005}
	retsB := []float64{0.02, -0.01, 0.01, -0.02, 0.0}

	prices := map[string]domain.PriceSeries{
		"A": seriesFromReturns("A", start, retsA),
		"B": seriesFromReturns("B", start, retsB),
	}
	portfolio := domain.NewPortfolio([]domain.Holding{
		{Ticker: "A", Weight: 0.5},
		{Ticker: "B", Weight: 0.5},
	})

	t.Run("weighted portfolio returns", func(t *testing.T) {
		b := NewBuilder(5)
		result, err := b.Build(portfolio, prices)
		require.NoError(t, err)

		expected := []float64{0.015, -0.015, 0.0125, -0.015, 0.0025}
		require.Len(t, result.Portfolio.Points, len(expected))
		for i, want := range expected {
			require.InDelta(t, want, result.Portfolio.Points[i].Return, 1e-9)
		}

		// constituents come back aligned on the same date axis
		require.Equal(
			t,
			"",
			cmp.Diff(result.Portfolio.Dates(), result.Constituents["A"].Dates()),
		)
	})

	t.Run("holding order never changes the output", func(t *testing.T) {
		b := NewBuilder(5)
		reversed := domain.NewPortfolio([]domain.Holding{
			{Ticker: "B", Weight: 0.5},
			{Ticker: "A", Weight: 0.5},
		})

		r1, err := b.Build(portfolio, prices)
		require.NoError(t, err)
		r2, err := b.Build(reversed, prices)
		require.NoError(t, err)

		for i := range r1.Portfolio.Points {
			require.Equal(t, r1.Portfolio.Points[i].Return, r2.Portfolio.Points[i].Return)
		}
	})

	t.Run("invalid weights rejected before any computation", func(t *testing.T) {
		b := NewBuilder(5)
		bad := domain.NewPortfolio([]domain.Holding{
			{Ticker: "A", Weight: 0.6},
			{Ticker: "B", Weight: 0.6},
		})
		_, err := b.Build(bad, prices)
		require.IsType(t, domain.WeightValidationError{}, err)
	})

	t.Run("dates missing for one ticker are dropped entirely", func(t *testing.T) {
		b := NewBuilder(2)

		// B is missing the middle trading day
		gappy := map[string]domain.PriceSeries{
			"A": seriesFromReturns("A", start, []float64{0.01, 0.01, 0.01}),
			"B": {
				Symbol: "B",
				Points: []domain.PricePoint{
					{Date: start, Price: decimal.NewFromInt(50)},
					{Date: start.AddDate(0, 0, 1), Price: decimal.NewFromInt(51)},
					{Date: start.AddDate(0, 0, 3), Price: decimal.NewFromInt(52)},
				},
			},
		}

		result, err := b.Build(portfolio, gappy)
		require.NoError(t, err)

		expectedDates := []time.Time{
			start.AddDate(0, 0, 1),
			start.AddDate(0, 0, 3),
		}
		require.Equal(t, "", cmp.Diff(expectedDates, result.Portfolio.Dates()))
	})

	t.Run("too little overlap", func(t *testing.T) {
		b := NewBuilder(60)
		_, err := b.Build(portfolio, prices)
		require.Error(t, err)
		alignErr, ok := err.(domain.DataAlignmentError)
		require.True(t, ok)
		require.Equal(t, 5, alignErr.Observations)
		require.Equal(t, 60, alignErr.MinObservations)
	})

	t.Run("missing price series", func(t *testing.T) {
		b := NewBuilder(5)
		_, err := b.Build(portfolio, map[string]domain.PriceSeries{
			"A": prices["A"],
		})
		require.Error(t, err)
	})
}
