package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PricePoint struct {
	Date  time.Time
	Price decimal.Decimal
}

// PriceSeries is an ordered sequence of adjusted closing prices for one
// ticker. Dates must be strictly increasing with no duplicates.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

func (s PriceSeries) Validate() error {
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Date.After(s.Points[i-1].Date) {
			return fmt.Errorf(
				"price series for %s is not strictly increasing at %s",
				s.Symbol,
				s.Points[i].Date.Format(time.DateOnly),
			)
		}
	}
	return nil
}

// Returns derives simple daily returns: r_t = p_t / p_{t-1} - 1. The
// result is one observation shorter than the price series.
func (s PriceSeries) Returns() (ReturnSeries, error) {
	if err := s.Validate(); err != nil {
		return ReturnSeries{}, err
	}
	rs := ReturnSeries{Symbol: s.Symbol}
	for i := 1; i < len(s.Points); i++ {
		prev := s.Points[i-1].Price
		if prev.IsZero() {
			return ReturnSeries{}, fmt.Errorf(
				"zero price for %s on %s",
				s.Symbol,
				s.Points[i-1].Date.Format(time.DateOnly),
			)
		}
		ret := s.Points[i].Price.Sub(prev).Div(prev).InexactFloat64()
		rs.Points = append(rs.Points, ReturnPoint{
			Date:   s.Points[i].Date,
			Return: ret,
		})
	}
	return rs, nil
}

type ReturnPoint struct {
	Date   time.Time
	Return float64
}

// ReturnSeries is an ordered sequence of simple daily returns. It is used
// both for single constituents and for the weighted portfolio series.
type ReturnSeries struct {
	Symbol string
	Points []ReturnPoint
}

func (s ReturnSeries) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Return
	}
	return values
}

func (s ReturnSeries) Dates() []time.Time {
	dates := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		dates[i] = p.Date
	}
	return dates
}

// Tail returns the most recent n observations, or the whole series if it
// holds fewer than n.
func (s ReturnSeries) Tail(n int) ReturnSeries {
	if n >= len(s.Points) {
		return s
	}
	return ReturnSeries{Symbol: s.Symbol, Points: s.Points[len(s.Points)-n:]}
}
