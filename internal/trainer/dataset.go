package trainer

import (
	"fmt"
	"math"

	"quantshield/internal/calculator"
	"quantshield/internal/domain"
	"quantshield/internal/returns"
)

const (
	DefaultWindowLength = 126 // ~6 months of trading days
	DefaultStepSize     = 21  // ~1 month
)

// LabelThresholds is the injected rule that converts a feature vector
// into a ground-truth risk class during training-set construction. The
// bands are configuration, deliberately not hardcoded in the pipeline.
type LabelThresholds struct {
	LowVolBelow       float64 `yaml:"low_vol_below" default:"0.12"`
	LowDrawdownBelow  float64 `yaml:"low_drawdown_below" default:"0.15"`
	HighVolAbove      float64 `yaml:"high_vol_above" default:"0.20"`
	HighDrawdownAbove float64 `yaml:"high_drawdown_above" default:"0.25"`
	HighVaRAbove      float64 `yaml:"high_var_above" default:"0.03"`
}

// Label buckets a feature vector into Low/Medium/High. Drawdown bands
// compare magnitudes; the stored feature itself is <= 0.
func (t LabelThresholds) Label(f domain.FeatureVector) domain.RiskClass {
	drawdown := math.Abs(f.MaximumDrawdown)
	if f.AnnualizedVolatility < t.LowVolBelow && drawdown < t.LowDrawdownBelow {
		return domain.RiskLow
	}
	if f.AnnualizedVolatility > t.HighVolAbove ||
		drawdown > t.HighDrawdownAbove ||
		f.HistoricalVaR95 > t.HighVaRAbove {
		return domain.RiskHigh
	}
	return domain.RiskMedium
}

// DatasetBuilder walks rolling windows over reconstructed portfolio
// returns and emits one labeled example per window. It reuses the same
// feature engineer the serving path uses.
type DatasetBuilder struct {
	WindowLength int
	StepSize     int
	Engineer     calculator.Engineer
	Thresholds   LabelThresholds
}

func NewDatasetBuilder(windowLength, stepSize int, thresholds LabelThresholds) DatasetBuilder {
	if windowLength <= 0 {
		windowLength = DefaultWindowLength
	}
	if stepSize <= 0 {
		stepSize = DefaultStepSize
	}
	return DatasetBuilder{
		WindowLength: windowLength,
		StepSize:     stepSize,
		Engineer:     calculator.NewEngineer(),
		Thresholds:   thresholds,
	}
}

// BuildExamples slices the portfolio series into overlapping windows.
// The constituent series in result share the portfolio's date axis, so a
// window is the same index range everywhere.
func (b DatasetBuilder) BuildExamples(portfolioID string, result *returns.Result) ([]domain.LabeledExample, error) {
	n := len(result.Portfolio.Points)
	if n < b.WindowLength {
		return nil, fmt.Errorf(
			"portfolio %s has %d observations, need %d for one window",
			portfolioID, n, b.WindowLength,
		)
	}

	examples := []domain.LabeledExample{}
	for start := 0; start+b.WindowLength <= n; start += b.StepSize {
		end := start + b.WindowLength

		window := domain.ReturnSeries{
			Symbol: result.Portfolio.Symbol,
			Points: result.Portfolio.Points[start:end],
		}
		constituents := map[string]domain.ReturnSeries{}
		for ticker, series := range result.Constituents {
			constituents[ticker] = domain.ReturnSeries{
				Symbol: ticker,
				Points: series.Points[start:end],
			}
		}

		features, err := b.Engineer.ComputeFeatures(window, constituents, result.Weights)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to compute features for %s window starting %d: %w",
				portfolioID, start, err,
			)
		}

		examples = append(examples, domain.LabeledExample{
			PortfolioID: portfolioID,
			WindowStart: window.Points[0].Date,
			WindowEnd:   window.Points[len(window.Points)-1].Date,
			Features:    *features,
			Label:       b.Thresholds.Label(*features),
		})
	}

	return examples, nil
}
