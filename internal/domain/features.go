package domain

import "time"

// FeatureVector holds the four approved risk metrics. The schema is
// closed: nothing may be added to or dropped from this record without
// bumping the model schema version.
type FeatureVector struct {
	AnnualizedVolatility float64 `json:"Annualized_Volatility"`
	HistoricalVaR95      float64 `json:"Historical_VaR_95"`
	MaximumDrawdown      float64 `json:"Maximum_Drawdown"`
	DiversificationRatio float64 `json:"Diversification_Ratio"`
}

// FeatureNames is the canonical feature ordering. Persisted models record
// this list and predictions verify it before touching the classifier.
func FeatureNames() []string {
	return []string{
		"Annualized_Volatility",
		"Historical_VaR_95",
		"Maximum_Drawdown",
		"Diversification_Ratio",
	}
}

// Values returns the metrics in FeatureNames order.
func (f FeatureVector) Values() []float64 {
	return []float64{
		f.AnnualizedVolatility,
		f.HistoricalVaR95,
		f.MaximumDrawdown,
		f.DiversificationRatio,
	}
}

type RiskClass string

const (
	RiskLow    RiskClass = "Low"
	RiskMedium RiskClass = "Medium"
	RiskHigh   RiskClass = "High"
)

// RiskClasses lists every class in ascending-severity order.
func RiskClasses() []RiskClass {
	return []RiskClass{RiskLow, RiskMedium, RiskHigh}
}

func (r RiskClass) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// LabeledExample is one row of the training panel: the features computed
// over a rolling window plus the rule-derived ground-truth class.
type LabeledExample struct {
	PortfolioID string
	WindowStart time.Time
	WindowEnd   time.Time
	Features    FeatureVector
	Label       RiskClass
}

type PredictionResult struct {
	Class         RiskClass
	Features      FeatureVector
	Probabilities map[RiskClass]float64
}
