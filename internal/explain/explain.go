package explain

import (
	"fmt"
	"math"

	"quantshield/internal/domain"
)

// Generator turns a prediction into plain-language text. The core treats
// it as a black box; this implementation is a fixed template, so the same
// inputs always give the same sentence.
type Generator interface {
	Explain(features domain.FeatureVector, class domain.RiskClass) string
}

type templateGenerator struct{}

func NewGenerator() Generator {
	return templateGenerator{}
}

func (templateGenerator) Explain(f domain.FeatureVector, class domain.RiskClass) string {
	return fmt.Sprintf(
		"Based on its past performance, this portfolio is currently considered %s risk. "+
			"On average, its value goes up or down by about %.2f%% each year. "+
			"Looking at bad market days in the past, a typical 'worst-case' daily drop has been around %.2f%%. "+
			"The biggest overall drop it ever took from a high point to a low point was %.2f%%. "+
			"It has a diversification score of %.2f - a higher score means your eggs are better spread "+
			"across different baskets, which helps lower your overall risk.",
		string(class),
		f.AnnualizedVolatility*100,
		f.HistoricalVaR95*100,
		math.Abs(f.MaximumDrawdown)*100,
		f.DiversificationRatio,
	)
}
