package classifier

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"quantshield/internal/domain"

	"github.com/stretchr/testify/require"
)

// syntheticExamples builds a separable three-cluster dataset around
// typical Low/Medium/High metric profiles.
func syntheticExamples(perClass int) []domain.LabeledExample {
	rng := rand.New(rand.NewSource(7))
	centroids := map[domain.RiskClass]domain.FeatureVector{
		domain.RiskLow:    {AnnualizedVolatility: 0.08, HistoricalVaR95: 0.006, MaximumDrawdown: -0.05, DiversificationRatio: 1.5},
		domain.RiskMedium: {AnnualizedVolatility: 0.16, HistoricalVaR95: 0.018, MaximumDrawdown: -0.18, DiversificationRatio: 1.2},
		domain.RiskHigh:   {AnnualizedVolatility: 0.32, HistoricalVaR95: 0.045, MaximumDrawdown: -0.38, DiversificationRatio: 1.05},
	}

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	examples := []domain.LabeledExample{}
	i := 0
	for _, class := range domain.RiskClasses() {
		c := centroids[class]
		for j := 0; j < perClass; j++ {
			examples = append(examples, domain.LabeledExample{
				PortfolioID: string(class),
				WindowStart: start.AddDate(0, 0, i),
				WindowEnd:   start.AddDate(0, 0, i+126),
				Features: domain.FeatureVector{
					AnnualizedVolatility: c.AnnualizedVolatility * (1 + 0.05*rng.NormFloat64()),
					HistoricalVaR95:      c.HistoricalVaR95 * (1 + 0.05*rng.NormFloat64()),
					MaximumDrawdown:      c.MaximumDrawdown * (1 + 0.05*rng.NormFloat64()),
					DiversificationRatio: c.DiversificationRatio * (1 + 0.02*rng.NormFloat64()),
				},
				Label: class,
			})
			i++
		}
	}
	return examples
}

func Test_SoftmaxFitPredict(t *testing.T) {
	clf, err := New(AlgorithmSoftmax, Options{Seed: 42})
	require.NoError(t, err)

	examples := syntheticExamples(20)
	model, err := clf.Fit(examples)
	require.NoError(t, err)

	require.Equal(t, SchemaVersion, model.SchemaVersion)
	require.Equal(t, domain.FeatureNames(), model.FeatureNames)

	t.Run("separable clusters classify correctly", func(t *testing.T) {
		correct := 0
		for _, ex := range examples {
			prediction, err := clf.Predict(model, ex.Features)
			require.NoError(t, err)
			if prediction.Class == ex.Label {
				correct++
			}
		}
		require.GreaterOrEqual(t, float64(correct)/float64(len(examples)), 0.9)
	})

	t.Run("probabilities sum to 1", func(t *testing.T) {
		prediction, err := clf.Predict(model, examples[0].Features)
		require.NoError(t, err)

		sum := 0.0
		for _, p := range prediction.Probabilities {
			require.GreaterOrEqual(t, p, 0.0)
			sum += p
		}
		require.InDelta(t, 1.0, sum, 1e-9)
	})

	t.Run("fit is deterministic for a fixed seed", func(t *testing.T) {
		clf2, err := New(AlgorithmSoftmax, Options{Seed: 42})
		require.NoError(t, err)
		model2, err := clf2.Fit(examples)
		require.NoError(t, err)
		require.Equal(t, model.Parameters, model2.Parameters)
	})
}

func Test_InsufficientLabels(t *testing.T) {
	clf, err := New(AlgorithmSoftmax, Options{Seed: 1})
	require.NoError(t, err)

	examples := syntheticExamples(5)
	noHigh := []domain.LabeledExample{}
	for _, ex := range examples {
		if ex.Label != domain.RiskHigh {
			noHigh = append(noHigh, ex)
		}
	}

	_, err = clf.Fit(noHigh)
	require.Error(t, err)
	labelErr, ok := err.(domain.InsufficientLabelsError)
	require.True(t, ok)
	require.Equal(t, domain.RiskHigh, labelErr.MissingClass)
}

func Test_SchemaChecks(t *testing.T) {
	clf, err := New(AlgorithmSoftmax, Options{Seed: 1})
	require.NoError(t, err)

	model, err := clf.Fit(syntheticExamples(5))
	require.NoError(t, err)

	t.Run("version mismatch", func(t *testing.T) {
		stale := *model
		stale.SchemaVersion = SchemaVersion + 1
		_, err := clf.Predict(&stale, domain.FeatureVector{})
		require.IsType(t, domain.SchemaVersionMismatchError{}, err)
	})

	t.Run("feature order mismatch", func(t *testing.T) {
		reordered := *model
		reordered.FeatureNames = []string{
			"Historical_VaR_95",
			"Annualized_Volatility",
			"Maximum_Drawdown",
			"Diversification_Ratio",
		}
		_, err := clf.Predict(&reordered, domain.FeatureVector{})
		require.IsType(t, domain.SchemaVersionMismatchError{}, err)
	})
}

func Test_PredictFiniteProbabilities(t *testing.T) {
	clf, err := New(AlgorithmSoftmax, Options{Seed: 1})
	require.NoError(t, err)
	model, err := clf.Fit(syntheticExamples(5))
	require.NoError(t, err)

	// extreme but finite inputs must not produce NaNs
	prediction, err := clf.Predict(model, domain.FeatureVector{
		AnnualizedVolatility: 5,
		HistoricalVaR95:      1,
		MaximumDrawdown:      -0.99,
		DiversificationRatio: 1,
	})
	require.NoError(t, err)
	for _, p := range prediction.Probabilities {
		require.False(t, math.IsNaN(p))
	}
}
