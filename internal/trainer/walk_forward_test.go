package trainer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"quantshield/internal/classifier"
	"quantshield/internal/domain"

	"github.com/stretchr/testify/require"
)

// stubClassifier lets the split/abort behavior be tested without a real
// fit in the loop.
type stubClassifier struct {
	fitErr   error
	fitCalls int
}

func (s *stubClassifier) Fit(examples []domain.LabeledExample) (*classifier.TrainedModel, error) {
	s.fitCalls++
	if s.fitErr != nil {
		return nil, s.fitErr
	}
	return &classifier.TrainedModel{
		SchemaVersion: classifier.SchemaVersion,
		Algorithm:     "stub",
		FeatureNames:  domain.FeatureNames(),
	}, nil
}

func (s *stubClassifier) Predict(model *classifier.TrainedModel, features domain.FeatureVector) (*domain.PredictionResult, error) {
	return &domain.PredictionResult{
		Class:    domain.RiskMedium,
		Features: features,
		Probabilities: map[domain.RiskClass]float64{
			domain.RiskLow: 0.2, domain.RiskMedium: 0.6, domain.RiskHigh: 0.2,
		},
	}, nil
}

// orderedExamples cycles the classes over consecutive window ends so any
// chronological prefix of reasonable size covers all three labels.
func orderedExamples(n int) []domain.LabeledExample {
	classes := domain.RiskClasses()
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	profiles := map[domain.RiskClass]domain.FeatureVector{
		domain.RiskLow:    {AnnualizedVolatility: 0.08, HistoricalVaR95: 0.006, MaximumDrawdown: -0.05, DiversificationRatio: 1.5},
		domain.RiskMedium: {AnnualizedVolatility: 0.16, HistoricalVaR95: 0.018, MaximumDrawdown: -0.18, DiversificationRatio: 1.2},
		domain.RiskHigh:   {AnnualizedVolatility: 0.32, HistoricalVaR95: 0.045, MaximumDrawdown: -0.38, DiversificationRatio: 1.05},
	}

	examples := make([]domain.LabeledExample, n)
	for i := 0; i < n; i++ {
		class := classes[i%len(classes)]
		f := profiles[class]
		// tiny per-example drift keeps features distinct without
		// crossing class boundaries
		f.AnnualizedVolatility += 0.0001 * float64(i)
		examples[i] = domain.LabeledExample{
			PortfolioID: fmt.Sprintf("P%d", i%2),
			WindowStart: start.AddDate(0, 0, i*21),
			WindowEnd:   start.AddDate(0, 0, i*21+126),
			Features:    f,
			Label:       class,
		}
	}
	return examples
}

func Test_WalkForwardChronology(t *testing.T) {
	stub := &stubClassifier{}
	wf := NewWalkForwardTrainer(3, 5, 2, stub)

	examples := orderedExamples(36)
	_, report, err := wf.Train(context.Background(), examples)
	require.NoError(t, err)
	require.Len(t, report.Folds, 3)

	// K per-fold fits plus the final refit
	require.Equal(t, 4, stub.fitCalls)

	for i, fold := range report.Folds {
		// train strictly precedes test
		require.True(
			t,
			fold.TrainEnd.Before(fold.TestStart),
			"fold %d: train end %v not before test start %v", i+1, fold.TrainEnd, fold.TestStart,
		)

		// test blocks move forward without overlapping
		if i > 0 {
			require.True(t, report.Folds[i-1].TestEnd.Before(fold.TestStart))
		}

		// expanding training window
		if i > 0 {
			require.Greater(t, fold.TrainSize, report.Folds[i-1].TrainSize)
		}
	}
}

func Test_WalkForwardInsufficientHistory(t *testing.T) {
	wf := NewWalkForwardTrainer(5, 10, 2, &stubClassifier{})

	_, _, err := wf.Train(context.Background(), orderedExamples(30))
	require.Error(t, err)

	histErr, ok := err.(domain.InsufficientHistoryError)
	require.True(t, ok)
	require.Equal(t, 30, histErr.Observations)
	require.Equal(t, 60, histErr.Required)
}

func Test_WalkForwardAbortsOnFoldFailure(t *testing.T) {
	stub := &stubClassifier{fitErr: fmt.Errorf("boom")}
	wf := NewWalkForwardTrainer(3, 5, 2, stub)

	_, _, err := wf.Train(context.Background(), orderedExamples(36))
	require.Error(t, err)
	require.Contains(t, err.Error(), "fold 1")
	// the run stops at the first failed fold
	require.Equal(t, 1, stub.fitCalls)
}

func Test_WalkForwardWithRealClassifier(t *testing.T) {
	clf, err := classifier.New(classifier.AlgorithmSoftmax, classifier.Options{Seed: 42})
	require.NoError(t, err)

	wf := NewWalkForwardTrainer(4, 10, 2, clf)
	examples := orderedExamples(60)

	model, report, err := wf.Train(context.Background(), examples)
	require.NoError(t, err)
	require.NotNil(t, model)
	require.Equal(t, classifier.SchemaVersion, model.SchemaVersion)
	require.Equal(t, 60, report.TotalSamples)

	// clusters are cleanly separated, validation should be near perfect
	require.GreaterOrEqual(t, report.MeanAccuracy, 0.8)
	for _, fold := range report.Folds {
		for class, recall := range fold.ClassRecall {
			require.GreaterOrEqual(t, recall, 0.0, "class %s", class)
			require.LessOrEqual(t, recall, 1.0, "class %s", class)
		}
	}
}
