package trainer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"quantshield/internal/classifier"
	"quantshield/internal/domain"
	"quantshield/internal/logger"
)

const (
	DefaultFolds        = 5
	DefaultMinTrainSize = 10
	DefaultMinTestSize  = 2
)

type FoldReport struct {
	Fold        int
	TrainSize   int
	TestSize    int
	TrainEnd    time.Time
	TestStart   time.Time
	TestEnd     time.Time
	Accuracy    float64
	ClassRecall map[domain.RiskClass]float64
}

type ValidationReport struct {
	Folds        []FoldReport
	MeanAccuracy float64
	TotalSamples int
}

// WalkForwardTrainer validates a classifier on chronologically ordered
// expanding-window splits, then fits the final model on the full history.
// Every fold's training block ends strictly before its test block begins,
// so no future information ever leaks into a fit. Folds run in fixed
// order; a single fold failure aborts the whole run rather than shipping
// a partially validated model.
//
// Not safe to run concurrently against the same artifact path; callers
// must serialize training runs.
type WalkForwardTrainer struct {
	Folds        int
	MinTrainSize int
	MinTestSize  int
	Classifier   classifier.Classifier
}

func NewWalkForwardTrainer(folds, minTrainSize, minTestSize int, clf classifier.Classifier) WalkForwardTrainer {
	if folds <= 0 {
		folds = DefaultFolds
	}
	if minTrainSize <= 0 {
		minTrainSize = DefaultMinTrainSize
	}
	if minTestSize <= 0 {
		minTestSize = DefaultMinTestSize
	}
	return WalkForwardTrainer{
		Folds:        folds,
		MinTrainSize: minTrainSize,
		MinTestSize:  minTestSize,
		Classifier:   clf,
	}
}

type split struct {
	trainEnd  int // exclusive
	testStart int
	testEnd   int // exclusive
}

// Train runs the full walk-forward procedure and returns the final model
// plus the per-fold validation report.
func (t WalkForwardTrainer) Train(ctx context.Context, examples []domain.LabeledExample) (*classifier.TrainedModel, *ValidationReport, error) {
	log := logger.FromContext(ctx)

	required := t.Folds * (t.MinTrainSize + t.MinTestSize)
	if len(examples) < required {
		return nil, nil, domain.InsufficientHistoryError{
			Observations: len(examples),
			Required:     required,
		}
	}

	sorted := make([]domain.LabeledExample, len(examples))
	copy(sorted, examples)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].WindowEnd.Equal(sorted[j].WindowEnd) {
			return sorted[i].WindowEnd.Before(sorted[j].WindowEnd)
		}
		return sorted[i].PortfolioID < sorted[j].PortfolioID
	})

	splits, err := t.splits(sorted)
	if err != nil {
		return nil, nil, err
	}

	report := &ValidationReport{TotalSamples: len(sorted)}
	accuracySum := 0.0
	for i, s := range splits {
		train := sorted[:s.trainEnd]
		test := sorted[s.testStart:s.testEnd]

		model, err := t.Classifier.Fit(train)
		if err != nil {
			return nil, nil, fmt.Errorf("fold %d fit failed, aborting training run: %w", i+1, err)
		}

		fold, err := t.evaluate(i+1, model, train, test)
		if err != nil {
			return nil, nil, fmt.Errorf("fold %d evaluation failed: %w", i+1, err)
		}

		log.Infow("walk-forward fold complete",
			"fold", fold.Fold,
			"trainSize", fold.TrainSize,
			"testSize", fold.TestSize,
			"accuracy", fold.Accuracy,
		)

		report.Folds = append(report.Folds, *fold)
		accuracySum += fold.Accuracy
	}
	report.MeanAccuracy = accuracySum / float64(len(splits))

	log.Infow("refitting on full history", "samples", len(sorted))
	final, err := t.Classifier.Fit(sorted)
	if err != nil {
		return nil, nil, fmt.Errorf("final fit failed: %w", err)
	}

	return final, report, nil
}

// splits produces expanding-window folds with contiguous, non-overlapping
// test blocks that move forward in time. Examples whose window end ties
// the last training observation are pulled into the training side, so the
// strict train-before-test boundary holds even with tied timestamps.
func (t WalkForwardTrainer) splits(sorted []domain.LabeledExample) ([]split, error) {
	n := len(sorted)
	testSize := n / (t.Folds + 1)
	firstTrain := n - t.Folds*testSize

	if testSize < t.MinTestSize || firstTrain < t.MinTrainSize {
		return nil, domain.InsufficientHistoryError{
			Observations: n,
			Required:     t.Folds * (t.MinTrainSize + t.MinTestSize),
		}
	}

	splits := make([]split, 0, t.Folds)
	for i := 0; i < t.Folds; i++ {
		s := split{
			trainEnd: firstTrain + i*testSize,
			testEnd:  firstTrain + (i+1)*testSize,
		}
		for s.trainEnd < s.testEnd &&
			sorted[s.trainEnd].WindowEnd.Equal(sorted[s.trainEnd-1].WindowEnd) {
			s.trainEnd++
		}
		s.testStart = s.trainEnd
		if s.testStart == s.testEnd {
			return nil, domain.InsufficientHistoryError{
				Observations: n,
				Required:     t.Folds * (t.MinTrainSize + t.MinTestSize),
			}
		}
		splits = append(splits, s)
	}
	return splits, nil
}

func (t WalkForwardTrainer) evaluate(fold int, model *classifier.TrainedModel, train, test []domain.LabeledExample) (*FoldReport, error) {
	correct := 0
	perClassTotal := map[domain.RiskClass]int{}
	perClassCorrect := map[domain.RiskClass]int{}

	for _, ex := range test {
		prediction, err := t.Classifier.Predict(model, ex.Features)
		if err != nil {
			return nil, err
		}
		perClassTotal[ex.Label]++
		if prediction.Class == ex.Label {
			correct++
			perClassCorrect[ex.Label]++
		}
	}

	recall := map[domain.RiskClass]float64{}
	for class, total := range perClassTotal {
		recall[class] = float64(perClassCorrect[class]) / float64(total)
	}

	return &FoldReport{
		Fold:        fold,
		TrainSize:   len(train),
		TestSize:    len(test),
		TrainEnd:    train[len(train)-1].WindowEnd,
		TestStart:   test[0].WindowEnd,
		TestEnd:     test[len(test)-1].WindowEnd,
		Accuracy:    float64(correct) / float64(len(test)),
		ClassRecall: recall,
	}, nil
}
