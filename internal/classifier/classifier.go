package classifier

import (
	"fmt"

	"quantshield/internal/domain"
)

// SchemaVersion ties a persisted model to the exact feature definition it
// was trained against. Bump it whenever the feature set, ordering or any
// formula changes.
const SchemaVersion = 1

// TrainedModel is the immutable artifact a fit produces. Parameters is an
// opaque algorithm-specific blob; nothing outside the owning classifier
// should interpret it. Retraining produces a new artifact, never mutates
// an existing one.
type TrainedModel struct {
	SchemaVersion int
	Algorithm     string
	FeatureNames  []string
	LabelEncoding map[domain.RiskClass]int
	Parameters    []byte
}

// Classifier is the fixed fit/predict contract the pipeline programs
// against. Concrete algorithms are selected at construction time and stay
// invisible downstream.
type Classifier interface {
	Fit(examples []domain.LabeledExample) (*TrainedModel, error)
	Predict(model *TrainedModel, features domain.FeatureVector) (*domain.PredictionResult, error)
}

const AlgorithmSoftmax = "softmax_regression"

type Options struct {
	Seed         int64
	LearningRate float64
	Iterations   int
	L2Penalty    float64
}

func New(algorithm string, opts Options) (Classifier, error) {
	switch algorithm {
	case AlgorithmSoftmax, "":
		return newSoftmaxClassifier(opts), nil
	}
	return nil, fmt.Errorf("unknown classifier algorithm %q", algorithm)
}

// labelEncoding is the canonical RiskClass -> code mapping baked into
// every artifact.
func labelEncoding() map[domain.RiskClass]int {
	return map[domain.RiskClass]int{
		domain.RiskLow:    0,
		domain.RiskMedium: 1,
		domain.RiskHigh:   2,
	}
}

// checkSchema rejects a model whose feature definition does not match
// what this binary computes. Mismatched features must never silently
// flow into a prediction.
func checkSchema(model *TrainedModel) error {
	if model.SchemaVersion != SchemaVersion {
		return domain.SchemaVersionMismatchError{
			ModelVersion:    model.SchemaVersion,
			ExpectedVersion: SchemaVersion,
		}
	}
	expected := domain.FeatureNames()
	if len(model.FeatureNames) != len(expected) {
		return domain.SchemaVersionMismatchError{
			ModelVersion:    model.SchemaVersion,
			ExpectedVersion: SchemaVersion,
			Detail:          fmt.Sprintf("model has %d features, expected %d", len(model.FeatureNames), len(expected)),
		}
	}
	for i, name := range expected {
		if model.FeatureNames[i] != name {
			return domain.SchemaVersionMismatchError{
				ModelVersion:    model.SchemaVersion,
				ExpectedVersion: SchemaVersion,
				Detail:          fmt.Sprintf("feature %d is %q, expected %q", i, model.FeatureNames[i], name),
			}
		}
	}
	return nil
}
