package domain

import "fmt"

// WeightValidationError rejects a portfolio whose weights are malformed.
// It is surfaced to the caller as-is, never normalized away.
type WeightValidationError struct {
	Reason    string
	WeightSum float64
}

func (e WeightValidationError) Error() string {
	if e.WeightSum != 0 {
		return fmt.Sprintf("invalid portfolio weights: %s (sum=%.6f)", e.Reason, e.WeightSum)
	}
	return fmt.Sprintf("invalid portfolio weights: %s", e.Reason)
}

// DataAlignmentError means the constituents' trading dates overlap on too
// few observations to build a portfolio return series.
type DataAlignmentError struct {
	Observations    int
	MinObservations int
}

func (e DataAlignmentError) Error() string {
	return fmt.Sprintf(
		"insufficient overlapping observations: got %d, need %d",
		e.Observations, e.MinObservations,
	)
}

// DegenerateInputError means a metric is undefined for the given series,
// e.g. fewer than two observations or zero portfolio volatility.
type DegenerateInputError struct {
	Reason string
}

func (e DegenerateInputError) Error() string {
	return "degenerate input: " + e.Reason
}

// SchemaVersionMismatchError means the loaded model was trained against a
// different feature definition than the one in this binary. Predicting
// through it would be numerically wrong, so the request fails instead.
type SchemaVersionMismatchError struct {
	ModelVersion    int
	ExpectedVersion int
	Detail          string
}

func (e SchemaVersionMismatchError) Error() string {
	msg := fmt.Sprintf(
		"model schema version %d does not match expected %d",
		e.ModelVersion, e.ExpectedVersion,
	)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// InsufficientHistoryError aborts a training run that cannot fill the
// requested number of walk-forward folds.
type InsufficientHistoryError struct {
	Observations int
	Required     int
}

func (e InsufficientHistoryError) Error() string {
	return fmt.Sprintf(
		"insufficient history for walk-forward validation: %d observations, need %d",
		e.Observations, e.Required,
	)
}

// InsufficientLabelsError aborts a fit whose training set never shows one
// of the risk classes.
type InsufficientLabelsError struct {
	MissingClass RiskClass
}

func (e InsufficientLabelsError) Error() string {
	return fmt.Sprintf("training examples contain no %q labels", string(e.MissingClass))
}

// ProviderTimeoutError wraps a price fetch that exceeded its deadline.
// It is the only error in the pipeline callers may sensibly retry.
type ProviderTimeoutError struct {
	Symbol string
	Err    error
}

func (e ProviderTimeoutError) Error() string {
	return fmt.Sprintf("price provider timed out fetching %s: %v", e.Symbol, e.Err)
}

func (e ProviderTimeoutError) Unwrap() error {
	return e.Err
}
