package app

import (
	"context"
	"fmt"
	"time"

	"quantshield/internal/calculator"
	"quantshield/internal/classifier"
	"quantshield/internal/domain"
	"quantshield/internal/explain"
	"quantshield/internal/logger"
	"quantshield/internal/provider"
	"quantshield/internal/returns"
)

const (
	DefaultHistoryYears    = 5
	DefaultInferenceWindow = 126
)

// Orchestrator wires the online prediction path: fetch prices, rebuild
// the portfolio series, compute features, classify, explain. It calls
// the exact same Builder and Engineer the trainer uses, which is what
// keeps an online feature provably identical to an offline one.
type Orchestrator struct {
	Provider   provider.PriceProvider
	Builder    returns.Builder
	Engineer   calculator.Engineer
	Classifier classifier.Classifier
	Models     *ModelStore
	Explainer  explain.Generator

	// HistoryYears is how much history to fetch; InferenceWindow is how
	// many of the most recent observations the features are computed on,
	// matching the training window length.
	HistoryYears    int
	InferenceWindow int
}

type PredictOutput struct {
	Result      domain.PredictionResult
	Explanation string
}

// Predict classifies one portfolio. Upstream errors keep their types so
// the API layer can tell a data problem from a model problem.
func (o Orchestrator) Predict(ctx context.Context, portfolio domain.Portfolio) (*PredictOutput, error) {
	log := logger.FromContext(ctx)

	// reject bad weights before any data is fetched or computed
	if err := portfolio.Validate(); err != nil {
		return nil, err
	}

	model, err := o.Models.Get()
	if err != nil {
		return nil, err
	}

	historyYears := o.HistoryYears
	if historyYears <= 0 {
		historyYears = DefaultHistoryYears
	}
	window := o.InferenceWindow
	if window <= 0 {
		window = DefaultInferenceWindow
	}

	end := time.Now().UTC()
	start := end.AddDate(-historyYears, 0, 0)

	prices, err := o.Provider.GetPrices(ctx, portfolio.Tickers(), start, end)
	if err != nil {
		return nil, err
	}

	built, err := o.Builder.Build(portfolio, prices)
	if err != nil {
		return nil, err
	}

	n := len(built.Portfolio.Points)
	if n < window {
		return nil, domain.DataAlignmentError{
			Observations:    n,
			MinObservations: window,
		}
	}

	// tail-slice the portfolio and its constituents over the same range;
	// they share a date axis by construction
	windowSeries := built.Portfolio.Tail(window)
	constituents := map[string]domain.ReturnSeries{}
	for ticker, series := range built.Constituents {
		constituents[ticker] = series.Tail(window)
	}

	features, err := o.Engineer.ComputeFeatures(windowSeries, constituents, built.Weights)
	if err != nil {
		return nil, err
	}

	prediction, err := o.Classifier.Predict(model, *features)
	if err != nil {
		return nil, err
	}

	log.Infow("portfolio classified",
		"class", string(prediction.Class),
		"observations", n,
		"window", window,
	)

	return &PredictOutput{
		Result:      *prediction,
		Explanation: o.Explainer.Explain(*features, prediction.Class),
	}, nil
}

// ComputeFeatures exposes the offline feature path on the same wiring,
// for parity checks and the training CLI.
func (o Orchestrator) ComputeFeatures(portfolio domain.Portfolio, prices map[string]domain.PriceSeries) (*domain.FeatureVector, error) {
	built, err := o.Builder.Build(portfolio, prices)
	if err != nil {
		return nil, err
	}
	features, err := o.Engineer.ComputeFeatures(built.Portfolio, built.Constituents, built.Weights)
	if err != nil {
		return nil, fmt.Errorf("failed to compute features: %w", err)
	}
	return features, nil
}
