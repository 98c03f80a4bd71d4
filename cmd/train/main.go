package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"quantshield/internal/classifier"
	"quantshield/internal/domain"
	"quantshield/internal/logger"
	"quantshield/internal/provider"
	"quantshield/internal/repository"
	"quantshield/internal/returns"
	"quantshield/internal/trainer"
	"quantshield/pkg/config"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "quantshield",
		Short: "offline training tooling for the portfolio risk classifier",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to yaml config")

	root.AddCommand(
		&cobra.Command{
			Use:   "train",
			Short: "build the rolling-window dataset, run walk-forward validation and persist the model",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTrain(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "ingest",
			Short: "sync adjusted prices for all configured portfolios into the local cache",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runIngest(cmd.Context())
			},
		},
	)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func setup() (*config.Config, provider.CachedProvider, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, provider.CachedProvider{}, err
	}

	db, err := repository.Open(cfg.Provider.CacheDB)
	if err != nil {
		return nil, provider.CachedProvider{}, err
	}
	priceRepository, err := repository.NewAdjustedPriceRepository(db)
	if err != nil {
		return nil, provider.CachedProvider{}, err
	}

	cached := provider.NewCachedProvider(
		priceRepository,
		provider.NewYahooProvider(cfg.Provider.Timeout),
	)
	return cfg, cached, nil
}

func runIngest(ctx context.Context) error {
	cfg, prices, err := setup()
	if err != nil {
		return err
	}
	log := logger.New()

	end := time.Now().UTC()
	start := end.AddDate(-cfg.Data.HistoryYears, 0, 0)

	for _, p := range cfg.Portfolios {
		portfolio := domain.NewPortfolio(p.Holdings)
		if _, err := prices.GetPrices(ctx, portfolio.Tickers(), start, end); err != nil {
			return fmt.Errorf("failed to ingest prices for %s: %w", p.Name, err)
		}
		log.Infow("prices ingested", "portfolio", p.Name)
	}
	return nil
}

func runTrain(ctx context.Context) error {
	cfg, prices, err := setup()
	if err != nil {
		return err
	}
	log := logger.New()
	ctx = context.WithValue(ctx, logger.ContextKey, log)

	if len(cfg.Portfolios) == 0 {
		return fmt.Errorf("config lists no training portfolios")
	}

	builder := returns.NewBuilder(cfg.Data.MinObservations)
	datasetBuilder := trainer.NewDatasetBuilder(
		cfg.Dataset.WindowLength,
		cfg.Dataset.StepSize,
		cfg.Labeling,
	)

	end := time.Now().UTC()
	start := end.AddDate(-cfg.Data.HistoryYears, 0, 0)

	examples := []domain.LabeledExample{}
	for _, p := range cfg.Portfolios {
		portfolio := domain.NewPortfolio(p.Holdings)
		priceMap, err := prices.GetPrices(ctx, portfolio.Tickers(), start, end)
		if err != nil {
			return fmt.Errorf("failed to fetch prices for %s: %w", p.Name, err)
		}
		built, err := builder.Build(portfolio, priceMap)
		if err != nil {
			return fmt.Errorf("failed to build returns for %s: %w", p.Name, err)
		}
		portfolioExamples, err := datasetBuilder.BuildExamples(p.Name, built)
		if err != nil {
			return err
		}
		log.Infow("portfolio windows built", "portfolio", p.Name, "examples", len(portfolioExamples))
		examples = append(examples, portfolioExamples...)
	}

	clf, err := classifier.New(cfg.Classifier.Algorithm, classifier.Options{
		Seed:         cfg.Classifier.Seed,
		LearningRate: cfg.Classifier.LearningRate,
		Iterations:   cfg.Classifier.Iterations,
		L2Penalty:    cfg.Classifier.L2Penalty,
	})
	if err != nil {
		return err
	}

	wf := trainer.NewWalkForwardTrainer(
		cfg.Training.Folds,
		cfg.Training.MinTrainSize,
		cfg.Training.MinTestSize,
		clf,
	)
	model, report, err := wf.Train(ctx, examples)
	if err != nil {
		return err
	}

	printReport(report)

	if err := classifier.SaveModel(model, cfg.Model.Path); err != nil {
		return err
	}
	log.Infow("model persisted", "path", cfg.Model.Path, "schemaVersion", model.SchemaVersion)
	return nil
}

func printReport(report *trainer.ValidationReport) {
	fmt.Printf("walk-forward validation over %d samples\n", report.TotalSamples)
	for _, fold := range report.Folds {
		fmt.Printf(
			"  fold %d: train=%d test=%d accuracy=%.4f recall=%v (train ends %s, test starts %s)\n",
			fold.Fold,
			fold.TrainSize,
			fold.TestSize,
			fold.Accuracy,
			fold.ClassRecall,
			fold.TrainEnd.Format(time.DateOnly),
			fold.TestStart.Format(time.DateOnly),
		)
	}
	fmt.Printf("mean accuracy: %.4f\n", report.MeanAccuracy)
}
