package main

import (
	"flag"
	"log"

	"quantshield/api"
	"quantshield/internal/app"
	"quantshield/internal/calculator"
	"quantshield/internal/classifier"
	"quantshield/internal/explain"
	"quantshield/internal/provider"
	"quantshield/internal/repository"
	"quantshield/internal/returns"
	"quantshield/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config (defaults apply if omitted)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		log.Fatal(err)
	}

	db, err := repository.Open(cfg.Provider.CacheDB)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	priceRepository, err := repository.NewAdjustedPriceRepository(db)
	if err != nil {
		log.Fatal(err)
	}

	clf, err := classifier.New(cfg.Classifier.Algorithm, classifier.Options{
		Seed:         cfg.Classifier.Seed,
		LearningRate: cfg.Classifier.LearningRate,
		Iterations:   cfg.Classifier.Iterations,
		L2Penalty:    cfg.Classifier.L2Penalty,
	})
	if err != nil {
		log.Fatal(err)
	}

	models := app.NewModelStore(cfg.Model.Path)
	if err := models.Load(); err != nil {
		log.Fatal(err)
	}

	handler := api.ApiHandler{
		Orchestrator: app.Orchestrator{
			Provider: provider.NewCachedProvider(
				priceRepository,
				provider.NewYahooProvider(cfg.Provider.Timeout),
			),
			Builder:         returns.NewBuilder(cfg.Data.MinObservations),
			Engineer:        calculator.NewEngineer(),
			Classifier:      clf,
			Models:          models,
			Explainer:       explain.NewGenerator(),
			HistoryYears:    cfg.Data.HistoryYears,
			InferenceWindow: cfg.Data.InferenceWindow,
		},
		Models: models,
	}

	if err := handler.StartApi(cfg.Server.Port); err != nil {
		log.Fatal(err)
	}
}
