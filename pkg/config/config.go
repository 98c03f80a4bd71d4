package config

import (
	"fmt"
	"os"
	"time"

	"quantshield/internal/domain"
	"quantshield/internal/trainer"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// TrainingPortfolio is one labeled-history input: a named portfolio whose
// reconstructed returns feed the rolling-window dataset.
type TrainingPortfolio struct {
	Name     string           `yaml:"name" validate:"required"`
	Holdings []domain.Holding `yaml:"holdings" validate:"required,min=1"`
}

type Config struct {
	Environment string `yaml:"environment" default:"prod"`

	Server struct {
		Port int `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	} `yaml:"server"`

	Model struct {
		Path string `yaml:"path" default:"risk_model.json"`
	} `yaml:"model"`

	Provider struct {
		Timeout time.Duration `yaml:"timeout" default:"30s"`
		CacheDB string        `yaml:"cache_db" default:"prices.db"`
	} `yaml:"provider"`

	Data struct {
		MinObservations int `yaml:"min_observations" default:"60" validate:"gt=1"`
		HistoryYears    int `yaml:"history_years" default:"5" validate:"gt=0"`
		InferenceWindow int `yaml:"inference_window" default:"126" validate:"gt=1"`
	} `yaml:"data"`

	Dataset struct {
		WindowLength int `yaml:"window_length" default:"126" validate:"gt=1"`
		StepSize     int `yaml:"step_size" default:"21" validate:"gt=0"`
	} `yaml:"dataset"`

	Labeling trainer.LabelThresholds `yaml:"labeling"`

	Training struct {
		Folds        int `yaml:"folds" default:"5" validate:"gt=0"`
		MinTrainSize int `yaml:"min_train_size" default:"10" validate:"gt=0"`
		MinTestSize  int `yaml:"min_test_size" default:"2" validate:"gt=0"`
	} `yaml:"training"`

	Classifier struct {
		Algorithm    string  `yaml:"algorithm" default:"softmax_regression"`
		Seed         int64   `yaml:"seed" default:"42"`
		LearningRate float64 `yaml:"learning_rate" default:"0.1" validate:"gt=0"`
		Iterations   int     `yaml:"iterations" default:"2000" validate:"gt=0"`
		L2Penalty    float64 `yaml:"l2_penalty" default:"0.001" validate:"gte=0"`
	} `yaml:"classifier"`

	Portfolios []TrainingPortfolio `yaml:"portfolios" validate:"dive"`
}

// Load reads a yaml config file, fills defaults for anything omitted and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a config with every default applied, for callers that
// run without a config file.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}
	return cfg, nil
}
