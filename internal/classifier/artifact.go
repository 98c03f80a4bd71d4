package classifier

import (
	"encoding/json"
	"fmt"
	"os"

	"quantshield/internal/domain"
)

// artifact is the on-disk form of a TrainedModel. The parameter blob is
// msgpack inside, base64 in the JSON envelope; only the owning algorithm
// ever looks inside it.
type artifact struct {
	SchemaVersion        int                      `json:"schema_version"`
	Algorithm            string                   `json:"algorithm"`
	FeatureNames         []string                 `json:"feature_names"`
	LabelEncoding        map[domain.RiskClass]int `json:"label_encoding"`
	ClassifierParameters []byte                   `json:"classifier_parameters"`
}

// SaveModel writes the artifact atomically: a rename from a temp file so
// a crashed write never leaves a truncated model behind.
func SaveModel(model *TrainedModel, path string) error {
	data, err := json.MarshalIndent(artifact{
		SchemaVersion:        model.SchemaVersion,
		Algorithm:            model.Algorithm,
		FeatureNames:         model.FeatureNames,
		LabelEncoding:        model.LabelEncoding,
		ClassifierParameters: model.Parameters,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model artifact: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize model artifact: %w", err)
	}
	return nil
}

// LoadModel reads a persisted artifact. An unknown schema version is
// fatal here; there is no fallback to mismatched features.
func LoadModel(path string) (*TrainedModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact %s: %w", path, err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact %s: %w", path, err)
	}

	model := &TrainedModel{
		SchemaVersion: a.SchemaVersion,
		Algorithm:     a.Algorithm,
		FeatureNames:  a.FeatureNames,
		LabelEncoding: a.LabelEncoding,
		Parameters:    a.ClassifierParameters,
	}
	if err := checkSchema(model); err != nil {
		return nil, err
	}
	return model, nil
}
