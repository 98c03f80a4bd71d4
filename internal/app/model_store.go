package app

import (
	"errors"
	"sync/atomic"

	"quantshield/internal/classifier"
)

var ErrNoModelLoaded = errors.New("no trained model loaded")

// ModelStore holds the process-wide loaded model. Snapshots are swapped
// atomically on reload, so an in-flight prediction keeps whatever model
// it started with and never observes a half-updated artifact.
type ModelStore struct {
	path    string
	current atomic.Pointer[classifier.TrainedModel]
}

func NewModelStore(path string) *ModelStore {
	return &ModelStore{path: path}
}

// Load reads the artifact from disk and swaps it in. Called once at
// startup and again on explicit reload; a failed load leaves the
// previous snapshot serving.
func (s *ModelStore) Load() error {
	model, err := classifier.LoadModel(s.path)
	if err != nil {
		return err
	}
	s.current.Store(model)
	return nil
}

// Get returns the current snapshot. TrainedModel is immutable, so
// callers may hold the pointer for the duration of a request.
func (s *ModelStore) Get() (*classifier.TrainedModel, error) {
	model := s.current.Load()
	if model == nil {
		return nil, ErrNoModelLoaded
	}
	return model, nil
}
