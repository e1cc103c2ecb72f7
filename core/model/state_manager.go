package model

import (
	"sync"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// StateManager tracks whether an estimator has been fitted and the input
// dimensions it was fitted on. Estimators hold one by composition and
// swap in a fresh manager when a fit or a load commits.
type StateManager struct {
	mu        sync.RWMutex
	fitted    bool
	nFeatures int
	nSamples  int
}

// NewStateManager returns an unfitted StateManager.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// FittedState returns a StateManager already marked fitted with the given dimensions.
func FittedState(nFeatures, nSamples int) *StateManager {
	return &StateManager{fitted: true, nFeatures: nFeatures, nSamples: nSamples}
}

func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted returns a NotFittedError naming the model and the method
// that was called if the model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return scierrors.NewNotFittedError(modelName, method)
	}
	return nil
}
