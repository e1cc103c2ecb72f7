package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

func TestStateManager(t *testing.T) {
	st := NewStateManager()
	assert.False(t, st.IsFitted())

	err := st.RequireFitted("DecisionTreeClassifier", "Predict")
	var nf *scierrors.NotFittedError
	assert.ErrorAs(t, err, &nf)
	assert.ErrorIs(t, err, scierrors.ErrConfiguration)
	assert.Contains(t, err.Error(), "Predict")

	st = FittedState(4, 10)
	assert.True(t, st.IsFitted())
	assert.NoError(t, st.RequireFitted("DecisionTreeClassifier", "Predict"))
	nFeatures, nSamples := st.GetDimensions()
	assert.Equal(t, 4, nFeatures)
	assert.Equal(t, 10, nSamples)
}

func TestStateManagerConcurrentReads(t *testing.T) {
	st := FittedState(3, 7)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, st.IsFitted())
			f, _ := st.GetDimensions()
			assert.Equal(t, 3, f)
		}()
	}
	wg.Wait()
}
