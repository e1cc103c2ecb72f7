package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

func TestClassifierFitsSeparableData(t *testing.T) {
	quadrants := mat.NewDense(8, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		3, 3,
		3, 4,
		4, 3,
		4, 4,
	})
	// 両方の特徴量が揃うと0、ずれると1
	xor := mat.NewDense(8, 2, []float64{
		0.0, 0.0,
		0.0, 0.1,
		0.1, 1.0,
		0.0, 0.9,
		1.0, 0.0,
		0.9, 0.0,
		1.0, 1.0,
		0.9, 0.9,
	})
	threeBlobs := mat.NewDense(9, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		3, 3,
		3, 4,
		4, 3,
		6, 6,
		6, 7,
		7, 6,
	})

	tests := []struct {
		name      string
		criterion string
		X         *mat.Dense
		y         []float64
		nClasses  int
	}{
		{"quadrants gini", "gini", quadrants, []float64{0, 0, 0, 0, 1, 1, 1, 1}, 2},
		{"quadrants entropy", "entropy", quadrants, []float64{0, 0, 0, 0, 1, 1, 1, 1}, 2},
		{"xor", "gini", xor, []float64{0, 0, 1, 1, 1, 1, 0, 0}, 2},
		{"three blobs", "gini", threeBlobs, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2}, 3},
		{"three blobs log_loss", "log_loss", threeBlobs, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y := mat.NewDense(len(tt.y), 1, tt.y)
			dt := NewDecisionTreeClassifier(WithCriterion(tt.criterion), WithMaxDepth(5))
			require.NoError(t, dt.Fit(tt.X, y))
			assert.Len(t, dt.Classes(), tt.nClasses)

			score, err := dt.Score(tt.X, y)
			require.NoError(t, err)
			assert.Equal(t, 1.0, score)

			proba, err := dt.PredictProba(tt.X)
			require.NoError(t, err)
			rows, cols := proba.Dims()
			require.Equal(t, tt.nClasses, cols)
			for i := 0; i < rows; i++ {
				row := mat.Row(nil, i, proba)
				sum := 0.0
				for _, p := range row {
					assert.GreaterOrEqual(t, p, 0.0)
					sum += p
				}
				assert.InDelta(t, 1.0, sum, 1e-9)
				assert.Equal(t, tt.y[i], float64(dt.Classes()[argmax(row)]))
			}
		})
	}
}

func TestClassifierGeneralizesBetweenBlocks(t *testing.T) {
	X := mat.NewDense(8, 2, []float64{
		0, 0, 0, 1, 1, 0, 1, 1,
		3, 3, 3, 4, 4, 3, 4, 4,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	pred, err := dt.Predict(mat.NewDense(2, 2, []float64{0.5, 0.5, 3.5, 3.5}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, mat.Col(nil, 0, pred))
}

func TestClassifierFeatureImportances(t *testing.T) {
	// 特徴量0だけがクラスを決める
	X := mat.NewDense(8, 3, []float64{
		0, 0, 0,
		0, 1, 1,
		0, 0, 1,
		0, 1, 0,
		1, 0, 0,
		1, 1, 1,
		1, 0, 1,
		1, 1, 0,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	importances := dt.GetFeatureImportances()
	require.Len(t, importances, 3)
	assert.InDelta(t, 1.0, importances[0], 1e-12)
	assert.Zero(t, importances[1])
	assert.Zero(t, importances[2])
	assert.Equal(t, 1, dt.GetDepth())
	assert.Equal(t, 2, dt.GetNLeaves())
}

func TestClassifierStoppingRules(t *testing.T) {
	X := mat.NewDense(16, 2, nil)
	y := mat.NewDense(16, 1, nil)
	for i := 0; i < 16; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%4))
		y.Set(i, 0, float64(i%2))
	}

	shallow := NewDecisionTreeClassifier(WithMaxDepth(2))
	require.NoError(t, shallow.Fit(X, y))
	assert.LessOrEqual(t, shallow.GetDepth(), 2)

	constrained := NewDecisionTreeClassifier(WithMinSamplesSplit(5), WithMinSamplesLeaf(3))
	require.NoError(t, constrained.Fit(X, y))
	assert.LessOrEqual(t, constrained.GetNLeaves(), 16/3)
	for _, n := range constrained.Tree().Nodes {
		if n.IsLeaf() {
			assert.GreaterOrEqual(t, n.NSamples, 3)
		}
	}

	full := NewDecisionTreeClassifier()
	require.NoError(t, full.Fit(X, y))
	score, err := full.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestClassifierGetSetParams(t *testing.T) {
	dt := NewDecisionTreeClassifier()

	params := dt.GetParams()
	assert.Equal(t, "gini", params["criterion"])
	assert.Equal(t, 2, params["min_samples_split"])
	assert.Equal(t, 0, params["max_depth"])
	assert.Equal(t, MaxFeaturesAuto, params["max_features"])

	require.NoError(t, dt.SetParams(map[string]interface{}{
		"criterion":         "entropy",
		"max_depth":         5,
		"min_samples_split": 4,
		"min_samples_leaf":  2,
	}))
	params = dt.GetParams()
	assert.Equal(t, "entropy", params["criterion"])
	assert.Equal(t, 5, params["max_depth"])
	assert.Equal(t, 4, params["min_samples_split"])
	assert.Equal(t, 2, params["min_samples_leaf"])
}

func TestClassifierNotFitted(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	_, err := dt.Predict(X)
	var nf *scierrors.NotFittedError
	assert.ErrorAs(t, err, &nf)

	_, err = dt.PredictProba(X)
	assert.ErrorIs(t, err, scierrors.ErrConfiguration)

	_, err = dt.DecisionFunction(X)
	assert.Error(t, err)
	assert.False(t, dt.IsFitted())
}

func TestFailedRefitLeavesModelUnfitted(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	err := dt.Fit(X, mat.NewDense(2, 1, []float64{0, 1}))
	var shapeErr *scierrors.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.False(t, dt.IsFitted())
	assert.Nil(t, dt.Tree())
	_, err = dt.Predict(X)
	assert.ErrorIs(t, err, scierrors.ErrConfiguration)

	reg := NewDecisionTreeRegressor()
	require.NoError(t, reg.Fit(X, y))
	require.Error(t, reg.Fit(X, mat.NewDense(4, 1, []float64{1, 2, math.NaN(), 4})))
	assert.False(t, reg.IsFitted())
	_, err = reg.Predict(X)
	assert.ErrorIs(t, err, scierrors.ErrConfiguration)
}

