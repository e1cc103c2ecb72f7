package ensemble

import (
	"bytes"
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/core/matrix"
	"github.com/YuminosukeSato/sciforest/core/model"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
	"github.com/YuminosukeSato/sciforest/sklearn/tree"
)

// makeClassification returns n rows with a distinct first feature, sparse noise features and
// labels in [0, k) determined by the first feature.
func makeClassification(seed uint64, n, d, k int) (*mat.Dense, *mat.VecDense) {
	rng := rand.New(rand.NewPCG(seed, 0))
	X := mat.NewDense(n, d, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		for j := 1; j < d; j++ {
			if rng.Float64() < 0.4 {
				X.Set(i, j, rng.NormFloat64())
			}
		}
		y.SetVec(i, float64(i*k/n))
	}
	return X, y
}

func TestSingleTreeMatchesDecisionTree(t *testing.T) {
	X, y := makeClassification(3, 40, 4, 2)
	rf := NewRandomForestClassifier(WithNEstimators(1), WithMaxFeatures(4), WithRandomState(11))
	require.NoError(t, rf.Fit(X, y))

	rows, err := rf.Forest().BootstrapIndices(0)
	require.NoError(t, err)
	Xv, err := matrix.View(X)
	require.NoError(t, err)
	sample, err := Xv.GetRows(rows)
	require.NoError(t, err)

	labels, err := matrix.ClassLabels(y, 40)
	require.NoError(t, err)
	targets, err := tree.NewClassTargets(labels, matrix.UniqueSorted(labels))
	require.NoError(t, err)
	built, err := tree.Build(sample, targets.Subset(rows), tree.DefaultHyperparameters(tree.Gini), nil)
	require.NoError(t, err)
	assert.Equal(t, built, rf.Forest().Trees[0])

	sampleLabels := make([]float64, len(rows))
	for k, i := range rows {
		sampleLabels[k] = y.AtVec(i)
	}
	dt := tree.NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(sample, matrix.Column(sampleLabels)))
	require.Equal(t, rf.Classes(), dt.Classes())

	want, err := dt.Predict(X)
	require.NoError(t, err)
	got, err := rf.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestVotesSumToNTrees(t *testing.T) {
	X, y := makeClassification(5, 60, 6, 3)
	rf := NewRandomForestClassifier(WithNEstimators(7), WithRandomState(2))
	require.NoError(t, rf.Fit(X, y))

	votes, err := rf.PredictVotes(X)
	require.NoError(t, err)
	pred, err := rf.Predict(X)
	require.NoError(t, err)

	n, k := votes.Dims()
	require.Equal(t, 60, n)
	require.Equal(t, 3, k)
	for i := 0; i < n; i++ {
		row := mat.Row(nil, i, votes)
		assert.Equal(t, 7.0, floats(row).sum(), "row %d", i)
		assert.Equal(t, float64(rf.Classes()[argmax(row)]), pred.At(i, 0))
	}

	proba, err := rf.PredictProba(X)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		assert.InDelta(t, 1.0, floats(mat.Row(nil, i, proba)).sum(), 1e-9)
	}
}

type floats []float64

func (f floats) sum() float64 {
	s := 0.0
	for _, v := range f {
		s += v
	}
	return s
}

func TestFitIsIndependentOfScheduling(t *testing.T) {
	X, y := makeClassification(8, 80, 5, 2)
	sparse := matrix.SparseFromDense(X)

	fit := func(input mat.Matrix, jobs int) *Forest {
		rf := NewRandomForestClassifier(WithNEstimators(12), WithNJobs(jobs), WithRandomState(99))
		require.NoError(t, rf.Fit(input, y))
		return rf.Forest()
	}
	sequential := fit(X, 1)
	assert.Equal(t, sequential, fit(X, 4))
	assert.Equal(t, sequential, fit(X, 0))
	assert.Equal(t, sequential, fit(sparse, 3), "dense and sparse input must grow the same forest")
}

func TestForestErrors(t *testing.T) {
	X, y := makeClassification(1, 20, 3, 2)

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{"zero trees", func() error {
			return NewRandomForestClassifier(WithNEstimators(0)).Fit(X, y)
		}, scierrors.ErrConfiguration},
		{"zero max_features", func() error {
			return NewRandomForestClassifier(WithMaxFeatures(0)).Fit(X, y)
		}, scierrors.ErrConfiguration},
		{"zero max_features via SetParams", func() error {
			rf := NewRandomForestRegressor()
			if err := rf.SetParams(map[string]interface{}{"max_features": 0}); err != nil {
				return err
			}
			return rf.Fit(X, y)
		}, scierrors.ErrConfiguration},
		{"max_features above n_features", func() error {
			return NewRandomForestClassifier(WithMaxFeatures(4)).Fit(X, y)
		}, scierrors.ErrConfiguration},
		{"regression criterion on classifier", func() error {
			return NewRandomForestClassifier(WithCriterion("squared_error")).Fit(X, y)
		}, scierrors.ErrConfiguration},
		{"gini on regressor", func() error {
			return NewRandomForestRegressor(WithCriterion("gini")).Fit(X, y)
		}, scierrors.ErrConfiguration},
		{"empty matrix", func() error {
			return NewRandomForestClassifier().Fit(&mat.Dense{}, &mat.Dense{})
		}, scierrors.ErrInsufficientData},
		{"label length mismatch", func() error {
			return NewRandomForestRegressor().Fit(X, mat.NewVecDense(5, nil))
		}, scierrors.ErrShape},
		{"predict before fit", func() error {
			_, err := NewRandomForestClassifier().PredictVotes(X)
			return err
		}, scierrors.ErrConfiguration},
		{"predict column mismatch", func() error {
			rf := NewRandomForestRegressor(WithNEstimators(3))
			if err := rf.Fit(X, y); err != nil {
				return err
			}
			_, err := rf.Predict(mat.NewDense(1, 2, nil))
			return err
		}, scierrors.ErrShape},
		{"bootstrap index out of range", func() error {
			rf := NewRandomForestClassifier(WithNEstimators(2))
			if err := rf.Fit(X, y); err != nil {
				return err
			}
			_, err := rf.Forest().BootstrapIndices(2)
			return err
		}, scierrors.ErrIndex},
		{"oob disabled", func() error {
			rf := NewRandomForestClassifier(WithNEstimators(2))
			if err := rf.Fit(X, y); err != nil {
				return err
			}
			_, err := rf.OOBScore()
			return err
		}, scierrors.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, scierrors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestFailedFitLeavesModelUnfitted(t *testing.T) {
	X, y := makeClassification(2, 30, 3, 2)
	rf := NewRandomForestClassifier(WithNEstimators(4), WithRandomState(1))
	require.NoError(t, rf.Fit(X, y))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rf.FitContext(ctx, X, y)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, rf.IsFitted())
	assert.Nil(t, rf.Forest())
	_, err = rf.Predict(X)
	assert.ErrorIs(t, err, scierrors.ErrConfiguration)

	// 行数の合わないラベルで再学習に失敗した場合も同じ
	require.NoError(t, rf.Fit(X, y))
	err = rf.Fit(X, mat.NewVecDense(2, []float64{0, 1}))
	var shapeErr *scierrors.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	_, err = rf.PredictProba(X)
	assert.ErrorIs(t, err, scierrors.ErrConfiguration)
	_, err = rf.OOBScore()
	assert.ErrorIs(t, err, scierrors.ErrConfiguration)

	reg := NewRandomForestRegressor(WithNEstimators(3))
	yReg := mat.NewVecDense(30, nil)
	for i := 0; i < 30; i++ {
		yReg.SetVec(i, X.At(i, 0))
	}
	require.NoError(t, reg.Fit(X, yReg))
	require.Error(t, reg.Fit(X, mat.NewVecDense(3, nil)))
	_, err = reg.Predict(X)
	assert.ErrorIs(t, err, scierrors.ErrConfiguration)
	assert.False(t, reg.IsFitted())
}

func TestOutOfBagScore(t *testing.T) {
	X, y := makeClassification(4, 80, 2, 2)
	rf := NewRandomForestClassifier(WithNEstimators(40), WithOOBScore(true), WithRandomState(5))
	require.NoError(t, rf.Fit(X, y))
	score, err := rf.OOBScore()
	require.NoError(t, err)
	assert.Greater(t, score, 0.8)
	assert.LessOrEqual(t, score, 1.0)

	yReg := mat.NewVecDense(80, nil)
	for i := 0; i < 80; i++ {
		yReg.SetVec(i, 3*X.At(i, 0)+1)
	}
	reg := NewRandomForestRegressor(WithNEstimators(40), WithOOBScore(true), WithRandomState(5))
	require.NoError(t, reg.Fit(X, yReg))
	r2, err := reg.OOBScore()
	require.NoError(t, err)
	assert.Greater(t, r2, 0.8)
}

func TestRegressorAveragesTrees(t *testing.T) {
	X, _ := makeClassification(6, 50, 3, 2)
	y := mat.NewVecDense(50, nil)
	for i := 0; i < 50; i++ {
		y.SetVec(i, X.At(i, 0)*0.5-X.At(i, 1))
	}
	reg := NewRandomForestRegressor(WithNEstimators(5), WithMaxFeatures(3), WithRandomState(3))
	require.NoError(t, reg.Fit(X, y))

	pred, err := reg.Predict(X)
	require.NoError(t, err)
	row := make([]float64, 3)
	for i := 0; i < 50; i++ {
		mat.Row(row, i, X)
		want := 0.0
		for _, tr := range reg.Forest().Trees {
			want += tr.LeafValue(row)[0]
		}
		assert.InDelta(t, want/5, pred.At(i, 0), 1e-12)
	}

	score, err := reg.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.8)

	imp := reg.GetFeatureImportances()
	require.Len(t, imp, 3)
	assert.InDelta(t, 1.0, floats(imp).sum(), 1e-9)
}

func TestForestSerialization(t *testing.T) {
	X, y := makeClassification(7, 50, 4, 3)
	rf := NewRandomForestClassifier(WithNEstimators(6), WithOOBScore(true), WithRandomState(8))
	require.NoError(t, rf.Fit(X, y))
	want, err := rf.PredictProba(X)
	require.NoError(t, err)
	wantOOB, err := rf.OOBScore()
	require.NoError(t, err)

	var jsonBuf bytes.Buffer
	require.NoError(t, model.SaveJSON(rf, &jsonBuf))
	fromJSON := &RandomForestClassifier{}
	require.NoError(t, model.LoadJSON(fromJSON, &jsonBuf))

	var gobBuf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(rf, &gobBuf))
	fromGob := &RandomForestClassifier{}
	require.NoError(t, model.LoadModelFromReader(fromGob, &gobBuf))

	for name, m := range map[string]*RandomForestClassifier{"json": fromJSON, "gob": fromGob} {
		got, err := m.PredictProba(X)
		require.NoError(t, err, name)
		assert.True(t, mat.Equal(want, got), name)
		oob, err := m.OOBScore()
		require.NoError(t, err, name)
		assert.Equal(t, wantOOB, oob, name)
		assert.Equal(t, rf.GetParams(), m.GetParams(), name)

		rows, err := m.Forest().BootstrapIndices(3)
		require.NoError(t, err, name)
		orig, _ := rf.Forest().BootstrapIndices(3)
		assert.Equal(t, orig, rows, name)
	}

	reg := &RandomForestRegressor{}
	err = model.LoadJSON(reg, bytes.NewReader(encodeJSON(t, rf)))
	assert.Error(t, err, "a classifier forest must not load as a regressor")
}

func encodeJSON(t *testing.T, m interface{}) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, model.SaveJSON(m, &buf))
	return buf.Bytes()
}

func TestSetParams(t *testing.T) {
	rf := NewRandomForestRegressor()
	assert.Equal(t, tree.MaxFeaturesAuto, rf.GetParams()["max_features"])
	require.NoError(t, rf.SetParams(map[string]interface{}{
		"n_estimators": 3,
		"oob_score":    true,
		"n_jobs":       2.0,
	}))
	params := rf.GetParams()
	assert.Equal(t, 3, params["n_estimators"])
	assert.Equal(t, true, params["oob_score"])
	assert.Equal(t, 2, params["n_jobs"])

	assert.Error(t, rf.SetParams(map[string]interface{}{"oob_score": "yes"}))
	assert.Error(t, rf.SetParams(map[string]interface{}{"n_estimators": 5, "bogus": 1}))
	assert.Equal(t, 3, rf.GetParams()["n_estimators"])
}

func TestFitLogsEveryTree(t *testing.T) {
	provider, captured := log.NewTestLoggerProvider(log.LevelDebug)
	prev := log.SetProvider(provider)
	defer log.SetProvider(prev)

	X, y := makeClassification(1, 30, 3, 2)
	require.NoError(t, NewRandomForestClassifier(WithNEstimators(5), WithNJobs(2)).Fit(X, y))

	entries, err := captured.GetLogEntries()
	require.NoError(t, err)
	fitted := 0
	for _, e := range entries {
		if e["message"] == "tree fitted" {
			fitted++
		}
	}
	assert.Equal(t, 5, fitted)
	assert.True(t, captured.ContainsField(log.TreesKey, float64(5)))
}

func BenchmarkForestPredict(b *testing.B) {
	X, y := makeClassification(1, 2000, 16, 4)
	rf := NewRandomForestClassifier(WithNEstimators(50), WithMaxDepth(10))
	if err := rf.Fit(X, y); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := rf.Predict(X); err != nil {
			b.Fatal(err)
		}
	}
}

func TestTreeFailuresBecomeErrors(t *testing.T) {
	X, y := makeClassification(6, 40, 3, 2)
	defer func(orig func(matrix.FeatureView, *tree.Targets, tree.Hyperparameters, *rand.Rand) (*tree.Tree, error)) {
		buildTree = orig
	}(buildTree)

	// 並列実行中のワーカーでpanicが起きてもプロセスは落ちない
	buildTree = func(X matrix.FeatureView, y *tree.Targets, h tree.Hyperparameters, rng *rand.Rand) (*tree.Tree, error) {
		panic("split search exploded")
	}
	rf := NewRandomForestClassifier(WithNEstimators(4), WithNJobs(2))
	err := rf.Fit(X, y)
	var panicErr *scierrors.PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "split search exploded", panicErr.PanicValue)
	assert.Contains(t, panicErr.Operation, "tree")
	assert.False(t, rf.IsFitted())

	buildTree = func(X matrix.FeatureView, y *tree.Targets, h tree.Hyperparameters, rng *rand.Rand) (*tree.Tree, error) {
		return nil, scierrors.NewValueError("tree.Build", "bad sample")
	}
	err = rf.Fit(X, y)
	var modelErr *scierrors.ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.Contains(t, modelErr.Kind, "tree")
	var valueErr *scierrors.ValueError
	assert.ErrorAs(t, err, &valueErr)
}
