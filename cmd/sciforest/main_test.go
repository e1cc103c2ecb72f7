package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/core/matrix"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
)

// run executes the CLI with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := log.GetProvider()
	defer log.SetProvider(prev)

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

// writeDataset writes a three-class problem separable on its first column.
func writeDataset(t *testing.T, dir string) (string, string) {
	t.Helper()
	const n = 30
	X := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%4))
		y[i] = float64(i / 10)
	}
	xPath, yPath := filepath.Join(dir, "X.npy"), filepath.Join(dir, "y.npy")
	require.NoError(t, matrix.WriteNpyFile(xPath, X))
	require.NoError(t, matrix.WriteNpyFile(yPath, matrix.Column(y)))
	return xPath, yPath
}

func TestTrainPredictInspectRender(t *testing.T) {
	dir := t.TempDir()
	xPath, yPath := writeDataset(t, dir)
	modelPath := filepath.Join(dir, "forest.gob")
	metricsPath := filepath.Join(dir, "metrics.prom")

	out, err := run(t, "train",
		"--data", xPath, "--labels", yPath, "--model", modelPath,
		"--n-estimators", "10", "--seed", "3", "--oob", "--n-jobs", "2",
		"--metrics-file", metricsPath,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "forest-classifier: training score")
	assert.Contains(t, out, "out-of-bag score")

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `sciforest_trees_fitted_total{model="RandomForestClassifier"}`)

	predPath := filepath.Join(dir, "pred.npy")
	_, err = run(t, "predict", "--model", modelPath, "--data", xPath, "--out", predPath)
	require.NoError(t, err)
	pred, err := matrix.ReadNpyFile(predPath)
	require.NoError(t, err)
	assert.Equal(t, 30, pred.Rows())
	for i := 0; i < 30; i++ {
		assert.Contains(t, []float64{0, 1, 2}, pred.At(i, 0))
	}

	out, err = run(t, "predict", "--model", modelPath, "--data", xPath, "--proba")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 30)
	assert.Len(t, strings.Fields(lines[0]), 3)

	plotPath := filepath.Join(dir, "importances.png")
	out, err = run(t, "inspect", "--model", modelPath, "--plot", plotPath, "--feature-names", "index,mod4")
	require.NoError(t, err)
	assert.Contains(t, out, "forest-classifier")
	assert.Contains(t, out, "index")
	assert.Contains(t, out, "x[2]")
	info, err := os.Stat(plotPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	out, err = run(t, "render", "--model", modelPath, "--tree", "2", "--format", "dot")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")

	_, err = run(t, "render", "--model", modelPath, "--tree", "10", "--format", "dot")
	assert.True(t, scierrors.Is(err, scierrors.ErrIndex))
}

func TestTrainVariants(t *testing.T) {
	dir := t.TempDir()
	xPath, yPath := writeDataset(t, dir)

	tests := []struct {
		name string
		args []string
		kind string
	}{
		{"tree classifier", []string{"--estimator", "tree"}, kindTreeClassifier},
		{"tree regressor", []string{"--estimator", "tree", "--task", "regress"}, kindTreeRegressor},
		{"forest regressor", []string{"--task", "regress", "--n-estimators", "5"}, kindForestRegressor},
		{"ovr tree", []string{"--estimator", "tree", "--ovr"}, kindOvRTree},
		{"ovr forest", []string{"--ovr", "--n-estimators", "4"}, kindOvRForest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modelPath := filepath.Join(dir, tt.kind+".gob")
			args := append([]string{"train", "--data", xPath, "--labels", yPath, "--model", modelPath}, tt.args...)
			_, err := run(t, args...)
			require.NoError(t, err)

			m, err := loadModel(modelPath)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, m.Kind)
			assert.Equal(t, 3, m.NFeatures())
			assert.NotEmpty(t, m.Trees())

			out, err := run(t, "predict", "--model", modelPath, "--data", xPath)
			require.NoError(t, err)
			assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 30)
		})
	}
}

func TestSVMLightInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.svm")
	var buf strings.Builder
	for i := 0; i < 20; i++ {
		label := 0
		if i >= 10 {
			label = 1
		}
		fmt.Fprintf(&buf, "%d 1:%d # row\n", label, i+1)
	}
	require.NoError(t, os.WriteFile(path, []byte(buf.String()), 0o644))

	modelPath := filepath.Join(dir, "m.gob")
	_, err := run(t, "train", "--svmlight", path, "--n-features", "4", "--model", modelPath, "--estimator", "tree")
	require.NoError(t, err)

	out, err := run(t, "predict", "--model", modelPath, "--svmlight", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 20)
	assert.Equal(t, "0", lines[0])
	assert.Equal(t, "1", lines[19])
}

func TestConfigurationErrors(t *testing.T) {
	dir := t.TempDir()
	xPath, yPath := writeDataset(t, dir)

	_, err := run(t, "train", "--data", xPath, "--labels", yPath)
	assert.True(t, scierrors.Is(err, scierrors.ErrConfiguration), "missing --model: %v", err)

	_, err = run(t, "train", "--data", xPath, "--model", filepath.Join(dir, "m.gob"))
	assert.True(t, scierrors.Is(err, scierrors.ErrConfiguration), "missing labels: %v", err)

	_, err = run(t, "train", "--data", xPath, "--labels", yPath, "--model", filepath.Join(dir, "m.gob"), "--task", "regress", "--ovr")
	assert.True(t, scierrors.Is(err, scierrors.ErrConfiguration))

	_, err = run(t, "train", "--data", xPath, "--svmlight", xPath, "--model", filepath.Join(dir, "m.gob"))
	assert.True(t, scierrors.Is(err, scierrors.ErrConfiguration))

	_, err = run(t, "train", "--data", xPath, "--labels", yPath, "--model", filepath.Join(dir, "m.gob"), "--n-estimators", "0")
	assert.True(t, scierrors.Is(err, scierrors.ErrConfiguration))
}

func TestConfigFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	xPath, yPath := writeDataset(t, dir)
	modelPath := filepath.Join(dir, "m.gob")
	cfg := filepath.Join(dir, "sciforest.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("estimator: tree\nmax-depth: 1\n"), 0o644))
	t.Setenv("SCIFOREST_MIN_SAMPLES_LEAF", "2")

	_, err := run(t, "train", "--config", cfg, "--data", xPath, "--labels", yPath, "--model", modelPath)
	require.NoError(t, err)

	m, err := loadModel(modelPath)
	require.NoError(t, err)
	assert.Equal(t, kindTreeClassifier, m.Kind)
	require.Len(t, m.Trees(), 1)
	assert.Equal(t, 1, m.Trees()[0].Depth())
	params := m.Estimator.(interface{ GetParams() map[string]interface{} }).GetParams()
	assert.Equal(t, 2, params["min_samples_leaf"])
}
