package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveFit(t *testing.T) {
	before := testutil.ToFloat64(treesFittedMetrics.WithLabelValues("TestModel"))
	ObserveFit("TestModel", 3, 10*time.Millisecond)
	ObserveFit("TestModel", 2, 20*time.Millisecond)
	assert.Equal(t, before+5, testutil.ToFloat64(treesFittedMetrics.WithLabelValues("TestModel")))

	ObserveFitError("TestModel")
	assert.Equal(t, 1.0, testutil.ToFloat64(fitErrorMetrics.WithLabelValues("TestModel")))

	ObservePredict("TestModel", 42)
	assert.Equal(t, 42.0, testutil.ToFloat64(predictedRowsMetrics.WithLabelValues("TestModel")))
}

func TestWriteTextfile(t *testing.T) {
	ObservePredict("TextfileModel", 1)
	path := filepath.Join(t.TempDir(), "sciforest.prom")
	require.NoError(t, WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `sciforest_predicted_rows_total{model="TextfileModel"} 1`))
}
