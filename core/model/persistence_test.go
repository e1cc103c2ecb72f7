package model

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

func TestGobFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gob")
	in := record{Name: "forest", Values: []float64{0.5, -1, 3}}
	require.NoError(t, SaveModel(&in, path))

	var out record
	require.NoError(t, LoadModel(&out, path))
	assert.Equal(t, in, out)
}

func TestGobErrors(t *testing.T) {
	assert.Error(t, SaveModel(&record{}, filepath.Join(t.TempDir(), "missing", "model.gob")))

	var out record
	assert.Error(t, LoadModel(&out, filepath.Join(t.TempDir(), "absent.gob")))
	assert.Error(t, LoadModelFromReader(&out, bytes.NewBufferString("not gob")))
}

func TestJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := record{Name: "tree", Values: []float64{1, 2}}
	require.NoError(t, SaveJSON(&in, &buf))
	assert.Contains(t, buf.String(), `"name": "tree"`)

	var out record
	require.NoError(t, LoadJSON(&out, &buf))
	assert.Equal(t, in, out)

	assert.Error(t, LoadJSON(&out, bytes.NewBufferString("{")))
}
