package matrix

import (
	"bytes"
	"math"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

func sampleDense(t *testing.T) *Dense {
	t.Helper()
	d, err := NewDense(3, 3, []float64{
		0, 1.5, 0,
		2, 0, 0,
		0, 0, -3,
	})
	require.NoError(t, err)
	return d
}

func rowEntries(t *testing.T, v FeatureView, i int) []Entry {
	t.Helper()
	var out []Entry
	require.NoError(t, v.DoRowEntries(i, func(j int, val float64) {
		out = append(out, Entry{Col: j, Value: val})
	}))
	return out
}

func TestDenseAndSparseAgree(t *testing.T) {
	d := sampleDense(t)
	s := SparseFromDense(d)

	assert.Equal(t, KindDense, d.Kind())
	assert.Equal(t, KindSparse, s.Kind())
	assert.Equal(t, 3, s.NNZ())
	assert.True(t, mat.Equal(d, s))
	assert.True(t, mat.Equal(d, s.ToDense()))

	// Dense yields zeros, sparse yields only stored entries.
	assert.Equal(t, []Entry{{0, 0}, {1, 1.5}, {2, 0}}, rowEntries(t, d, 0))
	assert.Equal(t, []Entry{{1, 1.5}}, rowEntries(t, s, 0))
	assert.Equal(t, []Entry{{2, -3}}, rowEntries(t, s, 2))
}

func TestGetRows(t *testing.T) {
	views := map[string]FeatureView{
		"dense":  sampleDense(t),
		"sparse": SparseFromDense(sampleDense(t)),
	}
	for name, v := range views {
		t.Run(name, func(t *testing.T) {
			indices := []int{2, 0, 2}
			sub, err := v.GetRows(indices)
			require.NoError(t, err)
			assert.Equal(t, v.Kind(), sub.Kind())
			assert.Equal(t, 3, sub.Rows())
			assert.Equal(t, 3, sub.Cols())
			for k, i := range indices {
				for j := 0; j < 3; j++ {
					assert.Equal(t, v.At(i, j), sub.At(k, j))
				}
			}

			empty, err := v.GetRows(nil)
			require.NoError(t, err)
			assert.Equal(t, 0, empty.Rows())

			_, err = v.GetRows([]int{0, 3})
			require.Error(t, err)
			assert.True(t, scierrors.Is(err, scierrors.ErrIndex))

			_, err = v.GetRows([]int{-1})
			assert.True(t, scierrors.Is(err, scierrors.ErrIndex))
		})
	}
}

func TestGetRowsReproducesMultiset(t *testing.T) {
	s := SparseFromDense(sampleDense(t))
	indices := []int{1, 1, 0, 2, 1}
	sub, err := s.GetRows(indices)
	require.NoError(t, err)

	var got, want []float64
	for k, i := range indices {
		for j := 0; j < 3; j++ {
			got = append(got, sub.At(k, j))
			want = append(want, s.At(i, j))
		}
	}
	sort.Float64s(got)
	sort.Float64s(want)
	assert.Equal(t, want, got)
}

func TestDoRowEntriesOutOfRange(t *testing.T) {
	d := sampleDense(t)
	err := d.DoRowEntries(3, func(int, float64) {})
	assert.True(t, scierrors.Is(err, scierrors.ErrIndex))

	s := SparseFromDense(d)
	err = s.DoRowEntries(-1, func(int, float64) {})
	assert.True(t, scierrors.Is(err, scierrors.ErrIndex))
}

func TestNewSparseValidation(t *testing.T) {
	tests := []struct {
		name    string
		indptr  []int
		indices []int
		data    []float64
		wantErr error
	}{
		{"valid", []int{0, 1, 1}, []int{2}, []float64{1}, nil},
		{"short indptr", []int{0, 1}, []int{2}, []float64{1}, scierrors.ErrShape},
		{"length mismatch", []int{0, 1, 1}, []int{2}, []float64{1, 2}, scierrors.ErrShape},
		{"column out of range", []int{0, 1, 1}, []int{3}, []float64{1}, scierrors.ErrIndex},
		{"unsorted columns", []int{0, 2, 2}, []int{2, 1}, []float64{1, 1}, scierrors.ErrIndex},
		{"bad terminal", []int{0, 1, 2}, []int{2}, []float64{1}, scierrors.ErrIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSparse(2, 3, tt.indptr, tt.indices, tt.data)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, scierrors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestSparseFromRows(t *testing.T) {
	s, err := SparseFromRows(4, [][]Entry{
		{{Col: 3, Value: 1}, {Col: 0, Value: 2}, {Col: 1, Value: 0}},
		{},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.NNZ())
	assert.Equal(t, 2.0, s.At(0, 0))
	assert.Equal(t, 1.0, s.At(0, 3))
	assert.Equal(t, 0.0, s.At(1, 2))

	_, err = SparseFromRows(2, [][]Entry{{{Col: 1, Value: 1}, {Col: 1, Value: 2}}})
	assert.True(t, scierrors.Is(err, scierrors.ErrIndex))
}

func TestView(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	v, err := View(m)
	require.NoError(t, err)
	assert.Equal(t, KindDense, v.Kind())
	assert.True(t, mat.Equal(m, v))

	s := SparseFromDense(m)
	same, err := View(s)
	require.NoError(t, err)
	assert.Same(t, s, same)

	var warned []error
	scierrors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	defer scierrors.SetWarningHandler(nil)
	copied, err := View(m.T())
	require.NoError(t, err)
	assert.Equal(t, 3.0, copied.At(0, 1))
	assert.Len(t, warned, 1)

	_, err = View(nil)
	assert.Error(t, err)
}

func TestMaterializeRow(t *testing.T) {
	s := SparseFromDense(sampleDense(t))
	dst := []float64{9, 9, 9}
	require.NoError(t, MaterializeRow(s, 1, dst))
	assert.Equal(t, []float64{2, 0, 0}, dst)

	err := MaterializeRow(s, 1, make([]float64, 2))
	assert.True(t, scierrors.Is(err, scierrors.ErrShape))
}

func TestLabels(t *testing.T) {
	y := mat.NewVecDense(3, []float64{0, 2, 1})
	vals, err := Labels(y, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 1}, vals)

	_, err = Labels(y, 4)
	assert.True(t, scierrors.Is(err, scierrors.ErrShape))

	_, err = Labels(mat.NewDense(3, 2, nil), 3)
	assert.True(t, scierrors.Is(err, scierrors.ErrShape))

	classes, err := ClassLabels(y, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, classes)
	assert.Equal(t, []int{0, 1, 2}, UniqueSorted(classes))

	_, err = ClassLabels(mat.NewVecDense(2, []float64{0.5, 1}), 2)
	assert.Error(t, err)
	_, err = ClassLabels(mat.NewVecDense(2, []float64{-1, 1}), 2)
	assert.Error(t, err)
}

func TestNpyRoundTrip(t *testing.T) {
	d := sampleDense(t)
	var buf bytes.Buffer
	require.NoError(t, WriteNpy(&buf, d))

	got, err := ReadNpy(&buf)
	require.NoError(t, err)
	assert.True(t, mat.Equal(d, got))

	path := filepath.Join(t.TempDir(), "y.npy")
	require.NoError(t, WriteNpyFile(path, mat.NewVecDense(3, []float64{1, 0, 1})))
	y, err := ReadNpyFile(path)
	require.NoError(t, err)
	r, c := y.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 1, c)

	assert.Error(t, WriteNpy(&buf, &Dense{}))
}

func TestSVMLight(t *testing.T) {
	input := `# header comment
1 1:0.5 3:2
0 qid:4 2:-1 # trailing

1
`
	X, y, err := ReadSVMLight(bytes.NewBufferString(input), 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 1}, y)
	assert.Equal(t, 3, X.Rows())
	assert.Equal(t, 3, X.Cols())
	assert.Equal(t, 0.5, X.At(0, 0))
	assert.Equal(t, 2.0, X.At(0, 2))
	assert.Equal(t, -1.0, X.At(1, 1))
	assert.Equal(t, 0, len(rowEntries(t, X, 2)))

	var buf bytes.Buffer
	require.NoError(t, WriteSVMLight(&buf, X, y))
	assert.Equal(t, "1 1:0.5 3:2\n0 2:-1\n1\n", buf.String())

	wide, _, err := ReadSVMLight(bytes.NewBufferString(buf.String()), 10)
	require.NoError(t, err)
	assert.Equal(t, 10, wide.Cols())

	_, _, err = ReadSVMLight(bytes.NewBufferString("1 5:1\n"), 3)
	assert.True(t, scierrors.Is(err, scierrors.ErrIndex))

	_, _, err = ReadSVMLight(bytes.NewBufferString("1 x\n"), 0)
	assert.Error(t, err)
}

func TestCheckFinite(t *testing.T) {
	d, err := NewDense(2, 1, []float64{1, math.Inf(1)})
	require.NoError(t, err)
	err = CheckFinite("test", d)
	var ne *scierrors.NumericalInstabilityError
	require.True(t, scierrors.As(err, &ne))
	assert.Equal(t, 1, ne.Row)
}
