package matrix

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Sparse is a CSR feature matrix. Row i stores indices[indptr[i]:indptr[i+1]] with values
// data[indptr[i]:indptr[i+1]]; column indices are strictly increasing within a row.
type Sparse struct {
	rows, cols int
	indptr     []int
	indices    []int
	data       []float64
}

// NewSparse builds a Sparse from CSR arrays, which are used without copying. Violations of
// the CSR invariants fail with an IndexError.
func NewSparse(r, c int, indptr, indices []int, data []float64) (*Sparse, error) {
	const op = "matrix.NewSparse"
	if r < 0 || c < 0 {
		return nil, scierrors.NewShapeError(op, []int{0, 0}, []int{r, c})
	}
	if len(indptr) != r+1 {
		return nil, scierrors.NewShapeError(op, []int{r + 1}, []int{len(indptr)})
	}
	if len(indices) != len(data) {
		return nil, scierrors.NewShapeError(op, []int{len(indices)}, []int{len(data)})
	}
	if indptr[0] != 0 {
		return nil, scierrors.NewInvariantError(op, "indptr must start at 0", 0, indptr[0])
	}
	if indptr[r] != len(indices) {
		return nil, scierrors.NewInvariantError(op, "indptr must end at the number of stored entries", r, len(indices))
	}
	for i := 0; i < r; i++ {
		start, end := indptr[i], indptr[i+1]
		if end < start {
			return nil, scierrors.NewInvariantError(op, "indptr must be non-decreasing", i, start)
		}
		prev := -1
		for p := start; p < end; p++ {
			j := indices[p]
			if j < 0 || j >= c {
				return nil, scierrors.NewIndexError(op, j, c)
			}
			if j <= prev {
				return nil, scierrors.NewInvariantError(op, "column indices must be strictly increasing within a row", j, prev)
			}
			prev = j
		}
	}
	return &Sparse{rows: r, cols: c, indptr: indptr, indices: indices, data: data}, nil
}

// SparseFromRows builds a Sparse from per-row entry lists. Entries of a row may come in any
// order; zero values are dropped and repeated columns fail with an IndexError.
func SparseFromRows(c int, rows [][]Entry) (*Sparse, error) {
	indptr := make([]int, len(rows)+1)
	var indices []int
	var data []float64
	for i, row := range rows {
		sorted := append([]Entry(nil), row...)
		sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Col < sorted[b].Col })
		for _, e := range sorted {
			if e.Value == 0 {
				continue
			}
			indices = append(indices, e.Col)
			data = append(data, e.Value)
		}
		indptr[i+1] = len(indices)
	}
	return NewSparse(len(rows), c, indptr, indices, data)
}

// SparseFromDense copies the non-zero entries of any gonum matrix into a new Sparse.
func SparseFromDense(m mat.Matrix) *Sparse {
	r, c := m.Dims()
	s := &Sparse{rows: r, cols: c, indptr: make([]int, r+1)}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v != 0 {
				s.indices = append(s.indices, j)
				s.data = append(s.data, v)
			}
		}
		s.indptr[i+1] = len(s.indices)
	}
	return s
}

// Dims implements mat.Matrix.
func (s *Sparse) Dims() (r, c int) { return s.rows, s.cols }

// At implements mat.Matrix. Missing entries read as 0.
func (s *Sparse) At(i, j int) float64 {
	if i < 0 || i >= s.rows || j < 0 || j >= s.cols {
		panic(mat.ErrIndexOutOfRange)
	}
	start, end := s.indptr[i], s.indptr[i+1]
	cols := s.indices[start:end]
	if k := sort.SearchInts(cols, j); k < len(cols) && cols[k] == j {
		return s.data[start+k]
	}
	return 0
}

// T implements mat.Matrix.
func (s *Sparse) T() mat.Matrix { return mat.Transpose{Matrix: s} }

// Rows implements FeatureView.
func (s *Sparse) Rows() int { return s.rows }

// Cols implements FeatureView.
func (s *Sparse) Cols() int { return s.cols }

// Kind implements FeatureView.
func (s *Sparse) Kind() Kind { return KindSparse }

// NNZ returns the number of stored entries.
func (s *Sparse) NNZ() int { return len(s.data) }

// RawRow returns the stored column indices and values of row i without copying.
func (s *Sparse) RawRow(i int) ([]int, []float64) {
	start, end := s.indptr[i], s.indptr[i+1]
	return s.indices[start:end], s.data[start:end]
}

// GetRows implements FeatureView.
func (s *Sparse) GetRows(indices []int) (FeatureView, error) {
	nnz := 0
	for _, i := range indices {
		if err := checkRow("Sparse.GetRows", i, s.rows); err != nil {
			return nil, err
		}
		nnz += s.indptr[i+1] - s.indptr[i]
	}
	out := &Sparse{
		rows:    len(indices),
		cols:    s.cols,
		indptr:  make([]int, len(indices)+1),
		indices: make([]int, 0, nnz),
		data:    make([]float64, 0, nnz),
	}
	for k, i := range indices {
		cols, vals := s.RawRow(i)
		out.indices = append(out.indices, cols...)
		out.data = append(out.data, vals...)
		out.indptr[k+1] = len(out.indices)
	}
	return out, nil
}

// DoRowEntries implements FeatureView.
func (s *Sparse) DoRowEntries(i int, fn func(j int, v float64)) error {
	if err := checkRow("Sparse.DoRowEntries", i, s.rows); err != nil {
		return err
	}
	cols, vals := s.RawRow(i)
	for k, j := range cols {
		fn(j, vals[k])
	}
	return nil
}

// ToDense expands the matrix into a new Dense.
func (s *Sparse) ToDense() *Dense {
	d := &Dense{rows: s.rows, cols: s.cols, data: make([]float64, s.rows*s.cols)}
	for i := 0; i < s.rows; i++ {
		cols, vals := s.RawRow(i)
		row := d.RawRow(i)
		for k, j := range cols {
			row[j] = vals[k]
		}
	}
	return d
}

// CSR returns the underlying arrays without copying. Callers must not modify them.
func (s *Sparse) CSR() (indptr, indices []int, data []float64) {
	return s.indptr, s.indices, s.data
}
