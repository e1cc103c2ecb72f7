package matrix

import (
	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Dense is a row-major feature matrix.
type Dense struct {
	rows, cols int
	data       []float64
}

// NewDense creates an r×c Dense over data, which is used without copying. A nil data
// allocates zeros. A zero-row matrix is valid.
func NewDense(r, c int, data []float64) (*Dense, error) {
	if r < 0 || c < 0 {
		return nil, scierrors.NewShapeError("matrix.NewDense", []int{0, 0}, []int{r, c})
	}
	if data == nil {
		data = make([]float64, r*c)
	}
	if len(data) != r*c {
		return nil, scierrors.NewShapeError("matrix.NewDense", []int{r * c}, []int{len(data)})
	}
	return &Dense{rows: r, cols: c, data: data}, nil
}

// DenseFrom copies any gonum matrix into a new Dense.
func DenseFrom(m mat.Matrix) *Dense {
	r, c := m.Dims()
	d := &Dense{rows: r, cols: c, data: make([]float64, r*c)}
	for i := 0; i < r; i++ {
		row := d.data[i*c : (i+1)*c]
		for j := range row {
			row[j] = m.At(i, j)
		}
	}
	return d
}

// Dims implements mat.Matrix.
func (d *Dense) Dims() (r, c int) { return d.rows, d.cols }

// At implements mat.Matrix. It panics with mat.ErrIndexOutOfRange like gonum matrices do.
func (d *Dense) At(i, j int) float64 {
	if i < 0 || i >= d.rows || j < 0 || j >= d.cols {
		panic(mat.ErrIndexOutOfRange)
	}
	return d.data[i*d.cols+j]
}

// T implements mat.Matrix.
func (d *Dense) T() mat.Matrix { return mat.Transpose{Matrix: d} }

// Rows implements FeatureView.
func (d *Dense) Rows() int { return d.rows }

// Cols implements FeatureView.
func (d *Dense) Cols() int { return d.cols }

// Kind implements FeatureView.
func (d *Dense) Kind() Kind { return KindDense }

// RawRow returns row i without copying. Callers must not modify it.
func (d *Dense) RawRow(i int) []float64 {
	return d.data[i*d.cols : (i+1)*d.cols]
}

// GetRows implements FeatureView.
func (d *Dense) GetRows(indices []int) (FeatureView, error) {
	out := &Dense{rows: len(indices), cols: d.cols, data: make([]float64, len(indices)*d.cols)}
	for k, i := range indices {
		if err := checkRow("Dense.GetRows", i, d.rows); err != nil {
			return nil, err
		}
		copy(out.data[k*d.cols:(k+1)*d.cols], d.RawRow(i))
	}
	return out, nil
}

// DoRowEntries implements FeatureView.
func (d *Dense) DoRowEntries(i int, fn func(j int, v float64)) error {
	if err := checkRow("Dense.DoRowEntries", i, d.rows); err != nil {
		return err
	}
	for j, v := range d.RawRow(i) {
		fn(j, v)
	}
	return nil
}

// Mat returns a *mat.Dense sharing the storage. An empty matrix yields an empty *mat.Dense.
func (d *Dense) Mat() *mat.Dense {
	if d.rows == 0 || d.cols == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(d.rows, d.cols, d.data)
}
