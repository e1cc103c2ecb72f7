// Package matrix provides the row-indexable feature matrices consumed by every estimator.
//
// Two storage variants share one interface:
//
//   - Dense: row-major float64 storage, every column of a row is stored.
//   - Sparse: compressed sparse row (CSR) storage, only non-zero entries are stored and any
//     missing entry reads as 0.
//
// Both satisfy mat.Matrix, so they can be passed anywhere gonum expects a matrix, and both
// satisfy FeatureView, which is what tree induction actually consumes. Matrices are immutable
// after construction; GetRows always returns a newly owned matrix of the same variant.
package matrix

import (
	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Kind tags the storage variant of a FeatureView.
type Kind int

const (
	// KindDense is row-major storage.
	KindDense Kind = iota
	// KindSparse is CSR storage.
	KindSparse
)

func (k Kind) String() string {
	switch k {
	case KindDense:
		return "dense"
	case KindSparse:
		return "sparse"
	default:
		return "unknown"
	}
}

// Entry is a single stored (column, value) pair of a row.
type Entry struct {
	Col   int
	Value float64
}

// FeatureView is the read-only row interface of a feature matrix.
type FeatureView interface {
	mat.Matrix

	// Rows returns the number of samples.
	Rows() int

	// Cols returns the number of features.
	Cols() int

	// GetRows returns a new matrix holding the given rows in the given order. Duplicates are
	// kept. Any index outside [0, Rows()) fails with an IndexError.
	GetRows(indices []int) (FeatureView, error)

	// DoRowEntries calls fn for the entries of row i in ascending column order. Dense rows
	// yield every column, zeros included; sparse rows yield stored entries only.
	DoRowEntries(i int, fn func(j int, v float64)) error

	// Kind reports the storage variant.
	Kind() Kind
}

// View adapts any gonum matrix to a FeatureView.
//
// FeatureViews are returned as-is and a *mat.Dense with contiguous rows is wrapped without
// copying. Every other matrix is copied element by element into a Dense, with a
// DataConversionWarning.
func View(m mat.Matrix) (FeatureView, error) {
	switch v := m.(type) {
	case nil:
		return nil, scierrors.NewValueError("matrix.View", "matrix must not be nil")
	case FeatureView:
		return v, nil
	case *mat.Dense:
		if v.IsEmpty() {
			return &Dense{}, nil
		}
		raw := v.RawMatrix()
		if raw.Stride == raw.Cols {
			return &Dense{rows: raw.Rows, cols: raw.Cols, data: raw.Data[:raw.Rows*raw.Cols]}, nil
		}
		return DenseFrom(v), nil
	default:
		r, c := m.Dims()
		if r > 0 && c > 0 {
			scierrors.Warn(scierrors.NewDataConversionWarning("mat.Matrix", "matrix.Dense", "input is neither *mat.Dense nor a FeatureView"))
		}
		return DenseFrom(m), nil
	}
}

// MaterializeRow writes row i of v into dst, which must have length v.Cols(). Columns without
// a stored entry are set to 0.
func MaterializeRow(v FeatureView, i int, dst []float64) error {
	if len(dst) != v.Cols() {
		return scierrors.NewShapeError("matrix.MaterializeRow", []int{v.Cols()}, []int{len(dst)})
	}
	for j := range dst {
		dst[j] = 0
	}
	return v.DoRowEntries(i, func(j int, val float64) {
		dst[j] = val
	})
}

// CheckFinite returns a NumericalInstabilityError for the first row holding NaN or ±Inf.
func CheckFinite(op string, v FeatureView) error {
	row := make([]float64, 0, v.Cols())
	for i := 0; i < v.Rows(); i++ {
		row = row[:0]
		if err := v.DoRowEntries(i, func(_ int, val float64) {
			row = append(row, val)
		}); err != nil {
			return err
		}
		if err := scierrors.CheckNumericalStability(op, row, i); err != nil {
			return err
		}
	}
	return nil
}

func checkRow(op string, i, rows int) error {
	if i < 0 || i >= rows {
		return scierrors.NewIndexError(op, i, rows)
	}
	return nil
}
