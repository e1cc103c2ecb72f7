package matrix

import (
	"io"
	"os"

	"github.com/sbinet/npyio"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// ReadNpy reads a 1-D or 2-D NumPy array into a Dense. A 1-D array of length n becomes an
// n×1 matrix, which is the layout Labels expects. Supported dtypes are float64, float32,
// int64 and int32 (little endian).
func ReadNpy(r io.Reader) (*Dense, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, scierrors.Wrap(err, "matrix: failed to read npy header")
	}

	shape := nr.Header.Descr.Shape
	var rows, cols int
	switch len(shape) {
	case 1:
		rows, cols = shape[0], 1
	case 2:
		rows, cols = shape[0], shape[1]
	default:
		return nil, scierrors.NewShapeError("matrix.ReadNpy", []int{-1, -1}, shape)
	}

	data, err := readNpyValues(nr)
	if err != nil {
		return nil, err
	}
	if len(data) != rows*cols {
		return nil, scierrors.NewShapeError("matrix.ReadNpy", []int{rows * cols}, []int{len(data)})
	}
	if nr.Header.Descr.Fortran && cols > 1 {
		data = fortranToRowMajor(data, rows, cols)
	}
	return NewDense(rows, cols, data)
}

func readNpyValues(nr *npyio.Reader) ([]float64, error) {
	switch dtype := nr.Header.Descr.Type; dtype {
	case "<f8", "f8":
		var vals []float64
		if err := nr.Read(&vals); err != nil {
			return nil, scierrors.Wrap(err, "matrix: failed to read npy data")
		}
		return vals, nil
	case "<f4", "f4":
		var vals []float32
		if err := nr.Read(&vals); err != nil {
			return nil, scierrors.Wrap(err, "matrix: failed to read npy data")
		}
		out := make([]float64, len(vals))
		for i, v := range vals {
			out[i] = float64(v)
		}
		return out, nil
	case "<i8", "i8":
		var vals []int64
		if err := nr.Read(&vals); err != nil {
			return nil, scierrors.Wrap(err, "matrix: failed to read npy data")
		}
		out := make([]float64, len(vals))
		for i, v := range vals {
			out[i] = float64(v)
		}
		return out, nil
	case "<i4", "i4":
		var vals []int32
		if err := nr.Read(&vals); err != nil {
			return nil, scierrors.Wrap(err, "matrix: failed to read npy data")
		}
		out := make([]float64, len(vals))
		for i, v := range vals {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, scierrors.NewValueError("matrix.ReadNpy", "unsupported npy dtype "+dtype)
	}
}

func fortranToRowMajor(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			out[i*cols+j] = data[j*rows+i]
		}
	}
	return out
}

// WriteNpy writes m as a 2-D float64 NumPy array.
func WriteNpy(w io.Writer, m mat.Matrix) error {
	if r, c := m.Dims(); r == 0 || c == 0 {
		return scierrors.NewInsufficientDataError("matrix.WriteNpy", "cannot write an empty matrix", 1, 0)
	}
	var dense *mat.Dense
	switch v := m.(type) {
	case *mat.Dense:
		dense = v
	case *Dense:
		dense = v.Mat()
	default:
		dense = mat.DenseCopyOf(m)
	}
	if err := npyio.Write(w, dense); err != nil {
		return scierrors.Wrap(err, "matrix: failed to write npy")
	}
	return nil
}

// ReadNpyFile opens path and calls ReadNpy.
func ReadNpyFile(path string) (_ *Dense, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, scierrors.Wrapf(err, "matrix: failed to open %s", path)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	return ReadNpy(f)
}

// WriteNpyFile creates path and calls WriteNpy.
func WriteNpyFile(path string, m mat.Matrix) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return scierrors.Wrapf(err, "matrix: failed to create %s", path)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	return WriteNpy(f, m)
}
