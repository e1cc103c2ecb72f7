package matrix

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Labels validates that y is an n×1 label vector and returns its values.
func Labels(y mat.Matrix, n int) ([]float64, error) {
	if y == nil {
		return nil, scierrors.NewShapeError("matrix.Labels", []int{n, 1}, []int{0, 0})
	}
	r, c := y.Dims()
	if r != n || c != 1 {
		return nil, scierrors.NewShapeError("matrix.Labels", []int{n, 1}, []int{r, c})
	}
	out := make([]float64, n)
	if v, ok := y.(*mat.VecDense); ok {
		for i := range out {
			out[i] = v.AtVec(i)
		}
		return out, nil
	}
	for i := range out {
		out[i] = y.At(i, 0)
	}
	return out, nil
}

// ClassLabels is Labels for classification: every value must be a non-negative integer.
func ClassLabels(y mat.Matrix, n int) ([]int, error) {
	vals, err := Labels(y, n)
	if err != nil {
		return nil, err
	}
	out := make([]int, n)
	for i, v := range vals {
		if v < 0 || v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, scierrors.NewValueError("matrix.ClassLabels", "class labels must be non-negative integers")
		}
		out[i] = int(v)
	}
	return out, nil
}

// UniqueSorted returns the distinct values of labels in ascending order.
func UniqueSorted(labels []int) []int {
	seen := make(map[int]struct{}, 8)
	out := make([]int, 0, 8)
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	sort.Ints(out)
	return out
}

// Column converts values to an n×1 *mat.Dense, the shape every Predict returns.
// An empty slice yields an empty matrix.
func Column(values []float64) *mat.Dense {
	if len(values) == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(len(values), 1, values)
}
