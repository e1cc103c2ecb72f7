package tree

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/core/matrix"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Targets holds the labels of the training rows. Classification targets are stored as
// indices into Classes so that node statistics are plain count vectors; regression targets
// keep their values.
type Targets struct {
	Classes    []int
	ClassIndex []int
	Values     []float64
}

// NewClassTargets encodes labels against classes, which must be sorted ascending and
// contain every label. Passing the full class list of a larger dataset keeps leaf
// distributions aligned across trees fitted on subsets.
func NewClassTargets(labels []int, classes []int) (*Targets, error) {
	pos := make(map[int]int, len(classes))
	for i, c := range classes {
		pos[c] = i
	}
	idx := make([]int, len(labels))
	for i, l := range labels {
		k, ok := pos[l]
		if !ok {
			return nil, scierrors.NewValueError("tree.NewClassTargets", "label is not in the class list")
		}
		idx[i] = k
	}
	return &Targets{Classes: classes, ClassIndex: idx}, nil
}

// NewRegressionTargets wraps continuous targets.
func NewRegressionTargets(values []float64) *Targets {
	return &Targets{Values: values}
}

// IsClassification reports whether the targets are class labels.
func (t *Targets) IsClassification() bool { return t.Classes != nil }

// NClasses returns the number of classes, 0 for regression.
func (t *Targets) NClasses() int { return len(t.Classes) }

// Len returns the number of rows.
func (t *Targets) Len() int {
	if t.IsClassification() {
		return len(t.ClassIndex)
	}
	return len(t.Values)
}

// Subset returns the targets of the given rows in order, duplicates included.
func (t *Targets) Subset(indices []int) *Targets {
	if t.IsClassification() {
		idx := make([]int, len(indices))
		for k, i := range indices {
			idx[k] = t.ClassIndex[i]
		}
		return &Targets{Classes: t.Classes, ClassIndex: idx}
	}
	vals := make([]float64, len(indices))
	for k, i := range indices {
		vals[k] = t.Values[i]
	}
	return &Targets{Values: vals}
}

// ClassTargetsFrom validates y against the rows of X and encodes it with the sorted list of
// labels it contains.
func ClassTargetsFrom(op string, X matrix.FeatureView, y mat.Matrix) (*Targets, error) {
	labels, err := matrix.ClassLabels(y, X.Rows())
	if err != nil {
		return nil, err
	}
	classes := matrix.UniqueSorted(labels)
	if len(classes) == 0 {
		return nil, scierrors.NewInsufficientDataError(op, "no labels", 1, 0)
	}
	return NewClassTargets(labels, classes)
}
