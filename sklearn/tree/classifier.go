// Package tree implements CART decision trees over dense and sparse feature matrices.
//
// Trees are grown depth-first with exhaustive threshold search; the induced structure is a
// flat arena of nodes (see Tree) that can be validated, serialized as JSON or gob and
// rendered with Graphviz.
//
//	clf := tree.NewDecisionTreeClassifier(tree.WithMaxDepth(5))
//	if err := clf.Fit(X, y); err != nil {
//	    return err
//	}
//	pred, err := clf.Predict(XTest)
package tree

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/core/matrix"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/metrics"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
	"github.com/YuminosukeSato/sciforest/pkg/telemetry"
)

const classifierName = "DecisionTreeClassifier"

// DecisionTreeClassifier is a CART classifier. Labels are non-negative integers stored as
// float64 in an n×1 matrix.
type DecisionTreeClassifier struct {
	config
	state *model.StateManager

	tree       *Tree
	classes_   []int
	nClasses_  int
	nFeatures_ int
}

// NewDecisionTreeClassifier creates a classifier with criterion "gini",
// min_samples_split 2, min_samples_leaf 1 and unbounded depth.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	c := &DecisionTreeClassifier{
		config: defaultConfig("gini"),
		state:  model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(&c.config)
	}
	return c
}

// Fit grows the tree on X and y.
func (c *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer func() {
		if err != nil {
			telemetry.ObserveFitError(classifierName)
			c.discard()
		}
	}()
	defer scierrors.Recover(&err, "DecisionTreeClassifier.Fit")
	start := time.Now()

	h, err := c.hyperparameters()
	if err != nil {
		return err
	}
	if !h.Criterion.IsClassification() {
		return scierrors.NewConfigurationError("criterion", "classifier requires gini or entropy", c.criterion)
	}

	Xv, err := matrix.View(X)
	if err != nil {
		return err
	}
	if Xv.Rows() == 0 {
		return scierrors.NewInsufficientDataError("DecisionTreeClassifier.Fit", "cannot fit on zero rows", 1, 0)
	}
	targets, err := ClassTargetsFrom("DecisionTreeClassifier.Fit", Xv, y)
	if err != nil {
		return err
	}

	logger := log.GetLoggerWithName("tree.classifier").With(log.ModelNameKey, classifierName)
	logger.Debug("fit started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, Xv.Rows(),
		log.FeaturesKey, Xv.Cols(),
		log.ClassesKey, targets.NClasses(),
		log.MatrixKindKey, Xv.Kind().String(),
	)

	t, err := Build(Xv, targets, h, rand.New(rand.NewPCG(c.randomState, 0)))
	if err != nil {
		return err
	}

	c.tree = t
	c.classes_ = targets.Classes
	c.nClasses_ = len(targets.Classes)
	c.nFeatures_ = Xv.Cols()
	c.state = model.FittedState(Xv.Cols(), Xv.Rows())

	elapsed := time.Since(start)
	telemetry.ObserveFit(classifierName, 1, elapsed)
	logger.Debug("fit finished",
		log.DepthKey, t.Depth(),
		log.LeavesKey, t.NLeaves(),
		log.DurationMsKey, elapsed.Milliseconds(),
	)
	return nil
}

// Predict returns the most probable class label of every row as an n×1 matrix. Ties go to
// the smallest label.
func (c *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xv, err := c.checkPredict(X, "Predict")
	if err != nil {
		return nil, err
	}
	out := make([]float64, Xv.Rows())
	if err := matrix.ForEachRow(Xv, 0, func(i int, row []float64) {
		out[i] = float64(c.classes_[argmax(c.tree.LeafValue(row))])
	}); err != nil {
		return nil, err
	}
	telemetry.ObservePredict(classifierName, Xv.Rows())
	return matrix.Column(out), nil
}

// PredictProba returns the n×k leaf class distributions; columns follow Classes().
func (c *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	Xv, err := c.checkPredict(X, "PredictProba")
	if err != nil {
		return nil, err
	}
	n := Xv.Rows()
	if n == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(n, c.nClasses_, nil)
	if err := matrix.ForEachRow(Xv, 0, func(i int, row []float64) {
		out.SetRow(i, c.tree.LeafValue(row))
	}); err != nil {
		return nil, err
	}
	telemetry.ObservePredict(classifierName, n)
	return out, nil
}

// DecisionFunction returns the probability of the largest class label for every row. For
// a binary problem this is the confidence in the positive class.
func (c *DecisionTreeClassifier) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	Xv, err := c.checkPredict(X, "DecisionFunction")
	if err != nil {
		return nil, err
	}
	out := make([]float64, Xv.Rows())
	last := c.nClasses_ - 1
	if err := matrix.ForEachRow(Xv, 0, func(i int, row []float64) {
		out[i] = c.tree.LeafValue(row)[last]
	}); err != nil {
		return nil, err
	}
	telemetry.ObservePredict(classifierName, Xv.Rows())
	return matrix.Column(out), nil
}

// Score returns the mean accuracy of Predict(X) against y.
func (c *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, pred)
}

func (c *DecisionTreeClassifier) checkPredict(X mat.Matrix, method string) (matrix.FeatureView, error) {
	if err := c.state.RequireFitted(classifierName, method); err != nil {
		return nil, err
	}
	return checkColumns(X, c.nFeatures_, classifierName+"."+method)
}

// Classes returns the sorted class labels seen during Fit.
func (c *DecisionTreeClassifier) Classes() []int { return c.classes_ }

// Tree returns the induced tree, nil before Fit.
func (c *DecisionTreeClassifier) Tree() *Tree { return c.tree }

// IsFitted reports whether Fit has succeeded.
func (c *DecisionTreeClassifier) IsFitted() bool { return c.state.IsFitted() }

// GetFeatureImportances returns normalized impurity-decrease importances.
func (c *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	if c.tree == nil {
		return nil
	}
	return c.tree.FeatureImportances()
}

// GetDepth returns the depth of the induced tree.
func (c *DecisionTreeClassifier) GetDepth() int {
	if c.tree == nil {
		return 0
	}
	return c.tree.Depth()
}

// GetNLeaves returns the number of leaves of the induced tree.
func (c *DecisionTreeClassifier) GetNLeaves() int {
	if c.tree == nil {
		return 0
	}
	return c.tree.NLeaves()
}

// GetParams returns the hyperparameters.
func (c *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return c.getParams()
}

// SetParams updates the hyperparameters. The fitted tree is kept until the next Fit.
func (c *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	return c.setParams(params)
}

// checkColumns adapts X and verifies it has the column count seen during Fit.
func checkColumns(X mat.Matrix, nFeatures int, op string) (matrix.FeatureView, error) {
	Xv, err := matrix.View(X)
	if err != nil {
		return nil, err
	}
	if Xv.Cols() != nFeatures {
		return nil, scierrors.NewShapeError(op, []int{Xv.Rows(), nFeatures}, []int{Xv.Rows(), Xv.Cols()})
	}
	return Xv, nil
}

// argmax returns the first index of the largest value.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// discard drops any previously fitted tree after a failed Fit.
func (c *DecisionTreeClassifier) discard() {
	c.tree = nil
	c.classes_ = nil
	c.nClasses_ = 0
	c.nFeatures_ = 0
	c.state = model.NewStateManager()
}
