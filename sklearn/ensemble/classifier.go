package ensemble

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/core/matrix"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/metrics"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
	"github.com/YuminosukeSato/sciforest/pkg/telemetry"
	"github.com/YuminosukeSato/sciforest/sklearn/tree"
)

const classifierName = "RandomForestClassifier"

// RandomForestClassifier predicts by majority vote over bootstrapped CART trees.
type RandomForestClassifier struct {
	config
	state *model.StateManager

	forest *Forest
	oob    oobState
}

// NewRandomForestClassifier creates a forest of 100 gini trees with ⌈√d⌉ features per split.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	c := &RandomForestClassifier{
		config: defaultConfig("gini"),
		state:  model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(&c.config)
	}
	return c
}

// Fit grows the forest on X and y.
func (c *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	return c.FitContext(context.Background(), X, y)
}

// FitContext is Fit with cancellation. Trees that have not started when ctx is done are
// skipped and the fit fails. A failed fit leaves the classifier unfitted.
func (c *RandomForestClassifier) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	const op = "RandomForestClassifier.Fit"
	defer func() {
		if err != nil {
			telemetry.ObserveFitError(classifierName)
			c.discard()
		}
	}()
	defer scierrors.Recover(&err, op)
	start := time.Now()

	h, err := c.hyperparameters()
	if err != nil {
		return err
	}
	if !h.Tree.Criterion.IsClassification() {
		return scierrors.NewConfigurationError("criterion", "classifier requires gini or entropy", c.criterion)
	}
	Xv, err := matrix.View(X)
	if err != nil {
		return err
	}
	if Xv.Rows() == 0 {
		return scierrors.NewInsufficientDataError(op, "cannot fit on zero rows", 1, 0)
	}
	targets, err := tree.ClassTargetsFrom(op, Xv, y)
	if err != nil {
		return err
	}

	logger := log.GetLoggerWithName("ensemble.classifier").With(log.ModelNameKey, classifierName)
	logger.Debug("fit started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, Xv.Rows(),
		log.FeaturesKey, Xv.Cols(),
		log.ClassesKey, targets.NClasses(),
		log.TreesKey, h.NEstimators,
		log.WorkersKey, h.NJobs,
		log.RandomSeedKey, h.RandomState,
	)

	f, err := grow(ctx, Xv, targets, h, logger)
	if err != nil {
		return err
	}
	oob := oobState{Enabled: h.OOBScore, Score: math.NaN()}
	if h.OOBScore {
		oob.Score, oob.Valid, err = classifierOOB(f, Xv, targets, h.NJobs)
		if err != nil {
			return err
		}
	}

	c.forest = f
	c.oob = oob
	c.state = model.FittedState(Xv.Cols(), Xv.Rows())

	elapsed := time.Since(start)
	telemetry.ObserveFit(classifierName, len(f.Trees), elapsed)
	logger.Debug("fit finished",
		log.TreesKey, len(f.Trees),
		log.DurationMsKey, elapsed.Milliseconds(),
	)
	return nil
}

// classifierOOB scores every training row by the trees that did not draw it.
func classifierOOB(f *Forest, X matrix.FeatureView, y *tree.Targets, workers int) (float64, bool, error) {
	k := y.NClasses()
	sums, hits, err := f.outOfBag(X, k, workers)
	if err != nil {
		return 0, false, err
	}
	var truth, pred []float64
	for i, h := range hits {
		if h == 0 {
			continue
		}
		truth = append(truth, float64(y.ClassIndex[i]))
		pred = append(pred, float64(argmax(sums[i*k:(i+1)*k])))
	}
	if len(truth) == 0 {
		scierrors.Warn(scierrors.NewUndefinedMetricWarning("oob_score", "every row was drawn by every tree", math.NaN()))
		return math.NaN(), false, nil
	}
	acc, err := metrics.Accuracy(mat.NewVecDense(len(truth), truth), mat.NewVecDense(len(pred), pred))
	if err != nil {
		return 0, false, err
	}
	return acc, true, nil
}

// Predict returns the majority vote of the trees for every row as an n×1 matrix. Ties go to
// the smallest label.
func (c *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	votes, err := c.votes(X, "Predict")
	if err != nil {
		return nil, err
	}
	n, _ := votes.Dims()
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(c.forest.Classes[argmax(votes.RawRowView(i))])
	}
	return matrix.Column(out), nil
}

// PredictVotes returns the n×k tally of tree votes; columns follow Classes() and every row
// sums to the number of trees.
func (c *RandomForestClassifier) PredictVotes(X mat.Matrix) (mat.Matrix, error) {
	return c.votes(X, "PredictVotes")
}

func (c *RandomForestClassifier) votes(X mat.Matrix, method string) (*mat.Dense, error) {
	Xv, err := c.checkPredict(X, method)
	if err != nil {
		return nil, err
	}
	n := Xv.Rows()
	if n == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(n, len(c.forest.Classes), nil)
	if err := matrix.ForEachRow(Xv, c.nJobs, func(i int, row []float64) {
		tally := out.RawRowView(i)
		for _, t := range c.forest.Trees {
			tally[argmax(t.LeafValue(row))]++
		}
	}); err != nil {
		return nil, err
	}
	telemetry.ObservePredict(classifierName, n)
	return out, nil
}

// PredictProba returns the n×k mean of the trees' leaf class distributions.
func (c *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	return c.proba(X, "PredictProba")
}

func (c *RandomForestClassifier) proba(X mat.Matrix, method string) (*mat.Dense, error) {
	Xv, err := c.checkPredict(X, method)
	if err != nil {
		return nil, err
	}
	n := Xv.Rows()
	if n == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(n, len(c.forest.Classes), nil)
	scale := 1 / float64(len(c.forest.Trees))
	if err := matrix.ForEachRow(Xv, c.nJobs, func(i int, row []float64) {
		dst := out.RawRowView(i)
		for _, t := range c.forest.Trees {
			for j, v := range t.LeafValue(row) {
				dst[j] += v
			}
		}
		for j := range dst {
			dst[j] *= scale
		}
	}); err != nil {
		return nil, err
	}
	telemetry.ObservePredict(classifierName, n)
	return out, nil
}

// DecisionFunction returns the mean probability of the largest class label for every row.
func (c *RandomForestClassifier) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	p, err := c.proba(X, "DecisionFunction")
	if err != nil {
		return nil, err
	}
	n, k := p.Dims()
	if n == 0 {
		return &mat.Dense{}, nil
	}
	return matrix.Column(mat.Col(nil, k-1, p)), nil
}

// Score returns the mean accuracy of Predict(X) against y.
func (c *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, pred)
}

// OOBScore returns the out-of-bag accuracy computed by Fit.
func (c *RandomForestClassifier) OOBScore() (float64, error) {
	return c.oob.result(c.state, classifierName)
}

func (c *RandomForestClassifier) checkPredict(X mat.Matrix, method string) (matrix.FeatureView, error) {
	if err := c.state.RequireFitted(classifierName, method); err != nil {
		return nil, err
	}
	return checkColumns(X, c.forest.NFeatures, classifierName+"."+method)
}

// Classes returns the sorted class labels seen during Fit.
func (c *RandomForestClassifier) Classes() []int {
	if c.forest == nil {
		return nil
	}
	return c.forest.Classes
}

// Forest returns the fitted ensemble, nil before Fit.
func (c *RandomForestClassifier) Forest() *Forest { return c.forest }

// IsFitted reports whether Fit has succeeded.
func (c *RandomForestClassifier) IsFitted() bool { return c.state.IsFitted() }

// GetFeatureImportances returns the normalized mean of the per-tree importances.
func (c *RandomForestClassifier) GetFeatureImportances() []float64 {
	if c.forest == nil {
		return nil
	}
	return c.forest.FeatureImportances()
}

// GetParams returns the hyperparameters.
func (c *RandomForestClassifier) GetParams() map[string]interface{} {
	return c.getParams()
}

// SetParams updates the hyperparameters. The fitted forest is kept until the next Fit.
func (c *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	return c.setParams(params)
}

// oobState is the out-of-bag result of the last Fit.
type oobState struct {
	Enabled bool
	Valid   bool
	Score   float64
}

func (o oobState) result(st *model.StateManager, name string) (float64, error) {
	if err := st.RequireFitted(name, "OOBScore"); err != nil {
		return 0, err
	}
	if !o.Enabled {
		return 0, scierrors.NewConfigurationError("oob_score", "out-of-bag scoring was disabled during Fit", false)
	}
	if !o.Valid {
		return 0, scierrors.NewInsufficientDataError(name+".OOBScore", "no row was left out of any tree", 1, 0)
	}
	return o.Score, nil
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

// discard drops the previous forest after a failed fit.
func (c *RandomForestClassifier) discard() {
	c.forest = nil
	c.oob = oobState{Score: math.NaN()}
	c.state = model.NewStateManager()
}
