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

const regressorName = "DecisionTreeRegressor"

// DecisionTreeRegressor is a CART regressor minimizing within-node variance. Leaves predict
// the mean target of their training rows.
type DecisionTreeRegressor struct {
	config
	state *model.StateManager

	tree       *Tree
	nFeatures_ int
}

// NewDecisionTreeRegressor creates a regressor with criterion "squared_error",
// min_samples_split 2, min_samples_leaf 1 and unbounded depth.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	r := &DecisionTreeRegressor{
		config: defaultConfig("squared_error"),
		state:  model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(&r.config)
	}
	return r
}

// Fit grows the tree on X and y.
func (r *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer func() {
		if err != nil {
			telemetry.ObserveFitError(regressorName)
			r.discard()
		}
	}()
	defer scierrors.Recover(&err, "DecisionTreeRegressor.Fit")
	start := time.Now()

	h, err := r.hyperparameters()
	if err != nil {
		return err
	}
	if h.Criterion != Variance {
		return scierrors.NewConfigurationError("criterion", "regressor requires squared_error", r.criterion)
	}

	Xv, err := matrix.View(X)
	if err != nil {
		return err
	}
	if Xv.Rows() == 0 {
		return scierrors.NewInsufficientDataError("DecisionTreeRegressor.Fit", "cannot fit on zero rows", 1, 0)
	}
	values, err := matrix.Labels(y, Xv.Rows())
	if err != nil {
		return err
	}
	if err := scierrors.CheckNumericalStability("DecisionTreeRegressor.Fit", values, -1); err != nil {
		return err
	}

	logger := log.GetLoggerWithName("tree.regressor").With(log.ModelNameKey, regressorName)
	logger.Debug("fit started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, Xv.Rows(),
		log.FeaturesKey, Xv.Cols(),
		log.MatrixKindKey, Xv.Kind().String(),
	)

	t, err := Build(Xv, NewRegressionTargets(values), h, rand.New(rand.NewPCG(r.randomState, 0)))
	if err != nil {
		return err
	}

	r.tree = t
	r.nFeatures_ = Xv.Cols()
	r.state = model.FittedState(Xv.Cols(), Xv.Rows())

	elapsed := time.Since(start)
	telemetry.ObserveFit(regressorName, 1, elapsed)
	logger.Debug("fit finished",
		log.DepthKey, t.Depth(),
		log.LeavesKey, t.NLeaves(),
		log.DurationMsKey, elapsed.Milliseconds(),
	)
	return nil
}

// Predict returns the leaf mean of every row as an n×1 matrix.
func (r *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.state.RequireFitted(regressorName, "Predict"); err != nil {
		return nil, err
	}
	Xv, err := checkColumns(X, r.nFeatures_, regressorName+".Predict")
	if err != nil {
		return nil, err
	}
	out := make([]float64, Xv.Rows())
	if err := matrix.ForEachRow(Xv, 0, func(i int, row []float64) {
		out[i] = r.tree.LeafValue(row)[0]
	}); err != nil {
		return nil, err
	}
	telemetry.ObservePredict(regressorName, Xv.Rows())
	return matrix.Column(out), nil
}

// Score returns the coefficient of determination R² of Predict(X) against y.
func (r *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// Tree returns the induced tree, nil before Fit.
func (r *DecisionTreeRegressor) Tree() *Tree { return r.tree }

// IsFitted reports whether Fit has succeeded.
func (r *DecisionTreeRegressor) IsFitted() bool { return r.state.IsFitted() }

// GetFeatureImportances returns normalized impurity-decrease importances.
func (r *DecisionTreeRegressor) GetFeatureImportances() []float64 {
	if r.tree == nil {
		return nil
	}
	return r.tree.FeatureImportances()
}

// GetDepth returns the depth of the induced tree.
func (r *DecisionTreeRegressor) GetDepth() int {
	if r.tree == nil {
		return 0
	}
	return r.tree.Depth()
}

// GetNLeaves returns the number of leaves of the induced tree.
func (r *DecisionTreeRegressor) GetNLeaves() int {
	if r.tree == nil {
		return 0
	}
	return r.tree.NLeaves()
}

// GetParams returns the hyperparameters.
func (r *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return r.getParams()
}

// SetParams updates the hyperparameters.
func (r *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	return r.setParams(params)
}

func (r *DecisionTreeRegressor) discard() {
	r.tree = nil
	r.nFeatures_ = 0
	r.state = model.NewStateManager()
}
