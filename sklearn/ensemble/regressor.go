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

const regressorName = "RandomForestRegressor"

// RandomForestRegressor averages the predictions of bootstrapped regression trees.
type RandomForestRegressor struct {
	config
	state *model.StateManager

	forest *Forest
	oob    oobState
}

// NewRandomForestRegressor creates a forest of 100 squared-error trees with ⌈√d⌉ features
// per split.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	r := &RandomForestRegressor{
		config: defaultConfig("squared_error"),
		state:  model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(&r.config)
	}
	return r
}

// Fit grows the forest on X and y.
func (r *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	return r.FitContext(context.Background(), X, y)
}

// FitContext is Fit with cancellation.
func (r *RandomForestRegressor) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	const op = "RandomForestRegressor.Fit"
	defer func() {
		if err != nil {
			telemetry.ObserveFitError(regressorName)
			r.discard()
		}
	}()
	defer scierrors.Recover(&err, op)
	start := time.Now()

	h, err := r.hyperparameters()
	if err != nil {
		return err
	}
	if h.Tree.Criterion != tree.Variance {
		return scierrors.NewConfigurationError("criterion", "regressor requires squared_error", r.criterion)
	}
	Xv, err := matrix.View(X)
	if err != nil {
		return err
	}
	if Xv.Rows() == 0 {
		return scierrors.NewInsufficientDataError(op, "cannot fit on zero rows", 1, 0)
	}
	values, err := matrix.Labels(y, Xv.Rows())
	if err != nil {
		return err
	}
	if err := scierrors.CheckNumericalStability(op, values, -1); err != nil {
		return err
	}

	logger := log.GetLoggerWithName("ensemble.regressor").With(log.ModelNameKey, regressorName)
	logger.Debug("fit started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, Xv.Rows(),
		log.FeaturesKey, Xv.Cols(),
		log.TreesKey, h.NEstimators,
		log.WorkersKey, h.NJobs,
		log.RandomSeedKey, h.RandomState,
	)

	f, err := grow(ctx, Xv, tree.NewRegressionTargets(values), h, logger)
	if err != nil {
		return err
	}
	oob := oobState{Enabled: h.OOBScore, Score: math.NaN()}
	if h.OOBScore {
		oob.Score, oob.Valid, err = regressorOOB(f, Xv, values, h.NJobs)
		if err != nil {
			return err
		}
	}

	r.forest = f
	r.oob = oob
	r.state = model.FittedState(Xv.Cols(), Xv.Rows())

	elapsed := time.Since(start)
	telemetry.ObserveFit(regressorName, len(f.Trees), elapsed)
	logger.Debug("fit finished",
		log.TreesKey, len(f.Trees),
		log.DurationMsKey, elapsed.Milliseconds(),
	)
	return nil
}

// regressorOOB computes R² of the out-of-bag mean predictions.
func regressorOOB(f *Forest, X matrix.FeatureView, y []float64, workers int) (float64, bool, error) {
	sums, hits, err := f.outOfBag(X, 1, workers)
	if err != nil {
		return 0, false, err
	}
	var truth, pred []float64
	for i, h := range hits {
		if h == 0 {
			continue
		}
		truth = append(truth, y[i])
		pred = append(pred, sums[i]/float64(h))
	}
	if len(truth) < 2 {
		scierrors.Warn(scierrors.NewUndefinedMetricWarning("oob_score", "fewer than two rows were left out of a tree", math.NaN()))
		return math.NaN(), false, nil
	}
	r2, err := metrics.R2Score(mat.NewVecDense(len(truth), truth), mat.NewVecDense(len(pred), pred))
	if err != nil {
		scierrors.Warn(scierrors.NewUndefinedMetricWarning("oob_score", err.Error(), math.NaN()))
		return math.NaN(), false, nil
	}
	return r2, true, nil
}

// Predict returns the mean tree prediction of every row as an n×1 matrix.
func (r *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xv, err := r.checkPredict(X, "Predict")
	if err != nil {
		return nil, err
	}
	out := make([]float64, Xv.Rows())
	scale := 1 / float64(len(r.forest.Trees))
	if err := matrix.ForEachRow(Xv, r.nJobs, func(i int, row []float64) {
		sum := 0.0
		for _, t := range r.forest.Trees {
			sum += t.LeafValue(row)[0]
		}
		out[i] = sum * scale
	}); err != nil {
		return nil, err
	}
	telemetry.ObservePredict(regressorName, Xv.Rows())
	return matrix.Column(out), nil
}

// Score returns the R² of Predict(X) against y.
func (r *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// OOBScore returns the out-of-bag R² computed by Fit.
func (r *RandomForestRegressor) OOBScore() (float64, error) {
	return r.oob.result(r.state, regressorName)
}

func (r *RandomForestRegressor) checkPredict(X mat.Matrix, method string) (matrix.FeatureView, error) {
	if err := r.state.RequireFitted(regressorName, method); err != nil {
		return nil, err
	}
	return checkColumns(X, r.forest.NFeatures, regressorName+"."+method)
}

// Forest returns the fitted ensemble, nil before Fit.
func (r *RandomForestRegressor) Forest() *Forest { return r.forest }

// IsFitted reports whether Fit has succeeded.
func (r *RandomForestRegressor) IsFitted() bool { return r.state.IsFitted() }

// GetFeatureImportances returns the normalized mean of the per-tree importances.
func (r *RandomForestRegressor) GetFeatureImportances() []float64 {
	if r.forest == nil {
		return nil
	}
	return r.forest.FeatureImportances()
}

// GetParams returns the hyperparameters.
func (r *RandomForestRegressor) GetParams() map[string]interface{} {
	return r.getParams()
}

// SetParams updates the hyperparameters.
func (r *RandomForestRegressor) SetParams(params map[string]interface{}) error {
	return r.setParams(params)
}

// discard drops the previous forest after a failed fit.
func (r *RandomForestRegressor) discard() {
	r.forest = nil
	r.oob = oobState{Score: math.NaN()}
	r.state = model.NewStateManager()
}
