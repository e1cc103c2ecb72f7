// Package multiclass reduces multiclass problems to binary ones.
//
// OneVsRestClassifier trains one binary estimator per class, each separating that class from
// all others, and predicts the class whose estimator is most confident:
//
//	ovr := multiclass.NewOneVsRestClassifier(func() multiclass.BinaryEstimator {
//	    return ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(50))
//	})
//	if err := ovr.Fit(X, y); err != nil {
//	    return err
//	}
package multiclass

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/core/matrix"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/core/parallel"
	"github.com/YuminosukeSato/sciforest/metrics"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
	"github.com/YuminosukeSato/sciforest/pkg/telemetry"
	"github.com/YuminosukeSato/sciforest/sklearn/tree"
)

const modelName = "OneVsRestClassifier"

// BinaryEstimator is trained on targets relabeled 1 (the class) and 0 (the rest). Its
// confidence comes from DecisionFunction when it implements model.DecisionFunctioner,
// otherwise from Predict.
type BinaryEstimator interface {
	model.Estimator
}

// EstimatorFactory returns a fresh, unfitted estimator for one class.
type EstimatorFactory func() BinaryEstimator

// Option configures a OneVsRestClassifier.
type Option func(*OneVsRestClassifier)

// WithNJobs bounds the number of per-class fits and predictions run at once. Values < 1 use
// every CPU.
func WithNJobs(n int) Option {
	return func(o *OneVsRestClassifier) { o.nJobs = n }
}

// OneVsRestClassifier is a multiclass classifier built from binary estimators.
type OneVsRestClassifier struct {
	factory EstimatorFactory
	nJobs   int
	state   *model.StateManager

	classes_    []int
	estimators_ []BinaryEstimator
	nFeatures_  int
}

// NewOneVsRestClassifier creates a wrapper that draws its estimators from factory.
func NewOneVsRestClassifier(factory EstimatorFactory, opts ...Option) *OneVsRestClassifier {
	o := &OneVsRestClassifier{
		factory: factory,
		state:   model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Fit trains the per-class estimators. With two classes a single estimator is trained for
// the larger label.
func (o *OneVsRestClassifier) Fit(X, y mat.Matrix) error {
	return o.FitContext(context.Background(), X, y)
}

// FitContext is Fit with cancellation. Every per-class fit runs to completion and all of
// their failures are returned together. A failed fit leaves the wrapper unfitted.
func (o *OneVsRestClassifier) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	const op = "OneVsRestClassifier.Fit"
	defer func() {
		if err != nil {
			telemetry.ObserveFitError(modelName)
			o.discard()
		}
	}()
	defer scierrors.Recover(&err, op)
	start := time.Now()

	if o.factory == nil {
		return scierrors.NewConfigurationError("estimator", "factory must not be nil", nil)
	}
	Xv, err := matrix.View(X)
	if err != nil {
		return err
	}
	if Xv.Rows() == 0 {
		return scierrors.NewInsufficientDataError(op, "cannot fit on zero rows", 1, 0)
	}
	labels, err := matrix.ClassLabels(y, Xv.Rows())
	if err != nil {
		return err
	}
	classes := matrix.UniqueSorted(labels)
	if len(classes) < 2 {
		return scierrors.NewInsufficientDataError(op, "need at least two distinct labels", 2, len(classes))
	}

	// positives[j] is the class estimator j separates from the rest.
	positives := classes
	if len(classes) == 2 {
		positives = classes[1:]
	}

	logger := log.GetLoggerWithName("multiclass.ovr").With(log.ModelNameKey, modelName)
	logger.Debug("fit started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, Xv.Rows(),
		log.FeaturesKey, Xv.Cols(),
		log.ClassesKey, len(classes),
	)

	estimators := make([]BinaryEstimator, len(positives))
	errs := make([]error, len(positives))
	err = parallel.ForEach(ctx, len(positives), parallel.Workers(o.nJobs), func(_ context.Context, j int) error {
		kind := fmt.Sprintf("class %d", positives[j])
		errs[j] = scierrors.SafeExecute(op+" "+kind, func() error {
			est := o.factory()
			if est == nil {
				return scierrors.NewConfigurationError("estimator", "factory returned nil", nil)
			}
			if err := est.Fit(Xv, binaryTargets(labels, positives[j])); err != nil {
				return scierrors.NewModelError(op, kind, err)
			}
			estimators[j] = est
			return nil
		})
		return nil
	})
	if err != nil {
		return err
	}
	if err := multierr.Combine(errs...); err != nil {
		return err
	}

	o.classes_ = classes
	o.estimators_ = estimators
	o.nFeatures_ = Xv.Cols()
	o.state = model.FittedState(Xv.Cols(), Xv.Rows())

	elapsed := time.Since(start)
	telemetry.ObserveFit(modelName, 0, elapsed)
	logger.Debug("fit finished",
		log.DurationMsKey, elapsed.Milliseconds(),
	)
	return nil
}

func binaryTargets(labels []int, positive int) *mat.Dense {
	y := make([]float64, len(labels))
	for i, l := range labels {
		if l == positive {
			y[i] = 1
		}
	}
	return matrix.Column(y)
}

// DecisionFunction returns the n×m confidence of each estimator, m = 1 for a binary problem
// and the number of classes otherwise.
func (o *OneVsRestClassifier) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	scores, n, err := o.columns(X, "DecisionFunction", false)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(n, len(scores), nil)
	for j, col := range scores {
		out.SetCol(j, col)
	}
	return out, nil
}

// Predict returns the most confident class of every row, ties going to the smallest label.
// For a binary problem the single estimator's own Predict decides: 1 maps to the larger
// label, anything else to the smaller one.
func (o *OneVsRestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	binary := len(o.classes_) == 2
	scores, n, err := o.columns(X, "Predict", binary)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		if binary {
			out[i] = float64(o.classes_[0])
			if scores[0][i] == 1 {
				out[i] = float64(o.classes_[1])
			}
			continue
		}
		best := 0
		for j := 1; j < len(scores); j++ {
			if scores[j][i] > scores[best][i] {
				best = j
			}
		}
		out[i] = float64(o.classes_[best])
	}
	telemetry.ObservePredict(modelName, n)
	return matrix.Column(out), nil
}

// PredictProba returns n×k class probabilities. It requires estimators that implement
// PredictProba; the positive-class probabilities are normalized across classes.
func (o *OneVsRestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	Xv, err := o.checkPredict(X, "PredictProba")
	if err != nil {
		return nil, err
	}
	n := Xv.Rows()
	if n == 0 {
		return &mat.Dense{}, nil
	}
	pos := make([][]float64, len(o.estimators_))
	err = o.forEachEstimator(func(j int, est BinaryEstimator) error {
		pc, ok := est.(interface {
			PredictProba(X mat.Matrix) (mat.Matrix, error)
		})
		if !ok {
			return scierrors.NewConfigurationError("estimator", "does not implement PredictProba", nil)
		}
		p, err := pc.PredictProba(Xv)
		if err != nil {
			return err
		}
		_, c := p.Dims()
		pos[j] = mat.Col(nil, c-1, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	k := len(o.classes_)
	out := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		row := out.RawRowView(i)
		if k == 2 {
			row[0], row[1] = 1-pos[0][i], pos[0][i]
			continue
		}
		total := 0.0
		for j := range row {
			row[j] = pos[j][i]
			total += row[j]
		}
		for j := range row {
			if total > 0 {
				row[j] /= total
			} else {
				row[j] = 1 / float64(k)
			}
		}
	}
	return out, nil
}

// Score returns the mean accuracy of Predict(X) against y.
func (o *OneVsRestClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := o.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, pred)
}

// columns collects one n×1 output per estimator: Predict when labels is set, otherwise the
// DecisionFunction confidence (falling back to Predict).
func (o *OneVsRestClassifier) columns(X mat.Matrix, method string, labels bool) ([][]float64, int, error) {
	Xv, err := o.checkPredict(X, method)
	if err != nil {
		return nil, 0, err
	}
	n := Xv.Rows()
	cols := make([][]float64, len(o.estimators_))
	if n == 0 {
		return cols, 0, nil
	}
	err = o.forEachEstimator(func(j int, est BinaryEstimator) error {
		var s mat.Matrix
		var err error
		if df, ok := est.(model.DecisionFunctioner); ok && !labels {
			s, err = df.DecisionFunction(Xv)
		} else {
			s, err = est.Predict(Xv)
		}
		if err != nil {
			return scierrors.Wrapf(err, "class %d", o.positive(j))
		}
		if r, c := s.Dims(); r != n || c != 1 {
			return scierrors.NewShapeError(modelName+"."+method, []int{n, 1}, []int{r, c})
		}
		cols[j] = mat.Col(nil, 0, s)
		return nil
	})
	return cols, n, err
}

// forEachEstimator runs fn for every fitted estimator and combines their errors.
func (o *OneVsRestClassifier) forEachEstimator(fn func(j int, est BinaryEstimator) error) error {
	errs := make([]error, len(o.estimators_))
	_ = parallel.ForEach(context.Background(), len(o.estimators_), parallel.Workers(o.nJobs), func(_ context.Context, j int) error {
		errs[j] = fn(j, o.estimators_[j])
		return nil
	})
	return multierr.Combine(errs...)
}

func (o *OneVsRestClassifier) positive(j int) int {
	if len(o.classes_) == 2 {
		return o.classes_[1]
	}
	return o.classes_[j]
}

func (o *OneVsRestClassifier) checkPredict(X mat.Matrix, method string) (matrix.FeatureView, error) {
	if err := o.state.RequireFitted(modelName, method); err != nil {
		return nil, err
	}
	Xv, err := matrix.View(X)
	if err != nil {
		return nil, err
	}
	if Xv.Cols() != o.nFeatures_ {
		return nil, scierrors.NewShapeError(modelName+"."+method, []int{Xv.Rows(), o.nFeatures_}, []int{Xv.Rows(), Xv.Cols()})
	}
	return Xv, nil
}

// Classes returns the sorted labels seen during Fit.
func (o *OneVsRestClassifier) Classes() []int { return o.classes_ }

// Estimators returns the fitted binary estimators, one per class or a single one for a
// binary problem.
func (o *OneVsRestClassifier) Estimators() []BinaryEstimator { return o.estimators_ }

// IsFitted reports whether Fit has succeeded.
func (o *OneVsRestClassifier) IsFitted() bool { return o.state.IsFitted() }

// GetFeatureImportances averages the importances of estimators that report them. It
// returns nil when none does.
func (o *OneVsRestClassifier) GetFeatureImportances() []float64 {
	var mean []float64
	count := 0
	for _, est := range o.estimators_ {
		fi, ok := est.(model.FeatureImportancer)
		if !ok {
			continue
		}
		imp := fi.GetFeatureImportances()
		if mean == nil {
			mean = make([]float64, len(imp))
		}
		for j, v := range imp {
			mean[j] += v
		}
		count++
	}
	for j := range mean {
		mean[j] /= float64(count)
	}
	return mean
}

// GetParams returns the wrapper's own hyperparameters.
func (o *OneVsRestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{"n_jobs": o.nJobs}
}

// SetParams updates n_jobs.
func (o *OneVsRestClassifier) SetParams(params map[string]interface{}) error {
	nJobs := o.nJobs
	for key, value := range params {
		if key != "n_jobs" {
			return scierrors.NewConfigurationError(key, "unknown parameter", value)
		}
		v, err := tree.IntParam(key, value)
		if err != nil {
			return err
		}
		nJobs = v
	}
	o.nJobs = nJobs
	return nil
}

func (o *OneVsRestClassifier) discard() {
	o.classes_ = nil
	o.estimators_ = nil
	o.nFeatures_ = 0
	o.state = model.NewStateManager()
}
