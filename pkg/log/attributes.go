// Standard attribute keys. They follow a hierarchical naming convention ("model.name",
// "data.samples") so that fit and predict records can be filtered uniformly.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model, e.g. "RandomForestClassifier".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of distinct class labels.
	ClassesKey = "data.classes"

	// MatrixKindKey is "dense" or "sparse".
	MatrixKindKey = "data.matrix_kind"
)

// Performance and Results
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// WorkersKey records the number of parallel workers used.
	WorkersKey = "perf.workers"

	// AccuracyKey records accuracy, e.g. the out-of-bag score of a classifier.
	AccuracyKey = "metrics.accuracy"

	// R2ScoreKey records R² for regression.
	R2ScoreKey = "metrics.r2_score"

	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"
)

// Tree Structure
const (
	// TreesKey records the number of trees in an ensemble.
	TreesKey = "tree.count"

	// TreeIndexKey identifies a tree inside an ensemble.
	TreeIndexKey = "tree.index"

	// DepthKey records the depth of an induced tree.
	DepthKey = "tree.depth"

	// LeavesKey records the number of leaves of an induced tree.
	LeavesKey = "tree.leaves"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Error Context
const (
	// ErrorKey carries the error value itself.
	ErrorKey = "error"

	// StacktraceKey contains stack trace information extracted from cockroachdb/errors.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationPredictProba = "predict_proba"
	OperationScore        = "score"
)
