package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer is the interface for models that can compute a score: mean accuracy for
// classifiers, R² for regressors.
type Scorer interface {
	Score(X, y mat.Matrix) (float64, error)
}

// Regressor combines interfaces for regression models.
type Regressor interface {
	Estimator
	Scorer
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	ProbabilisticClassifier
	Scorer
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters keyed by their snake_case names.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters. Unknown keys and wrong types fail with a
	// configuration error.
	SetParams(params map[string]interface{}) error
}

// FeatureImportancer is implemented by tree-based models.
type FeatureImportancer interface {
	// GetFeatureImportances returns normalized impurity-decrease importances.
	GetFeatureImportances() []float64
}
