// Package model defines the fit/predict contract shared by every estimator, plus state
// tracking and persistence helpers.
//
// Feature matrices are passed as mat.Matrix: a *mat.Dense, a matrix.Dense or a matrix.Sparse
// are all accepted. Label and prediction vectors are n×1 matrices.
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is the fit/predict contract. Decision trees, random forests and the one-vs-rest
// wrapper all satisfy it, and so can any external model.
type Estimator interface {
	Fitter
	Predictor
}

// DecisionFunctioner は連続値スコアを返すモデルのインターフェース。
// For binary classifiers the score is the confidence in the larger class label.
type DecisionFunctioner interface {
	DecisionFunction(X mat.Matrix) (mat.Matrix, error)
}

// ProbabilisticClassifier は確率推定が可能な分類器のインターフェース
type ProbabilisticClassifier interface {
	Estimator

	// PredictProba returns an n×k matrix whose columns follow Classes().
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the sorted class labels seen during fitting.
	Classes() []int
}
