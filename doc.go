// Package sciforest provides CART decision trees, random forests and one-vs-rest
// classification for Go, running the same way over dense and sparse feature matrices.
//
// The API follows scikit-learn: estimators are configured with functional options, trained
// with Fit and applied with Predict, and expose GetParams/SetParams for tooling. Inputs are
// any gonum mat.Matrix; matrix.Dense and matrix.Sparse (CSR) avoid conversion copies.
//
// # Features
//
// - Exact CART split search with gini, entropy and squared-error criteria
// - Sparse-aware induction: zero entries are never materialized
// - Random forests fitted in parallel with results independent of scheduling
// - Out-of-bag scoring and impurity-based feature importances
// - JSON and gob persistence, Graphviz rendering of individual trees
// - Structured logging (zerolog) and Prometheus metrics
//
// # Installation
//
//	go get github.com/YuminosukeSato/sciforest
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/sciforest/sklearn/ensemble"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 2, []float64{1, 5, 2, 3, 3, 8, 4, 1})
//	    y := mat.NewVecDense(4, []float64{0, 0, 1, 1})
//
//	    rf := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(50))
//	    if err := rf.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    pred, err := rf.Predict(mat.NewDense(1, 2, []float64{3.5, 2}))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(mat.Formatted(pred))
//	}
//
// # Packages
//
//   - core/matrix: dense and CSR feature matrices, .npy and svmlight IO
//   - core/model: estimator interfaces, fitted-state tracking, persistence helpers
//   - core/parallel: fork-join helpers keyed by row or tree index
//   - sklearn/tree: DecisionTreeClassifier, DecisionTreeRegressor, Graphviz export
//   - sklearn/ensemble: RandomForestClassifier, RandomForestRegressor
//   - sklearn/multiclass: OneVsRestClassifier over any binary estimator
//   - metrics: accuracy, R² and regression errors
//   - pkg/errors, pkg/log, pkg/telemetry: error taxonomy, logging, metrics
//   - cmd/sciforest: command-line training and inspection
//
// # Reproducibility
//
// Every random draw comes from a PCG stream keyed by (random_state, tree index), so a
// forest is identical whether it is fitted with one worker or many.
//
// # License
//
// sciforest is released under the MIT License.
package sciforest
