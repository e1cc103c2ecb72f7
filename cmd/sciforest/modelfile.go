package main

import (
	"encoding/gob"

	"github.com/YuminosukeSato/sciforest/core/model"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/sklearn/ensemble"
	"github.com/YuminosukeSato/sciforest/sklearn/multiclass"
	"github.com/YuminosukeSato/sciforest/sklearn/tree"
)

// Model kinds stored in a model file.
const (
	kindTreeClassifier   = "tree-classifier"
	kindTreeRegressor    = "tree-regressor"
	kindForestClassifier = "forest-classifier"
	kindForestRegressor  = "forest-regressor"
	kindOvRTree          = "ovr-tree"
	kindOvRForest        = "ovr-forest"
)

// envelope is the on-disk model file: the estimator's own gob encoding tagged with its kind.
type envelope struct {
	Kind    string
	Payload []byte
}

type gobEstimator interface {
	model.Estimator
	gob.GobEncoder
	gob.GobDecoder
}

// newEstimator returns an empty estimator of the given kind, ready for GobDecode.
func newEstimator(kind string) (gobEstimator, error) {
	switch kind {
	case kindTreeClassifier:
		return tree.NewDecisionTreeClassifier(), nil
	case kindTreeRegressor:
		return tree.NewDecisionTreeRegressor(), nil
	case kindForestClassifier:
		return ensemble.NewRandomForestClassifier(), nil
	case kindForestRegressor:
		return ensemble.NewRandomForestRegressor(), nil
	case kindOvRTree:
		return multiclass.NewOneVsRestClassifier(func() multiclass.BinaryEstimator {
			return tree.NewDecisionTreeClassifier()
		}), nil
	case kindOvRForest:
		return multiclass.NewOneVsRestClassifier(func() multiclass.BinaryEstimator {
			return ensemble.NewRandomForestClassifier()
		}), nil
	}
	return nil, scierrors.NewConfigurationError("kind", "unknown model kind", kind)
}

func saveModel(path, kind string, est gobEstimator) error {
	payload, err := est.GobEncode()
	if err != nil {
		return err
	}
	return model.SaveModel(envelope{Kind: kind, Payload: payload}, path)
}

// loadedModel is a decoded model file.
type loadedModel struct {
	Kind      string
	Estimator gobEstimator
}

func loadModel(path string) (*loadedModel, error) {
	var env envelope
	if err := model.LoadModel(&env, path); err != nil {
		return nil, err
	}
	est, err := newEstimator(env.Kind)
	if err != nil {
		return nil, err
	}
	if err := est.GobDecode(env.Payload); err != nil {
		return nil, scierrors.Wrapf(err, "failed to decode %s", env.Kind)
	}
	return &loadedModel{Kind: env.Kind, Estimator: est}, nil
}

// Trees returns every fitted tree of the model in a stable order.
func (m *loadedModel) Trees() []*tree.Tree {
	return treesOf(m.Estimator)
}

func treesOf(est model.Estimator) []*tree.Tree {
	switch e := est.(type) {
	case *tree.DecisionTreeClassifier:
		return []*tree.Tree{e.Tree()}
	case *tree.DecisionTreeRegressor:
		return []*tree.Tree{e.Tree()}
	case *ensemble.RandomForestClassifier:
		return e.Forest().Trees
	case *ensemble.RandomForestRegressor:
		return e.Forest().Trees
	case *multiclass.OneVsRestClassifier:
		var trees []*tree.Tree
		for _, sub := range e.Estimators() {
			trees = append(trees, treesOf(sub)...)
		}
		return trees
	}
	return nil
}

// NFeatures returns the column count the model was fitted on.
func (m *loadedModel) NFeatures() int {
	trees := m.Trees()
	if len(trees) == 0 {
		return 0
	}
	return trees[0].NFeatures
}
