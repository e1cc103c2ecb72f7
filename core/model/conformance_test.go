package model_test

import (
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/sklearn/ensemble"
	"github.com/YuminosukeSato/sciforest/sklearn/multiclass"
	"github.com/YuminosukeSato/sciforest/sklearn/tree"
)

var (
	_ model.Classifier         = (*tree.DecisionTreeClassifier)(nil)
	_ model.DecisionFunctioner = (*tree.DecisionTreeClassifier)(nil)
	_ model.Regressor          = (*tree.DecisionTreeRegressor)(nil)
	_ model.Classifier         = (*ensemble.RandomForestClassifier)(nil)
	_ model.DecisionFunctioner = (*ensemble.RandomForestClassifier)(nil)
	_ model.Regressor          = (*ensemble.RandomForestRegressor)(nil)
	_ model.Classifier         = (*multiclass.OneVsRestClassifier)(nil)

	_ model.FeatureImportancer = (*tree.DecisionTreeRegressor)(nil)
	_ model.FeatureImportancer = (*ensemble.RandomForestRegressor)(nil)
	_ model.FeatureImportancer = (*multiclass.OneVsRestClassifier)(nil)

	_ model.ParameterGetter = (*tree.DecisionTreeClassifier)(nil)
	_ model.ParameterSetter = (*ensemble.RandomForestClassifier)(nil)
	_ model.ParameterSetter = (*multiclass.OneVsRestClassifier)(nil)
)
