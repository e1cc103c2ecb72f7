package main

import (
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/core/matrix"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
)

// loadData reads the feature matrix and, when present, the labels named by --data/--labels
// or --svmlight. nFeatures fixes the svmlight column count; 0 infers it.
func loadData(v *viper.Viper, nFeatures int) (mat.Matrix, mat.Matrix, error) {
	dataPath, svmPath := v.GetString("data"), v.GetString("svmlight")
	logger := log.GetLoggerWithName("cli.data")

	switch {
	case dataPath != "" && svmPath != "":
		return nil, nil, scierrors.NewConfigurationError("data", "--data and --svmlight are mutually exclusive", dataPath)
	case svmPath != "":
		X, y, err := matrix.ReadSVMLightFile(svmPath, nFeatures)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("loaded svmlight file",
			"path", svmPath,
			log.SamplesKey, X.Rows(),
			log.FeaturesKey, X.Cols(),
			"nnz", X.NNZ(),
		)
		return X, matrix.Column(y), nil
	case dataPath != "":
		X, err := matrix.ReadNpyFile(dataPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("loaded npy file",
			"path", dataPath,
			log.SamplesKey, X.Rows(),
			log.FeaturesKey, X.Cols(),
		)
		labelsPath := v.GetString("labels")
		if labelsPath == "" {
			return X, nil, nil
		}
		y, err := matrix.ReadNpyFile(labelsPath)
		if err != nil {
			return nil, nil, err
		}
		return X, y, nil
	}
	return nil, nil, scierrors.NewConfigurationError("data", "one of --data or --svmlight is required", "")
}
