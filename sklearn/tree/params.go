package tree

import (
	"math"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// config holds the hyperparameters shared by DecisionTreeClassifier and
// DecisionTreeRegressor.
type config struct {
	criterion       string // "gini", "entropy" or "squared_error"
	maxDepth        int    // 0 means unbounded
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int    // MaxFeaturesAuto means all features
	randomState     uint64 // seed of the feature subsampling stream
}

func defaultConfig(criterion string) config {
	return config{
		criterion:       criterion,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     MaxFeaturesAuto,
	}
}

// Option is a functional option for DecisionTreeClassifier and DecisionTreeRegressor.
type Option func(*config)

// WithCriterion sets the impurity criterion.
func WithCriterion(criterion string) Option {
	return func(c *config) {
		c.criterion = criterion
	}
}

// WithMaxDepth bounds the depth of the tree; 0 means unbounded.
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		c.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the smallest node that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(c *config) {
		c.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the smallest child a split may produce.
func WithMinSamplesLeaf(n int) Option {
	return func(c *config) {
		c.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets the number of features drawn at each split. MaxFeaturesAuto, the
// default, draws all of them; 0 makes Fit fail.
func WithMaxFeatures(n int) Option {
	return func(c *config) {
		c.maxFeatures = n
	}
}

// WithRandomState seeds feature subsampling.
func WithRandomState(seed uint64) Option {
	return func(c *config) {
		c.randomState = seed
	}
}

func (c *config) hyperparameters() (Hyperparameters, error) {
	crit, err := ParseCriterion(c.criterion)
	if err != nil {
		return Hyperparameters{}, err
	}
	h := Hyperparameters{
		Criterion:       crit,
		MaxDepth:        c.maxDepth,
		MinSamplesSplit: c.minSamplesSplit,
		MinSamplesLeaf:  c.minSamplesLeaf,
		MaxFeatures:     c.maxFeatures,
	}
	return h, h.Validate()
}

func (c *config) getParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         c.criterion,
		"max_depth":         c.maxDepth,
		"min_samples_split": c.minSamplesSplit,
		"min_samples_leaf":  c.minSamplesLeaf,
		"max_features":      c.maxFeatures,
		"random_state":      c.randomState,
	}
}

// setParams applies params atomically: on error the config is unchanged.
func (c *config) setParams(params map[string]interface{}) error {
	next := *c
	for key, value := range params {
		var err error
		switch key {
		case "criterion":
			s, ok := value.(string)
			if !ok {
				return scierrors.NewConfigurationError(key, "must be a string", value)
			}
			next.criterion = s
		case "max_depth":
			next.maxDepth, err = IntParam(key, value)
		case "min_samples_split":
			next.minSamplesSplit, err = IntParam(key, value)
		case "min_samples_leaf":
			next.minSamplesLeaf, err = IntParam(key, value)
		case "max_features":
			next.maxFeatures, err = IntParam(key, value)
		case "random_state":
			next.randomState, err = SeedParam(key, value)
		default:
			return scierrors.NewConfigurationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	*c = next
	return nil
}

// IntParam converts a SetParams value to int. Integral float64 values are accepted because
// JSON and YAML decoders produce them.
func IntParam(name string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	}
	return 0, scierrors.NewConfigurationError(name, "must be an integer", value)
}

// SeedParam converts a SetParams value to a uint64 seed.
func SeedParam(name string, value interface{}) (uint64, error) {
	switch v := value.(type) {
	case uint64:
		return v, nil
	case int:
		if v >= 0 {
			return uint64(v), nil
		}
	case int64:
		if v >= 0 {
			return uint64(v), nil
		}
	case float64:
		if v >= 0 && v == math.Trunc(v) {
			return uint64(v), nil
		}
	}
	return 0, scierrors.NewConfigurationError(name, "must be a non-negative integer", value)
}
