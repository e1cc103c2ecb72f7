package ensemble

import (
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/sklearn/tree"
)

// config holds the hyperparameters shared by the forest estimators.
type config struct {
	nEstimators     int
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	nJobs           int
	oobScore        bool
	randomState     uint64
}

func defaultConfig(criterion string) config {
	return config{
		nEstimators:     100,
		criterion:       criterion,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     tree.MaxFeaturesAuto,
	}
}

// Option configures a forest estimator.
type Option func(*config)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(c *config) { c.nEstimators = n }
}

// WithCriterion sets the impurity criterion of every tree.
func WithCriterion(name string) Option {
	return func(c *config) { c.criterion = name }
}

// WithMaxDepth bounds tree depth; 0 means unbounded.
func WithMaxDepth(depth int) Option {
	return func(c *config) { c.maxDepth = depth }
}

// WithMinSamplesSplit sets the smallest node that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(c *config) { c.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the smallest child a split may produce.
func WithMinSamplesLeaf(n int) Option {
	return func(c *config) { c.minSamplesLeaf = n }
}

// WithMaxFeatures sets the number of features tried per split. tree.MaxFeaturesAuto, the
// default, selects ⌈√d⌉; 0 and values above the number of features make Fit fail.
func WithMaxFeatures(n int) Option {
	return func(c *config) { c.maxFeatures = n }
}

// WithNJobs bounds the number of trees fitted at once. Values < 1 use every CPU.
func WithNJobs(n int) Option {
	return func(c *config) { c.nJobs = n }
}

// WithOOBScore enables out-of-bag scoring.
func WithOOBScore(enabled bool) Option {
	return func(c *config) { c.oobScore = enabled }
}

// WithRandomState seeds bootstrap sampling and feature subsampling.
func WithRandomState(seed uint64) Option {
	return func(c *config) { c.randomState = seed }
}

func (c *config) hyperparameters() (Hyperparameters, error) {
	crit, err := tree.ParseCriterion(c.criterion)
	if err != nil {
		return Hyperparameters{}, err
	}
	h := Hyperparameters{
		NEstimators: c.nEstimators,
		Tree: tree.Hyperparameters{
			Criterion:       crit,
			MaxDepth:        c.maxDepth,
			MinSamplesSplit: c.minSamplesSplit,
			MinSamplesLeaf:  c.minSamplesLeaf,
			MaxFeatures:     c.maxFeatures,
		},
		NJobs:       c.nJobs,
		OOBScore:    c.oobScore,
		RandomState: c.randomState,
	}
	return h, h.Validate()
}

func (c *config) getParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      c.nEstimators,
		"criterion":         c.criterion,
		"max_depth":         c.maxDepth,
		"min_samples_split": c.minSamplesSplit,
		"min_samples_leaf":  c.minSamplesLeaf,
		"max_features":      c.maxFeatures,
		"n_jobs":            c.nJobs,
		"oob_score":         c.oobScore,
		"random_state":      c.randomState,
	}
}

// setParams applies params atomically: on error c is left unchanged.
func (c *config) setParams(params map[string]interface{}) error {
	next := *c
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			next.nEstimators, err = tree.IntParam(key, value)
		case "criterion":
			s, ok := value.(string)
			if !ok {
				return scierrors.NewConfigurationError(key, "must be a string", value)
			}
			next.criterion = s
		case "max_depth":
			next.maxDepth, err = tree.IntParam(key, value)
		case "min_samples_split":
			next.minSamplesSplit, err = tree.IntParam(key, value)
		case "min_samples_leaf":
			next.minSamplesLeaf, err = tree.IntParam(key, value)
		case "max_features":
			next.maxFeatures, err = tree.IntParam(key, value)
		case "n_jobs":
			next.nJobs, err = tree.IntParam(key, value)
		case "oob_score":
			b, ok := value.(bool)
			if !ok {
				return scierrors.NewConfigurationError(key, "must be a bool", value)
			}
			next.oobScore = b
		case "random_state":
			next.randomState, err = tree.SeedParam(key, value)
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
