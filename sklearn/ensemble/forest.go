// Package ensemble implements random forests of CART trees.
//
// Every tree i is grown on a bootstrap sample drawn from the random stream (random_state, i),
// and the same stream then picks the feature subsets tried at each of its splits. Trees are
// fitted concurrently but each writes only its own slot, so a forest depends on its
// hyperparameters and data alone, never on n_jobs or scheduling.
//
//	rf := ensemble.NewRandomForestClassifier(
//	    ensemble.WithNEstimators(200),
//	    ensemble.WithRandomState(7),
//	)
//	if err := rf.Fit(X, y); err != nil {
//	    return err
//	}
//	votes, err := rf.PredictVotes(XTest)
package ensemble

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/YuminosukeSato/sciforest/core/matrix"
	"github.com/YuminosukeSato/sciforest/core/parallel"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
	"github.com/YuminosukeSato/sciforest/sklearn/tree"
)

// Hyperparameters control forest induction.
type Hyperparameters struct {
	// NEstimators is the number of trees.
	NEstimators int

	// Tree configures every tree. tree.MaxFeaturesAuto selects ⌈√d⌉ features per split.
	Tree tree.Hyperparameters

	// NJobs bounds the number of trees fitted concurrently; values < 1 use every CPU.
	NJobs int

	// OOBScore enables out-of-bag scoring after Fit.
	OOBScore bool

	RandomState uint64
}

// Validate reports the first invalid field as a ConfigurationError.
func (h Hyperparameters) Validate() error {
	if h.NEstimators < 1 {
		return scierrors.NewConfigurationError("n_estimators", "must be >= 1", h.NEstimators)
	}
	return h.Tree.Validate()
}

// resolveMaxFeatures returns the number of features tried per split for d features.
func resolveMaxFeatures(maxFeatures, d int) (int, error) {
	switch {
	case maxFeatures == tree.MaxFeaturesAuto:
		return int(math.Ceil(math.Sqrt(float64(d)))), nil
	case maxFeatures > d:
		return 0, scierrors.NewConfigurationError("max_features",
			fmt.Sprintf("must be <= n_features (%d)", d), maxFeatures)
	}
	return maxFeatures, nil
}

// Forest is a fitted ensemble. Trees[i] was grown on the rows replayed by BootstrapIndices(i).
type Forest struct {
	Trees       []*tree.Tree `json:"trees"`
	RandomState uint64       `json:"random_state"`
	NSamples    int          `json:"n_samples"`
	NFeatures   int          `json:"n_features"`
	Classes     []int        `json:"classes,omitempty"`
}

// BootstrapIndices replays the bootstrap sample of tree i.
func (f *Forest) BootstrapIndices(i int) ([]int, error) {
	if i < 0 || i >= len(f.Trees) {
		return nil, scierrors.NewIndexError("Forest.BootstrapIndices", i, len(f.Trees))
	}
	return Bootstrap(treeStream(f.RandomState, i), f.NSamples), nil
}

// Validate checks every tree and that all trees agree on features and classes.
func (f *Forest) Validate() error {
	const op = "Forest.Validate"
	if len(f.Trees) == 0 {
		return scierrors.NewInvariantError(op, "forest has no trees", 0, 0)
	}
	for i, t := range f.Trees {
		if t == nil {
			return scierrors.NewInvariantError(op, "missing tree", i, len(f.Trees))
		}
		if err := t.Validate(); err != nil {
			return scierrors.Wrapf(err, "tree %d", i)
		}
		if t.NFeatures != f.NFeatures || !slices.Equal(t.Classes, f.Classes) {
			return scierrors.NewInvariantError(op, "tree disagrees with the forest on features or classes", i, len(f.Trees))
		}
	}
	return nil
}

// FeatureImportances averages the per-tree importances and renormalizes them.
func (f *Forest) FeatureImportances() []float64 {
	imp := make([]float64, f.NFeatures)
	for _, t := range f.Trees {
		for j, v := range t.FeatureImportances() {
			imp[j] += v
		}
	}
	total := 0.0
	for _, v := range imp {
		total += v
	}
	if total > 0 {
		for j := range imp {
			imp[j] /= total
		}
	}
	return imp
}

// buildTree grows one tree; tests replace it to inject failures.
var buildTree = tree.Build

// grow fits h.NEstimators trees on X and y. Any failing tree aborts the whole fit.
func grow(ctx context.Context, X matrix.FeatureView, y *tree.Targets, h Hyperparameters, logger log.Logger) (*Forest, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	n, d := X.Rows(), X.Cols()
	if n == 0 {
		return nil, scierrors.NewInsufficientDataError("ensemble.grow", "cannot fit on zero rows", 1, 0)
	}
	th := h.Tree
	mf, err := resolveMaxFeatures(th.MaxFeatures, d)
	if err != nil {
		return nil, err
	}
	th.MaxFeatures = mf

	trees := make([]*tree.Tree, h.NEstimators)
	err = parallel.ForEach(ctx, h.NEstimators, parallel.Workers(h.NJobs), func(_ context.Context, i int) error {
		kind := fmt.Sprintf("tree %d", i)
		return scierrors.SafeExecute("ensemble.grow "+kind, func() error {
			rng := treeStream(h.RandomState, i)
			rows := Bootstrap(rng, n)
			sample, err := X.GetRows(rows)
			if err != nil {
				return err
			}
			t, err := buildTree(sample, y.Subset(rows), th, rng)
			if err != nil {
				return scierrors.NewModelError("ensemble.grow", kind, err)
			}
			trees[i] = t
			logger.Debug("tree fitted",
				log.TreeIndexKey, i,
				log.DepthKey, t.Depth(),
				log.LeavesKey, t.NLeaves(),
			)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &Forest{
		Trees:       trees,
		RandomState: h.RandomState,
		NSamples:    n,
		NFeatures:   d,
		Classes:     y.Classes,
	}, nil
}

// outOfBag sums, for every row of the training matrix X, the leaf values of the trees that
// did not draw it. sums is row-major with width values per row; hits counts those trees.
func (f *Forest) outOfBag(X matrix.FeatureView, width, workers int) (sums []float64, hits []int, err error) {
	n := X.Rows()
	masks := make([][]bool, len(f.Trees))
	for i := range f.Trees {
		rows, err := f.BootstrapIndices(i)
		if err != nil {
			return nil, nil, err
		}
		masks[i] = inBag(rows, n)
	}
	sums = make([]float64, n*width)
	hits = make([]int, n)
	err = matrix.ForEachRow(X, workers, func(i int, row []float64) {
		acc := sums[i*width : (i+1)*width]
		for k, t := range f.Trees {
			if masks[k][i] {
				continue
			}
			for j, v := range t.LeafValue(row) {
				acc[j] += v
			}
			hits[i]++
		}
	})
	return sums, hits, err
}
