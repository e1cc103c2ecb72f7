package tree

import (
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/sciforest/core/matrix"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Hyperparameters control tree induction.
type Hyperparameters struct {
	Criterion Criterion

	// MaxDepth bounds the depth of every leaf; 0 means unbounded.
	MaxDepth int

	// MinSamplesSplit is the smallest node that may be split.
	MinSamplesSplit int

	// MinSamplesLeaf is the smallest child a split may produce.
	MinSamplesLeaf int

	// MaxFeatures is the number of features drawn at each split. MaxFeaturesAuto draws all
	// of them.
	MaxFeatures int
}

// MaxFeaturesAuto leaves max_features unset: a tree considers every feature and a forest
// ⌈√d⌉ of them.
const MaxFeaturesAuto = -1

// DefaultHyperparameters returns the CART defaults for criterion.
func DefaultHyperparameters(criterion Criterion) Hyperparameters {
	return Hyperparameters{
		Criterion:       criterion,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     MaxFeaturesAuto,
	}
}

// Validate reports the first invalid field as a ConfigurationError.
func (h Hyperparameters) Validate() error {
	switch {
	case h.Criterion < Gini || h.Criterion > Variance:
		return scierrors.NewConfigurationError("criterion", "unknown criterion", int(h.Criterion))
	case h.MaxDepth < 0:
		return scierrors.NewConfigurationError("max_depth", "must be >= 0 (0 means unbounded)", h.MaxDepth)
	case h.MinSamplesSplit < 1:
		return scierrors.NewConfigurationError("min_samples_split", "must be >= 1", h.MinSamplesSplit)
	case h.MinSamplesLeaf < 1:
		return scierrors.NewConfigurationError("min_samples_leaf", "must be >= 1", h.MinSamplesLeaf)
	case h.MaxFeatures < 1 && h.MaxFeatures != MaxFeaturesAuto:
		return scierrors.NewConfigurationError("max_features", "must be >= 1 or MaxFeaturesAuto", h.MaxFeatures)
	}
	return nil
}

// Build grows a tree on X and y depth-first.
//
// rng drives per-split feature subsampling and may be nil when MaxFeatures is
// MaxFeaturesAuto or not below the number of features. Targets must match the criterion:
// class targets for Gini and Entropy, values for Variance.
func Build(X matrix.FeatureView, y *Targets, h Hyperparameters, rng *rand.Rand) (*Tree, error) {
	const op = "tree.Build"
	if err := h.Validate(); err != nil {
		return nil, err
	}
	n, d := X.Rows(), X.Cols()
	if n == 0 {
		return nil, scierrors.NewInsufficientDataError(op, "cannot fit on zero rows", 1, 0)
	}
	if y.Len() != n {
		return nil, scierrors.NewShapeError(op, []int{n, 1}, []int{y.Len(), 1})
	}
	if h.Criterion.IsClassification() != y.IsClassification() {
		return nil, scierrors.NewConfigurationError("criterion", "does not match the target type", h.Criterion.String())
	}
	subsample := h.MaxFeatures > 0 && h.MaxFeatures < d
	if subsample && rng == nil {
		return nil, scierrors.NewConfigurationError("random_state", "a random stream is required when max_features < n_features", h.MaxFeatures)
	}

	store, err := newColumnStore(op, X)
	if err != nil {
		return nil, err
	}

	b := &builder{
		h:        h,
		y:        y,
		store:    store,
		splitter: newSplitter(store, y, h.Criterion, h.MinSamplesLeaf),
		rng:      rng,
		tree:     &Tree{NFeatures: d, Classes: y.Classes},
	}
	b.allFeatures = make([]int, d)
	for f := range b.allFeatures {
		b.allFeatures[f] = f
	}
	if subsample {
		b.pool = make([]int, d)
		b.drawn = make([]int, h.MaxFeatures)
	}

	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	b.tree.Root = b.grow(rows, 0)

	if err := b.tree.Validate(); err != nil {
		return nil, err
	}
	return b.tree, nil
}

type builder struct {
	h        Hyperparameters
	y        *Targets
	store    columnStore
	splitter *splitter
	rng      *rand.Rand
	tree     *Tree

	allFeatures []int
	pool        []int
	drawn       []int
}

// grow settles the candidate node for rows and returns its arena index. The stopping rules
// are checked in order: depth bound, min_samples_split, purity, then split search.
func (b *builder) grow(rows []int, depth int) int {
	st := newStats(b.y.NClasses())
	if !b.y.IsClassification() {
		st.shift = b.rowMean(rows)
	}
	for _, r := range rows {
		st.addRow(b.y, r)
	}
	impurity := st.impurity(b.h.Criterion)

	idx := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{
		Kind:     Leaf,
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Depth:    depth,
		NSamples: len(rows),
		Impurity: impurity,
	})

	if (b.h.MaxDepth > 0 && depth >= b.h.MaxDepth) ||
		len(rows) < b.h.MinSamplesSplit ||
		b.pure(rows, &st) {
		b.settleLeaf(idx, &st)
		return idx
	}

	split, ok := b.splitter.find(rows, b.candidateFeatures(), &st, impurity)
	if !ok {
		b.settleLeaf(idx, &st)
		return idx
	}

	left := make([]int, 0, split.NLeft)
	right := make([]int, 0, split.NRight)
	for _, r := range rows {
		if b.store.value(r, split.Feature) < split.Threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	// Children are appended after the parent, so idx stays valid but the slice may move.
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	node := &b.tree.Nodes[idx]
	node.Kind = SplitNode
	node.Feature = split.Feature
	node.Threshold = split.Threshold
	node.Left = l
	node.Right = r
	node.Value = leafValue(&st)
	return idx
}

func (b *builder) settleLeaf(idx int, st *stats) {
	node := &b.tree.Nodes[idx]
	node.Kind = Leaf
	node.Value = leafValue(st)
	if st.counts != nil {
		node.Counts = append([]float64(nil), st.counts...)
	}
}

// pure reports whether every row carries the same label.
func (b *builder) pure(rows []int, st *stats) bool {
	if st.counts != nil {
		for _, c := range st.counts {
			if c > 0 {
				return c == float64(st.n)
			}
		}
		return true
	}
	first := b.y.Values[rows[0]]
	for _, r := range rows[1:] {
		if b.y.Values[r] != first {
			return false
		}
	}
	return true
}

// candidateFeatures returns the features considered at one split, sorted ascending. With
// subsampling, MaxFeatures distinct features are drawn by a partial Fisher-Yates shuffle.
func (b *builder) candidateFeatures() []int {
	if b.pool == nil {
		return b.allFeatures
	}
	copy(b.pool, b.allFeatures)
	k := len(b.drawn)
	for i := 0; i < k; i++ {
		j := i + b.rng.IntN(len(b.pool)-i)
		b.pool[i], b.pool[j] = b.pool[j], b.pool[i]
	}
	copy(b.drawn, b.pool[:k])
	sort.Ints(b.drawn)
	return b.drawn
}

func leafValue(st *stats) []float64 {
	if st.counts != nil {
		v := make([]float64, len(st.counts))
		for i, c := range st.counts {
			v[i] = c / float64(st.n)
		}
		return v
	}
	return []float64{st.mean()}
}

func (b *builder) rowMean(rows []int) float64 {
	sum := 0.0
	for _, r := range rows {
		sum += b.y.Values[r]
	}
	return sum / float64(len(rows))
}
