package tree

import (
	"encoding/json"
	"fmt"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// NodeKind is the final state of a node. Nodes are candidates while the tree grows and are
// settled as either a leaf or a split exactly once.
type NodeKind int

const (
	// Leaf nodes carry a prediction.
	Leaf NodeKind = iota
	// SplitNode nodes route rows to Left (value < Threshold) or Right.
	SplitNode
)

func (k NodeKind) String() string {
	if k == SplitNode {
		return "split"
	}
	return "leaf"
}

// MarshalText implements encoding.TextMarshaler.
func (k NodeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *NodeKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "leaf":
		*k = Leaf
	case "split":
		*k = SplitNode
	default:
		return scierrors.Newf("tree: unknown node kind %q", string(b))
	}
	return nil
}

// Node is one entry of the tree arena. Children are arena indices; leaves use -1.
type Node struct {
	Kind      NodeKind `json:"kind"`
	Feature   int      `json:"feature"`
	Threshold float64  `json:"threshold"`
	Left      int      `json:"left"`
	Right     int      `json:"right"`
	Depth     int      `json:"depth"`
	NSamples  int      `json:"n_samples"`
	Impurity  float64  `json:"impurity"`

	// Value is the class distribution over Tree.Classes for classification and the single
	// mean target for regression.
	Value []float64 `json:"value"`

	// Counts holds the raw class counts behind Value (classification only).
	Counts []float64 `json:"counts,omitempty"`
}

// IsLeaf reports whether the node carries a prediction.
func (n *Node) IsLeaf() bool { return n.Kind == Leaf }

// Tree is an induced decision tree stored as a flat arena of nodes.
type Tree struct {
	Nodes     []Node `json:"nodes"`
	Root      int    `json:"root"`
	NFeatures int    `json:"n_features"`

	// Classes is the sorted class list Value distributions refer to; nil for regression.
	Classes []int `json:"classes,omitempty"`
}

// Validate checks the arena invariants: in-range children, leaves without children, every
// node reachable from the root exactly once (so the structure is binary, acyclic and every
// non-root node has a single parent), split features within NFeatures, and leaf value sizes.
func (t *Tree) Validate() error {
	const op = "Tree.Validate"
	n := len(t.Nodes)
	if n == 0 {
		return scierrors.NewInvariantError(op, "tree has no nodes", 0, 0)
	}
	if t.Root < 0 || t.Root >= n {
		return scierrors.NewIndexError(op, t.Root, n)
	}

	parents := make([]int, n)
	visited := 0
	stack := []int{t.Root}
	parents[t.Root] = 1
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visited++
		node := &t.Nodes[i]

		if node.IsLeaf() {
			if node.Left != -1 || node.Right != -1 {
				return scierrors.NewInvariantError(op, "leaf has children", i, n)
			}
			want := 1
			if t.Classes != nil {
				want = len(t.Classes)
			}
			if len(node.Value) != want {
				return scierrors.NewInvariantError(op, fmt.Sprintf("leaf value has %d entries, want %d", len(node.Value), want), i, n)
			}
			continue
		}

		if node.Feature < 0 || node.Feature >= t.NFeatures {
			return scierrors.NewIndexError(op, node.Feature, t.NFeatures)
		}
		for _, c := range []int{node.Left, node.Right} {
			if c < 0 || c >= n {
				return scierrors.NewIndexError(op, c, n)
			}
			if c == t.Root || parents[c] > 0 {
				return scierrors.NewInvariantError(op, "node has more than one parent", c, n)
			}
			parents[c]++
			stack = append(stack, c)
		}
	}
	if visited != n {
		return scierrors.NewInvariantError(op, "arena holds nodes unreachable from the root", visited, n)
	}
	return nil
}

// Apply returns the arena index of the leaf reached by row, which must hold NFeatures
// values.
func (t *Tree) Apply(row []float64) int {
	i := t.Root
	for {
		node := &t.Nodes[i]
		if node.IsLeaf() {
			return i
		}
		if row[node.Feature] < node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

// LeafValue returns the Value of the leaf reached by row.
func (t *Tree) LeafValue(row []float64) []float64 {
	return t.Nodes[t.Apply(row)].Value
}

// Depth returns the depth of the deepest leaf; a single-leaf tree has depth 0.
func (t *Tree) Depth() int {
	depth := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() && t.Nodes[i].Depth > depth {
			depth = t.Nodes[i].Depth
		}
	}
	return depth
}

// NLeaves returns the number of leaves.
func (t *Tree) NLeaves() int {
	leaves := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			leaves++
		}
	}
	return leaves
}

// FeatureImportances returns the total weighted impurity decrease contributed by each
// feature, normalized to sum to 1. A tree without splits yields all zeros.
func (t *Tree) FeatureImportances() []float64 {
	imp := make([]float64, t.NFeatures)
	total := 0.0
	for i := range t.Nodes {
		node := &t.Nodes[i]
		if node.IsLeaf() {
			continue
		}
		l, r := &t.Nodes[node.Left], &t.Nodes[node.Right]
		dec := float64(node.NSamples)*node.Impurity -
			float64(l.NSamples)*l.Impurity -
			float64(r.NSamples)*r.Impurity
		if dec < 0 {
			dec = 0
		}
		imp[node.Feature] += dec
		total += dec
	}
	if total > 0 {
		for f := range imp {
			imp[f] /= total
		}
	}
	return imp
}

// UnmarshalJSON decodes a tree and validates the arena.
func (t *Tree) UnmarshalJSON(b []byte) error {
	type plain Tree
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return scierrors.Wrap(err, "tree: failed to decode")
	}
	decoded := Tree(p)
	if err := decoded.Validate(); err != nil {
		return err
	}
	*t = decoded
	return nil
}
