package tree

import (
	"bytes"
	"encoding/gob"
	"encoding/json"

	"github.com/YuminosukeSato/sciforest/core/model"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// snapshot is the serialized form of a fitted estimator.
type snapshot struct {
	Criterion       string `json:"criterion"`
	MaxDepth        int    `json:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split"`
	MinSamplesLeaf  int    `json:"min_samples_leaf"`
	MaxFeatures     int    `json:"max_features"`
	RandomState     uint64 `json:"random_state"`
	NSamples        int    `json:"n_samples,omitempty"`
	Tree            *Tree  `json:"tree,omitempty"`
}

func (c *config) snapshot(t *Tree, st *model.StateManager) snapshot {
	_, nSamples := st.GetDimensions()
	return snapshot{
		Criterion:       c.criterion,
		MaxDepth:        c.maxDepth,
		MinSamplesSplit: c.minSamplesSplit,
		MinSamplesLeaf:  c.minSamplesLeaf,
		MaxFeatures:     c.maxFeatures,
		RandomState:     c.randomState,
		NSamples:        nSamples,
		Tree:            t,
	}
}

// restore loads s into c and returns a fresh state manager, fitted when s carries a tree.
func (c *config) restore(s snapshot) (*model.StateManager, error) {
	*c = config{
		criterion:       s.Criterion,
		maxDepth:        s.MaxDepth,
		minSamplesSplit: s.MinSamplesSplit,
		minSamplesLeaf:  s.MinSamplesLeaf,
		maxFeatures:     s.MaxFeatures,
		randomState:     s.RandomState,
	}
	if s.Tree == nil {
		return model.NewStateManager(), nil
	}
	if err := s.Tree.Validate(); err != nil {
		return nil, err
	}
	return model.FittedState(s.Tree.NFeatures, s.NSamples), nil
}

func gobEncode(s snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, scierrors.Wrap(err, "tree: failed to gob-encode")
	}
	return buf.Bytes(), nil
}

func gobDecode(b []byte) (snapshot, error) {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&s); err != nil {
		return s, scierrors.Wrap(err, "tree: failed to gob-decode")
	}
	return s, nil
}

func (c *DecisionTreeClassifier) load(s snapshot) error {
	st, err := c.restore(s)
	if err != nil {
		return err
	}
	c.state = st
	c.tree = s.Tree
	c.classes_, c.nClasses_, c.nFeatures_ = nil, 0, 0
	if s.Tree != nil {
		if s.Tree.Classes == nil {
			return scierrors.NewValueError("DecisionTreeClassifier.load", "tree has no class list")
		}
		c.classes_ = s.Tree.Classes
		c.nClasses_ = len(s.Tree.Classes)
		c.nFeatures_ = s.Tree.NFeatures
	}
	return nil
}

// GobEncode implements gob.GobEncoder so the classifier works with model.SaveModel.
func (c *DecisionTreeClassifier) GobEncode() ([]byte, error) {
	return gobEncode(c.snapshot(c.tree, c.state))
}

// GobDecode implements gob.GobDecoder.
func (c *DecisionTreeClassifier) GobDecode(b []byte) error {
	s, err := gobDecode(b)
	if err != nil {
		return err
	}
	return c.load(s)
}

// MarshalJSON writes the hyperparameters and the node arena.
func (c *DecisionTreeClassifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.snapshot(c.tree, c.state))
}

// UnmarshalJSON reads a classifier written by MarshalJSON.
func (c *DecisionTreeClassifier) UnmarshalJSON(b []byte) error {
	var s snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return scierrors.Wrap(err, "tree: failed to decode classifier")
	}
	return c.load(s)
}

func (r *DecisionTreeRegressor) load(s snapshot) error {
	st, err := r.restore(s)
	if err != nil {
		return err
	}
	r.state = st
	r.tree = s.Tree
	r.nFeatures_ = 0
	if s.Tree != nil {
		r.nFeatures_ = s.Tree.NFeatures
	}
	return nil
}

// GobEncode implements gob.GobEncoder so the regressor works with model.SaveModel.
func (r *DecisionTreeRegressor) GobEncode() ([]byte, error) {
	return gobEncode(r.snapshot(r.tree, r.state))
}

// GobDecode implements gob.GobDecoder.
func (r *DecisionTreeRegressor) GobDecode(b []byte) error {
	s, err := gobDecode(b)
	if err != nil {
		return err
	}
	return r.load(s)
}

// MarshalJSON writes the hyperparameters and the node arena.
func (r *DecisionTreeRegressor) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.snapshot(r.tree, r.state))
}

// UnmarshalJSON reads a regressor written by MarshalJSON.
func (r *DecisionTreeRegressor) UnmarshalJSON(b []byte) error {
	var s snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return scierrors.Wrap(err, "tree: failed to decode regressor")
	}
	return r.load(s)
}
