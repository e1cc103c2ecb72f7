package ensemble

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"math"

	"github.com/YuminosukeSato/sciforest/core/model"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// snapshot is the serialized form of a forest estimator.
type snapshot struct {
	NEstimators     int      `json:"n_estimators"`
	Criterion       string   `json:"criterion"`
	MaxDepth        int      `json:"max_depth"`
	MinSamplesSplit int      `json:"min_samples_split"`
	MinSamplesLeaf  int      `json:"min_samples_leaf"`
	MaxFeatures     int      `json:"max_features"`
	NJobs           int      `json:"n_jobs"`
	OOBScore        bool     `json:"oob_score"`
	RandomState     uint64   `json:"random_state"`
	OOB             *float64 `json:"oob_score_,omitempty"`
	Forest          *Forest  `json:"forest,omitempty"`
}

func (c *config) snapshot(f *Forest, oob oobState) snapshot {
	s := snapshot{
		NEstimators:     c.nEstimators,
		Criterion:       c.criterion,
		MaxDepth:        c.maxDepth,
		MinSamplesSplit: c.minSamplesSplit,
		MinSamplesLeaf:  c.minSamplesLeaf,
		MaxFeatures:     c.maxFeatures,
		NJobs:           c.nJobs,
		OOBScore:        c.oobScore,
		RandomState:     c.randomState,
		Forest:          f,
	}
	if oob.Valid {
		score := oob.Score
		s.OOB = &score
	}
	return s
}

// restore loads s into c and returns the state manager and out-of-bag result it implies.
func (c *config) restore(s snapshot) (*model.StateManager, oobState, error) {
	*c = config{
		nEstimators:     s.NEstimators,
		criterion:       s.Criterion,
		maxDepth:        s.MaxDepth,
		minSamplesSplit: s.MinSamplesSplit,
		minSamplesLeaf:  s.MinSamplesLeaf,
		maxFeatures:     s.MaxFeatures,
		nJobs:           s.NJobs,
		oobScore:        s.OOBScore,
		randomState:     s.RandomState,
	}
	oob := oobState{Score: math.NaN()}
	if s.Forest == nil {
		return model.NewStateManager(), oob, nil
	}
	if err := s.Forest.Validate(); err != nil {
		return nil, oob, err
	}
	oob.Enabled = s.OOBScore
	if s.OOB != nil {
		oob.Valid, oob.Score = true, *s.OOB
	}
	return model.FittedState(s.Forest.NFeatures, s.Forest.NSamples), oob, nil
}

func gobEncode(s snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, scierrors.Wrap(err, "ensemble: failed to gob-encode")
	}
	return buf.Bytes(), nil
}

func gobDecode(b []byte) (snapshot, error) {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&s); err != nil {
		return s, scierrors.Wrap(err, "ensemble: failed to gob-decode")
	}
	return s, nil
}

func (c *RandomForestClassifier) load(s snapshot) error {
	if s.Forest != nil && s.Forest.Classes == nil {
		return scierrors.NewValueError("RandomForestClassifier.load", "forest has no class list")
	}
	st, oob, err := c.restore(s)
	if err != nil {
		return err
	}
	c.state, c.oob, c.forest = st, oob, s.Forest
	return nil
}

// GobEncode implements gob.GobEncoder so the classifier works with model.SaveModel.
func (c *RandomForestClassifier) GobEncode() ([]byte, error) {
	return gobEncode(c.snapshot(c.forest, c.oob))
}

// GobDecode implements gob.GobDecoder.
func (c *RandomForestClassifier) GobDecode(b []byte) error {
	s, err := gobDecode(b)
	if err != nil {
		return err
	}
	return c.load(s)
}

// MarshalJSON writes the hyperparameters and every tree arena.
func (c *RandomForestClassifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.snapshot(c.forest, c.oob))
}

// UnmarshalJSON reads a classifier written by MarshalJSON.
func (c *RandomForestClassifier) UnmarshalJSON(b []byte) error {
	var s snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return scierrors.Wrap(err, "ensemble: failed to decode classifier")
	}
	return c.load(s)
}

func (r *RandomForestRegressor) load(s snapshot) error {
	if s.Forest != nil && s.Forest.Classes != nil {
		return scierrors.NewValueError("RandomForestRegressor.load", "forest holds classification trees")
	}
	st, oob, err := r.restore(s)
	if err != nil {
		return err
	}
	r.state, r.oob, r.forest = st, oob, s.Forest
	return nil
}

// GobEncode implements gob.GobEncoder so the regressor works with model.SaveModel.
func (r *RandomForestRegressor) GobEncode() ([]byte, error) {
	return gobEncode(r.snapshot(r.forest, r.oob))
}

// GobDecode implements gob.GobDecoder.
func (r *RandomForestRegressor) GobDecode(b []byte) error {
	s, err := gobDecode(b)
	if err != nil {
		return err
	}
	return r.load(s)
}

// MarshalJSON writes the hyperparameters and every tree arena.
func (r *RandomForestRegressor) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.snapshot(r.forest, r.oob))
}

// UnmarshalJSON reads a regressor written by MarshalJSON.
func (r *RandomForestRegressor) UnmarshalJSON(b []byte) error {
	var s snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return scierrors.Wrap(err, "ensemble: failed to decode regressor")
	}
	return r.load(s)
}
