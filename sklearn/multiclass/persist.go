package multiclass

import (
	"bytes"
	"encoding/gob"
	"encoding/json"

	"github.com/YuminosukeSato/sciforest/core/model"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// snapshot stores each estimator in its own encoding. Decoding needs the factory to
// allocate the concrete estimators, so a OneVsRestClassifier is always loaded into a value
// built by NewOneVsRestClassifier.
type snapshot struct {
	NJobs      int      `json:"n_jobs"`
	Classes    []int    `json:"classes,omitempty"`
	NFeatures  int      `json:"n_features,omitempty"`
	NSamples   int      `json:"n_samples,omitempty"`
	Estimators [][]byte `json:"-"`
}

type jsonSnapshot struct {
	snapshot
	Estimators []json.RawMessage `json:"estimators,omitempty"`
}

func (o *OneVsRestClassifier) snapshot() snapshot {
	_, nSamples := o.state.GetDimensions()
	return snapshot{
		NJobs:     o.nJobs,
		Classes:   o.classes_,
		NFeatures: o.nFeatures_,
		NSamples:  nSamples,
	}
}

// load restores s with encoded estimators, decoding each into a fresh factory estimator.
func (o *OneVsRestClassifier) load(s snapshot, encoded [][]byte, decode func(b []byte, est BinaryEstimator) error) error {
	const op = "OneVsRestClassifier.load"
	if o.factory == nil {
		return scierrors.NewConfigurationError("estimator", "factory must not be nil", nil)
	}
	st := model.NewStateManager()
	var estimators []BinaryEstimator
	if len(encoded) > 0 {
		want := len(s.Classes)
		if want == 2 {
			want = 1
		}
		if len(s.Classes) < 2 || len(encoded) != want {
			return scierrors.NewValueError(op, "estimator count does not match the class list")
		}
		estimators = make([]BinaryEstimator, len(encoded))
		for j, b := range encoded {
			est := o.factory()
			if est == nil {
				return scierrors.NewConfigurationError("estimator", "factory returned nil", nil)
			}
			if err := decode(b, est); err != nil {
				return scierrors.Wrapf(err, "estimator %d", j)
			}
			estimators[j] = est
		}
		st = model.FittedState(s.NFeatures, s.NSamples)
	}
	o.nJobs = s.NJobs
	o.classes_, o.nFeatures_ = s.Classes, s.NFeatures
	o.estimators_ = estimators
	o.state = st
	return nil
}

// GobEncode implements gob.GobEncoder. Every estimator must implement gob.GobEncoder.
func (o *OneVsRestClassifier) GobEncode() ([]byte, error) {
	s := o.snapshot()
	for j, est := range o.estimators_ {
		enc, ok := est.(gob.GobEncoder)
		if !ok {
			return nil, scierrors.NewConfigurationError("estimator", "does not implement gob.GobEncoder", j)
		}
		b, err := enc.GobEncode()
		if err != nil {
			return nil, err
		}
		s.Estimators = append(s.Estimators, b)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, scierrors.Wrap(err, "multiclass: failed to gob-encode")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (o *OneVsRestClassifier) GobDecode(b []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&s); err != nil {
		return scierrors.Wrap(err, "multiclass: failed to gob-decode")
	}
	return o.load(s, s.Estimators, func(b []byte, est BinaryEstimator) error {
		dec, ok := est.(gob.GobDecoder)
		if !ok {
			return scierrors.NewConfigurationError("estimator", "does not implement gob.GobDecoder", nil)
		}
		return dec.GobDecode(b)
	})
}

// MarshalJSON writes the class list and every estimator's own JSON.
func (o *OneVsRestClassifier) MarshalJSON() ([]byte, error) {
	js := jsonSnapshot{snapshot: o.snapshot()}
	for _, est := range o.estimators_ {
		b, err := json.Marshal(est)
		if err != nil {
			return nil, err
		}
		js.Estimators = append(js.Estimators, b)
	}
	return json.Marshal(js)
}

// UnmarshalJSON reads a classifier written by MarshalJSON.
func (o *OneVsRestClassifier) UnmarshalJSON(b []byte) error {
	var js jsonSnapshot
	if err := json.Unmarshal(b, &js); err != nil {
		return scierrors.Wrap(err, "multiclass: failed to decode")
	}
	encoded := make([][]byte, len(js.Estimators))
	for j, raw := range js.Estimators {
		encoded[j] = raw
	}
	return o.load(js.snapshot, encoded, func(b []byte, est BinaryEstimator) error {
		return json.Unmarshal(b, est)
	})
}
