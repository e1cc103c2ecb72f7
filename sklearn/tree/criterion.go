package tree

import (
	"math"
	"strings"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Criterion is the impurity measure minimized by split selection.
type Criterion int

const (
	// Gini is 1 - Σ p_c² over the class fractions of a node.
	Gini Criterion = iota
	// Entropy is -Σ p_c log2 p_c over the class fractions of a node.
	Entropy
	// Variance is the mean squared deviation from the node mean (regression).
	Variance
)

// ParseCriterion maps a criterion name to a Criterion. "mse" and "squared_error" are
// accepted for Variance and "log_loss" for Entropy.
func ParseCriterion(name string) (Criterion, error) {
	switch strings.ToLower(name) {
	case "gini":
		return Gini, nil
	case "entropy", "log_loss":
		return Entropy, nil
	case "variance", "mse", "squared_error":
		return Variance, nil
	default:
		return Gini, scierrors.NewConfigurationError("criterion", "must be one of gini, entropy, squared_error", name)
	}
}

func (c Criterion) String() string {
	switch c {
	case Gini:
		return "gini"
	case Entropy:
		return "entropy"
	case Variance:
		return "squared_error"
	default:
		return "unknown"
	}
}

// IsClassification reports whether the criterion works on class counts.
func (c Criterion) IsClassification() bool {
	return c == Gini || c == Entropy
}

// stats accumulates the label statistics of a set of rows: class counts for classification,
// sum and sum of squares of y - shift for regression. Every stats taking part in one node's
// split search shares the node's shift.
type stats struct {
	n      int
	counts []float64
	sum    float64
	sumSq  float64
	shift  float64
}

func newStats(nClasses int) stats {
	if nClasses > 0 {
		return stats{counts: make([]float64, nClasses)}
	}
	return stats{}
}

func (s *stats) reset() {
	s.n = 0
	s.sum = 0
	s.sumSq = 0
	for i := range s.counts {
		s.counts[i] = 0
	}
}

func (s *stats) addRow(y *Targets, row int) {
	s.n++
	if s.counts != nil {
		s.counts[y.ClassIndex[row]]++
		return
	}
	v := y.Values[row] - s.shift
	s.sum += v
	s.sumSq += v * v
}

func (s *stats) add(o *stats) {
	s.n += o.n
	s.sum += o.sum
	s.sumSq += o.sumSq
	for i := range s.counts {
		s.counts[i] += o.counts[i]
	}
}

// setDiff sets s = a - b.
func (s *stats) setDiff(a, b *stats) {
	s.n = a.n - b.n
	s.shift = a.shift
	s.sum = a.sum - b.sum
	s.sumSq = a.sumSq - b.sumSq
	for i := range s.counts {
		s.counts[i] = a.counts[i] - b.counts[i]
	}
}

func (s *stats) copyFrom(o *stats) {
	s.n = o.n
	s.shift = o.shift
	s.sum = o.sum
	s.sumSq = o.sumSq
	copy(s.counts, o.counts)
}

func (s *stats) impurity(c Criterion) float64 {
	if s.n == 0 {
		return 0
	}
	n := float64(s.n)
	switch c {
	case Gini:
		sq := 0.0
		for _, cnt := range s.counts {
			p := cnt / n
			sq += p * p
		}
		return 1 - sq
	case Entropy:
		h := 0.0
		for _, cnt := range s.counts {
			if cnt > 0 {
				p := cnt / n
				h -= p * math.Log2(p)
			}
		}
		return h
	default:
		// shift-invariant; with shift near the node mean the subtraction does not cancel
		mean := s.sum / n
		v := s.sumSq/n - mean*mean
		if v < 0 {
			return 0
		}
		return v
	}
}

// mean returns the mean regression target.
func (s *stats) mean() float64 {
	return s.shift + s.sum/float64(s.n)
}
