package tree

import (
	"math"
	"sort"
)

// Split is the best (feature, threshold) found for a set of rows. Rows with
// value < Threshold go left.
type Split struct {
	Feature   int
	Threshold float64

	// Impurity is the size-weighted impurity of the two children.
	Impurity      float64
	LeftImpurity  float64
	RightImpurity float64
	NLeft, NRight int
}

// splitter searches candidate features for the split minimizing weighted child impurity.
// It owns scratch buffers and is not safe for concurrent use.
type splitter struct {
	store          columnStore
	y              *Targets
	criterion      Criterion
	minSamplesLeaf int

	buckets [][]valueRow
	left    stats
	right   stats
	nonZero stats
	zero    stats
}

func newSplitter(store columnStore, y *Targets, criterion Criterion, minSamplesLeaf int) *splitter {
	k := y.NClasses()
	return &splitter{
		store:          store,
		y:              y,
		criterion:      criterion,
		minSamplesLeaf: minSamplesLeaf,
		left:           newStats(k),
		right:          newStats(k),
		nonZero:        newStats(k),
		zero:           newStats(k),
	}
}

// find returns the best split of rows over features, which must be sorted ascending, or
// false when no split lowers the weighted impurity below parentImpurity. parent holds the
// statistics of rows.
//
// For every feature the rows whose value is 0 (stored or implicit) form a single group, so
// dense and sparse storage of the same matrix yield the same candidate sequence: the sorted
// negative values, the zero group, then the sorted positive values. Thresholds are midpoints
// between consecutive distinct values.
func (s *splitter) find(rows, features []int, parent *stats, parentImpurity float64) (Split, bool) {
	if cap(s.buckets) < len(features) {
		s.buckets = make([][]valueRow, len(features))
	}
	s.buckets = s.buckets[:len(features)]
	for k := range s.buckets {
		s.buckets[k] = s.buckets[k][:0]
	}
	s.store.gather(rows, features, s.buckets)

	best := Split{Feature: -1, Impurity: parentImpurity}
	found := false
	n := float64(parent.n)

	for k, f := range features {
		pairs := s.buckets[k]
		sort.Slice(pairs, func(a, b int) bool {
			if pairs[a].value != pairs[b].value {
				return pairs[a].value < pairs[b].value
			}
			return pairs[a].row < pairs[b].row
		})

		s.nonZero.reset()
		s.nonZero.shift = parent.shift
		for _, p := range pairs {
			s.nonZero.addRow(s.y, p.row)
		}
		s.zero.setDiff(parent, &s.nonZero)

		// First positive value; pairs[:neg] are negative.
		neg := sort.Search(len(pairs), func(i int) bool { return pairs[i].value > 0 })

		s.left.reset()
		s.left.shift = parent.shift
		prev, havePrev := 0.0, false
		evaluate := func(next float64) {
			if !havePrev || next <= prev {
				return
			}
			nLeft := s.left.n
			nRight := parent.n - nLeft
			if nLeft < s.minSamplesLeaf || nRight < s.minSamplesLeaf || nLeft == 0 || nRight == 0 {
				return
			}
			s.right.setDiff(parent, &s.left)
			li := s.left.impurity(s.criterion)
			ri := s.right.impurity(s.criterion)
			weighted := (float64(nLeft)*li + float64(nRight)*ri) / n
			if weighted < best.Impurity {
				best = Split{
					Feature:       f,
					Threshold:     midpoint(prev, next),
					Impurity:      weighted,
					LeftImpurity:  li,
					RightImpurity: ri,
					NLeft:         nLeft,
					NRight:        nRight,
				}
				found = true
			}
		}

		for _, p := range pairs[:neg] {
			evaluate(p.value)
			s.left.addRow(s.y, p.row)
			prev, havePrev = p.value, true
		}
		if s.zero.n > 0 {
			evaluate(0)
			s.left.add(&s.zero)
			prev, havePrev = 0, true
		}
		for _, p := range pairs[neg:] {
			evaluate(p.value)
			s.left.addRow(s.y, p.row)
			prev, havePrev = p.value, true
		}
	}
	return best, found
}

// midpoint returns a threshold t with a < t <= b.
func midpoint(a, b float64) float64 {
	t := a/2 + b/2
	if t <= a || math.IsInf(t, 0) {
		return b
	}
	return t
}
