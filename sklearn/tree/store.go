package tree

import (
	"sort"

	"github.com/YuminosukeSato/sciforest/core/matrix"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// valueRow is a non-zero feature value and the training row it came from.
type valueRow struct {
	value float64
	row   int
}

// columnStore gives split search backend-agnostic access to the training matrix. It is built
// once per fit from DoRowEntries, so every FeatureView implementation works unchanged.
type columnStore interface {
	// value returns X[row][feature], 0 when no entry is stored.
	value(row, feature int) float64

	// gather appends the non-zero values of each feature in features, restricted to rows, to
	// the matching bucket. Buckets are not cleared.
	gather(rows, features []int, buckets [][]valueRow)
}

func newColumnStore(op string, X matrix.FeatureView) (columnStore, error) {
	n, d := X.Rows(), X.Cols()
	var bad error
	check := func(i, j int, v float64) {
		if bad == nil {
			bad = scierrors.CheckScalar(op, v, i)
		}
	}

	if X.Kind() == matrix.KindDense {
		s := &denseStore{cols: d, data: make([]float64, n*d)}
		for i := 0; i < n; i++ {
			row := s.data[i*d : (i+1)*d]
			if err := X.DoRowEntries(i, func(j int, v float64) {
				check(i, j, v)
				row[j] = v
			}); err != nil {
				return nil, err
			}
		}
		return s, bad
	}

	s := &sparseStore{indptr: make([]int, n+1), slot: make([]int, d)}
	for j := range s.slot {
		s.slot[j] = -1
	}
	for i := 0; i < n; i++ {
		if err := X.DoRowEntries(i, func(j int, v float64) {
			check(i, j, v)
			if v != 0 {
				s.indices = append(s.indices, j)
				s.data = append(s.data, v)
			}
		}); err != nil {
			return nil, err
		}
		s.indptr[i+1] = len(s.indices)
	}
	return s, bad
}

type denseStore struct {
	cols int
	data []float64
}

func (s *denseStore) value(row, feature int) float64 {
	return s.data[row*s.cols+feature]
}

func (s *denseStore) gather(rows, features []int, buckets [][]valueRow) {
	for k, f := range features {
		b := buckets[k]
		for _, r := range rows {
			if v := s.data[r*s.cols+f]; v != 0 {
				b = append(b, valueRow{value: v, row: r})
			}
		}
		buckets[k] = b
	}
}

// sparseStore keeps only non-zero entries in CSR layout.
type sparseStore struct {
	indptr  []int
	indices []int
	data    []float64

	// slot maps a feature to its bucket during gather, -1 otherwise.
	slot []int
}

func (s *sparseStore) value(row, feature int) float64 {
	start, end := s.indptr[row], s.indptr[row+1]
	cols := s.indices[start:end]
	if k := sort.SearchInts(cols, feature); k < len(cols) && cols[k] == feature {
		return s.data[start+k]
	}
	return 0
}

func (s *sparseStore) gather(rows, features []int, buckets [][]valueRow) {
	for k, f := range features {
		s.slot[f] = k
	}
	for _, r := range rows {
		for p := s.indptr[r]; p < s.indptr[r+1]; p++ {
			if k := s.slot[s.indices[p]]; k >= 0 {
				buckets[k] = append(buckets[k], valueRow{value: s.data[p], row: r})
			}
		}
	}
	for _, f := range features {
		s.slot[f] = -1
	}
}
