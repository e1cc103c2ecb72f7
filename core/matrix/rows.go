package matrix

import (
	"sync"

	"go.uber.org/multierr"

	"github.com/YuminosukeSato/sciforest/core/parallel"
)

// rowChunkThreshold is the row count below which ForEachRow stays on the calling goroutine.
const rowChunkThreshold = 256

// ForEachRow materializes every row of v (implicit zeros included) and calls fn with its
// index. Rows are split into contiguous chunks processed by up to workers goroutines
// (workers < 1 means all CPUs); fn must only write state owned by row i. The row slice is
// reused between calls.
func ForEachRow(v FeatureView, workers int, fn func(i int, row []float64)) error {
	n := v.Rows()
	if n <= rowChunkThreshold {
		workers = 1
	}
	var (
		mu   sync.Mutex
		errs error
	)
	parallel.ParallelizeN(n, parallel.Workers(workers), func(start, end int) {
		row := make([]float64, v.Cols())
		for i := start; i < end; i++ {
			if err := MaterializeRow(v, i, row); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
				return
			}
			fn(i, row)
		}
	})
	return errs
}
