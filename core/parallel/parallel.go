// Package parallel provides the fork-join helpers used by fitting and prediction.
//
// Work is always keyed by a fixed index (tree index, row range) and every task writes only
// its own output slot, so results never depend on completion order.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Workers resolves an n_jobs style setting: values < 1 mean "all CPUs".
func Workers(nJobs int) int {
	if nJobs < 1 {
		return runtime.NumCPU()
	}
	return nJobs
}

// ParallelizeN divides items into contiguous ranges, at most one per worker, and runs fn on
// each range concurrently. With one worker fn runs on the calling goroutine.
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items == 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	if workers > items {
		workers = items // No need for more workers than items
	}
	if workers == 1 {
		fn(0, items)
		return
	}

	// Ceiling division
	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ForEach runs task(i) for every i in [0, n) with at most workers tasks in flight. The first
// error cancels the context handed to tasks that have not started yet and is returned once all
// running tasks finish. With workers == 1 the tasks run in index order.
func ForEach(ctx context.Context, n, workers int, task func(ctx context.Context, i int) error) error {
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return task(gctx, i)
		})
	}
	return g.Wait()
}
