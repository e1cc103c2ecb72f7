package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelizeN_CoversEveryItemOnce(t *testing.T) {
	for _, workers := range []int{1, 3, 8, 100} {
		hits := make([]int32, 37)
		ParallelizeN(len(hits), workers, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			assert.Equal(t, int32(1), h, "workers=%d item=%d", workers, i)
		}
	}
}

func TestParallelizeN_Empty(t *testing.T) {
	called := false
	ParallelizeN(0, 4, func(start, end int) { called = true })
	assert.False(t, called)
}

func TestForEach_DisjointSlots(t *testing.T) {
	out := make([]int, 50)
	err := ForEach(context.Background(), len(out), 4, func(_ context.Context, i int) error {
		out[i] = i * i
		return nil
	})
	require.NoError(t, err)
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
}

func TestForEach_SequentialOrder(t *testing.T) {
	var order []int
	err := ForEach(context.Background(), 5, 1, func(_ context.Context, i int) error {
		order = append(order, i)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestForEach_ReturnsFirstError(t *testing.T) {
	boom := errors.New("tree 2 failed")
	err := ForEach(context.Background(), 6, 1, func(_ context.Context, i int) error {
		if i == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 3, Workers(3))
	assert.GreaterOrEqual(t, Workers(-1), 1)
	assert.GreaterOrEqual(t, Workers(0), 1)
}
