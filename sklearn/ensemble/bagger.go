package ensemble

import (
	"math/rand/v2"
)

// Bootstrap draws n row indices uniformly from [0, n) with replacement.
func Bootstrap(rng *rand.Rand, n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = rng.IntN(n)
	}
	return indices
}

// OutOfBag returns, in ascending order, the rows of [0, n) that do not appear in indices.
func OutOfBag(indices []int, n int) []int {
	in := inBag(indices, n)
	oob := make([]int, 0, n/3+1)
	for i, drawn := range in {
		if !drawn {
			oob = append(oob, i)
		}
	}
	return oob
}

func inBag(indices []int, n int) []bool {
	in := make([]bool, n)
	for _, i := range indices {
		in[i] = true
	}
	return in
}

// treeStream returns the random stream of tree i. The same stream draws the bootstrap sample
// and then the per-split feature subsets of that tree.
func treeStream(seed uint64, i int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(i)))
}
