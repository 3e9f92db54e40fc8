package datasets

import "math/rand"

// ShuffledIndices returns a uniformly random permutation of [0, n).
func ShuffledIndices(n int, rng *rand.Rand) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	return indices
}

// Sampler walks a fixed permutation cyclically. The permutation is never
// reshuffled, so every pass serves the same order.
type Sampler struct {
	perm   []int
	cursor int
}

// NewSampler builds a sampler over a fresh permutation of [0, n).
func NewSampler(n int, rng *rand.Rand) *Sampler {
	return &Sampler{perm: ShuffledIndices(n, rng)}
}

// Next returns the partition index at the cursor and advances the cursor,
// wrapping at the end of the permutation.
func (s *Sampler) Next() int {
	idx := s.perm[s.cursor]
	s.cursor = (s.cursor + 1) % len(s.perm)
	return idx
}

// Cursor is the permutation slot the next call to Next will serve.
func (s *Sampler) Cursor() int { return s.cursor }

// Len is the partition length.
func (s *Sampler) Len() int { return len(s.perm) }

// Permutation returns a copy of the permutation.
func (s *Sampler) Permutation() []int {
	return append([]int(nil), s.perm...)
}
