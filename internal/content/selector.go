package content

import "math/rand/v2"

// Selector picks translation exercises uniformly at random.
type Selector struct {
	exercises   []Exercise
	avoidRepeat bool
}

// NewSelector builds a selector over exercises. With avoidRepeat the
// previously posed index is never returned twice in a row.
func NewSelector(exercises []Exercise, avoidRepeat bool) *Selector {
	return &Selector{exercises: exercises, avoidRepeat: avoidRepeat}
}

// Pick returns an index and its exercise. previous is the index posed last,
// or -1. The selector holds no state; rng supplies all randomness.
func (s *Selector) Pick(rng *rand.Rand, previous int) (int, Exercise) {
	n := len(s.exercises)
	if n == 0 {
		return -1, Exercise{}
	}
	if !s.avoidRepeat || n == 1 || previous < 0 || previous >= n {
		i := rng.IntN(n)
		return i, s.exercises[i]
	}
	// draw from the n-1 remaining slots and shift past previous
	i := rng.IntN(n - 1)
	if i >= previous {
		i++
	}
	return i, s.exercises[i]
}
