// Package delay provides the pseudo-random delay sources that drive the
// variable-latency stage units.
//
// The source is injected at construction so a run is reproducible given a
// seed, and so tests can substitute fixed or scripted delay sequences.
package delay

import "math/rand"

// Source draws bounded pseudo-random delays.
type Source interface {
	// Draw returns a value in [0, n). For n <= 0 it returns 0.
	Draw(n int) int
}

// RandomSource is a seeded pseudo-random Source. Two sources created with
// the same seed produce identical draw sequences.
type RandomSource struct {
	rng *rand.Rand
}

// NewRandomSource creates a RandomSource with the given seed.
func NewRandomSource(seed int64) *RandomSource {
	return &RandomSource{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Draw returns a uniformly distributed value in [0, n).
func (s *RandomSource) Draw(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.Intn(n)
}

// FixedSource always draws the same value, clamped into [0, n).
type FixedSource int

// Draw returns the fixed value clamped into the requested range.
func (f FixedSource) Draw(n int) int {
	if n <= 0 {
		return 0
	}
	v := int(f)
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// SequenceSource replays a scripted sequence of draws, cycling when the
// sequence is exhausted. It is intended for deterministic tests.
type SequenceSource struct {
	values []int
	idx    int
}

// NewSequenceSource creates a SequenceSource from the given values.
// An empty sequence always draws 0.
func NewSequenceSource(values ...int) *SequenceSource {
	return &SequenceSource{values: values}
}

// Draw returns the next scripted value, clamped into [0, n).
func (s *SequenceSource) Draw(n int) int {
	if len(s.values) == 0 || n <= 0 {
		return 0
	}
	v := s.values[s.idx%len(s.values)]
	s.idx++
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
