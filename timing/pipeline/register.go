// Package pipeline wires the clock divider, the stage units and the
// pipeline register into the two-stage clock-domain-crossing model and
// drives them with register-transfer semantics: every tick computes all
// next-state values from a snapshot of pre-tick state and latches them
// together, so units triggered by the same edge never observe each
// other's post-edge values.
package pipeline

import "github.com/hwstage/cdcsim/timing/clock"

// Register is the pipeline register between the two stages: a pure
// synchronous latch that captures Stage1's pre-edge output on the
// configured slow-clock edge and holds it between edges.
type Register struct {
	sampleEdge clock.Edge
	mask       uint64

	value uint64
}

// NewRegister creates a pipeline register that samples on the given
// slow-clock edge.
func NewRegister(sampleEdge clock.Edge, mask uint64) *Register {
	return &Register{
		sampleEdge: sampleEdge,
		mask:       mask,
	}
}

// NextValue computes the held value after one tick without mutating the
// register. input is Stage1's pre-edge output and edge is the slow-clock
// transition this tick produced.
func (r *Register) NextValue(resetActive bool, input uint64, edge clock.Edge) uint64 {
	if resetActive {
		return 0
	}
	if edge == r.sampleEdge {
		return input & r.mask
	}
	return r.value
}

// Latch commits a previously computed value.
func (r *Register) Latch(value uint64) {
	r.value = value
}

// Reset synchronously clears the register.
func (r *Register) Reset() {
	r.value = 0
}

// Value returns the currently held value.
func (r *Register) Value() uint64 {
	return r.value
}

// SampleEdge returns the slow-clock edge the register samples on.
func (r *Register) SampleEdge() clock.Edge {
	return r.sampleEdge
}
