// Package stage provides the variable-latency computation units of the
// two-stage pipeline model.
//
// Both units follow the same idle/computing state machine: when idle they
// draw a bounded pseudo-random delay from an injected source, then count
// fast ticks until the drawn delay elapses and commit their result. A
// zero-drawn delay commits within the starting tick. All next-state values
// are computed from pre-tick state and latched by the caller at tick end,
// so same-edge consumers never observe a partially updated unit.
package stage

import "github.com/hwstage/cdcsim/timing/delay"

// Mask returns the value mask for the given data width in bits.
func Mask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

// Stage1Params configures a Stage1Unit.
type Stage1Params struct {
	// DataWidth is the value width in bits.
	DataWidth int

	// MinDelay is the lower bound of the drawn delay (0 or 1).
	MinDelay int

	// MaxRandomDelay bounds the random component of the delay; the drawn
	// delay is MinDelay + Draw(MaxRandomDelay).
	MaxRandomDelay int

	// SkipFirstIncrement reproduces the startup guard of one hardware
	// revision: the first commit after reset passes the input through
	// without incrementing.
	SkipFirstIncrement bool

	// Source supplies the delay draws.
	Source delay.Source
}

// Stage1State is the next-state value of a Stage1Unit for one tick.
type Stage1State struct {
	// Output is the committed output value.
	Output uint64

	// Computing is true while a delay is counting down.
	Computing bool

	// Remaining is the number of ticks left before commit.
	Remaining int

	// Chosen is the delay drawn for the computation in flight.
	Chosen int

	// Ready is asserted for exactly the commit tick.
	Ready bool

	// Started tracks whether any commit has happened since reset.
	Started bool
}

// Stage1Unit increments its input value after a variable number of fast
// ticks. Its input each tick is the pipeline register's current held
// value, which closes the feedback loop at the top level.
type Stage1Unit struct {
	mask      uint64
	minDelay  int
	maxDelay  int
	skipFirst bool
	src       delay.Source

	state Stage1State
}

// NewStage1Unit creates a Stage1Unit. Parameters are validated at
// configuration time by the top level.
func NewStage1Unit(p Stage1Params) *Stage1Unit {
	return &Stage1Unit{
		mask:      Mask(p.DataWidth),
		minDelay:  p.MinDelay,
		maxDelay:  p.MaxRandomDelay,
		skipFirst: p.SkipFirstIncrement,
		src:       p.Source,
	}
}

// Next computes the unit state after one fast tick without mutating the
// current state. The input is sampled at the commit tick, matching the
// register-transfer behavior of the source design.
func (u *Stage1Unit) Next(resetActive bool, input uint64) Stage1State {
	if resetActive {
		return Stage1State{}
	}

	next := u.state
	next.Ready = false

	if !u.state.Computing {
		chosen := u.minDelay + u.src.Draw(u.maxDelay)
		next.Chosen = chosen
		if chosen == 0 {
			// Zero-delay draw: commit within the starting tick.
			return u.commit(next, input)
		}
		next.Computing = true
		next.Remaining = chosen
		return next
	}

	next.Remaining = u.state.Remaining - 1
	if next.Remaining == 0 {
		return u.commit(next, input)
	}
	return next
}

func (u *Stage1Unit) commit(next Stage1State, input uint64) Stage1State {
	if u.skipFirst && !u.state.Started {
		next.Output = input & u.mask
	} else {
		next.Output = (input + 1) & u.mask
	}
	next.Computing = false
	next.Remaining = 0
	next.Ready = true
	next.Started = true
	return next
}

// Latch commits a previously computed state.
func (u *Stage1Unit) Latch(s Stage1State) {
	u.state = s
}

// Reset synchronously clears the unit.
func (u *Stage1Unit) Reset() {
	u.state = Stage1State{}
}

// Output returns the committed output value.
func (u *Stage1Unit) Output() uint64 {
	return u.state.Output
}

// Ready reports whether the most recent tick committed a value.
func (u *Stage1Unit) Ready() bool {
	return u.state.Ready
}

// Computing reports whether a delay is counting down.
func (u *Stage1Unit) Computing() bool {
	return u.state.Computing
}

// RemainingDelay returns the ticks left before the pending commit.
func (u *Stage1Unit) RemainingDelay() int {
	return u.state.Remaining
}

// ChosenDelay returns the delay drawn for the computation in flight.
func (u *Stage1Unit) ChosenDelay() int {
	return u.state.Chosen
}
