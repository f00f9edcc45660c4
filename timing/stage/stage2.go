package stage

import (
	"github.com/hwstage/cdcsim/timing/clock"
	"github.com/hwstage/cdcsim/timing/delay"
)

// Stage2Variant selects which of the observed second-stage behaviors the
// unit models. The hardware revisions disagreed on this; the model keeps
// all of them selectable instead of picking one.
type Stage2Variant int

const (
	// VariantDirectDouble registers the doubled pipeline-register value
	// directly on the slow-clock rising edge, with no extra delay.
	VariantDirectDouble Stage2Variant = iota

	// VariantLatchedDelay keeps a slow-edge latch of the register value
	// and doubles a fast-domain snapshot of that latch after a drawn
	// delay.
	VariantLatchedDelay

	// VariantFastDomainDelay doubles after a drawn delay like
	// VariantLatchedDelay but snapshots the register value directly at
	// computation start, with no separate latch.
	VariantFastDomainDelay
)

// String returns the configuration name of the variant.
func (v Stage2Variant) String() string {
	switch v {
	case VariantDirectDouble:
		return "direct-double"
	case VariantLatchedDelay:
		return "latched-plus-delay"
	case VariantFastDomainDelay:
		return "fast-domain-delay"
	default:
		return "unknown"
	}
}

// ParseStage2Variant resolves a configuration name to a variant.
// The second return value is false for unknown names.
func ParseStage2Variant(name string) (Stage2Variant, bool) {
	switch name {
	case "direct-double":
		return VariantDirectDouble, true
	case "latched-plus-delay":
		return VariantLatchedDelay, true
	case "fast-domain-delay":
		return VariantFastDomainDelay, true
	default:
		return 0, false
	}
}

// Stage2Params configures a Stage2Unit.
type Stage2Params struct {
	// Variant selects the modeled behavior.
	Variant Stage2Variant

	// DataWidth is the value width in bits.
	DataWidth int

	// MinDelay is the lower bound of the drawn delay (0 or 1). Only the
	// delayed variants draw.
	MinDelay int

	// MaxRandomDelay bounds the random component of the delay.
	MaxRandomDelay int

	// Source supplies the delay draws.
	Source delay.Source
}

// Stage2State is the next-state value of a Stage2Unit for one tick.
type Stage2State struct {
	// Latch is the slow-edge copy of the register value
	// (VariantLatchedDelay only).
	Latch uint64

	// Result is the committed doubled value.
	Result uint64

	// Computing is true while a delay is counting down.
	Computing bool

	// Remaining is the number of ticks left before commit.
	Remaining int

	// Chosen is the delay drawn for the computation in flight.
	Chosen int

	// Snapshot is the input captured when the computation started.
	Snapshot uint64

	// Committed is asserted for exactly the commit tick.
	Committed bool
}

// Stage2Unit derives the doubled result from the pipeline register.
// Depending on the variant the doubling is registered directly on the
// slow-clock rising edge or happens in the fast clock domain after a
// variable delay.
type Stage2Unit struct {
	variant  Stage2Variant
	mask     uint64
	minDelay int
	maxDelay int
	src      delay.Source

	state Stage2State
}

// NewStage2Unit creates a Stage2Unit. Parameters are validated at
// configuration time by the top level.
func NewStage2Unit(p Stage2Params) *Stage2Unit {
	return &Stage2Unit{
		variant:  p.Variant,
		mask:     Mask(p.DataWidth),
		minDelay: p.MinDelay,
		maxDelay: p.MaxRandomDelay,
		src:      p.Source,
	}
}

// Next computes the unit state after one fast tick without mutating the
// current state. regValue is the pipeline register's pre-edge held value
// and edge is the slow-clock transition this tick produced. Because the
// register latches on the same edge, the unit always observes the value
// held for the previous slow cycle.
func (u *Stage2Unit) Next(resetActive bool, regValue uint64, edge clock.Edge) Stage2State {
	if resetActive {
		return Stage2State{}
	}

	switch u.variant {
	case VariantDirectDouble:
		return u.nextDirect(regValue, edge)
	case VariantLatchedDelay:
		return u.nextLatched(regValue, edge)
	default:
		return u.nextFastDomain(regValue)
	}
}

func (u *Stage2Unit) nextDirect(regValue uint64, edge clock.Edge) Stage2State {
	next := u.state
	next.Committed = false
	if edge == clock.EdgeRising {
		next.Result = (regValue << 1) & u.mask
		next.Committed = true
	}
	return next
}

func (u *Stage2Unit) nextLatched(regValue uint64, edge clock.Edge) Stage2State {
	next := u.state
	next.Committed = false
	if edge == clock.EdgeRising {
		next.Latch = regValue & u.mask
	}
	// The fast-domain machine reads the pre-edge latch, never the copy
	// taken this tick.
	return u.advanceDelay(next, u.state.Latch)
}

func (u *Stage2Unit) nextFastDomain(regValue uint64) Stage2State {
	next := u.state
	next.Committed = false
	return u.advanceDelay(next, regValue)
}

func (u *Stage2Unit) advanceDelay(next Stage2State, input uint64) Stage2State {
	if !u.state.Computing {
		chosen := u.minDelay + u.src.Draw(u.maxDelay)
		next.Chosen = chosen
		next.Snapshot = input & u.mask
		if chosen == 0 {
			// Zero-delay draw: commit within the starting tick.
			next.Result = (next.Snapshot << 1) & u.mask
			next.Committed = true
			return next
		}
		next.Computing = true
		next.Remaining = chosen
		return next
	}

	next.Remaining = u.state.Remaining - 1
	if next.Remaining == 0 {
		next.Computing = false
		next.Result = (u.state.Snapshot << 1) & u.mask
		next.Committed = true
	}
	return next
}

// Latch commits a previously computed state.
func (u *Stage2Unit) Latch(s Stage2State) {
	u.state = s
}

// Reset synchronously clears the unit.
func (u *Stage2Unit) Reset() {
	u.state = Stage2State{}
}

// Variant returns the modeled behavior.
func (u *Stage2Unit) Variant() Stage2Variant {
	return u.variant
}

// Result returns the committed doubled value.
func (u *Stage2Unit) Result() uint64 {
	return u.state.Result
}

// LatchValue returns the slow-edge latch (VariantLatchedDelay only; zero
// otherwise).
func (u *Stage2Unit) LatchValue() uint64 {
	return u.state.Latch
}

// Computing reports whether a delay is counting down.
func (u *Stage2Unit) Computing() bool {
	return u.state.Computing
}

// RemainingDelay returns the ticks left before the pending commit.
func (u *Stage2Unit) RemainingDelay() int {
	return u.state.Remaining
}

// ChosenDelay returns the delay drawn for the computation in flight.
func (u *Stage2Unit) ChosenDelay() int {
	return u.state.Chosen
}
