package pipeline

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/hwstage/cdcsim/timing/clock"
)

// HookPosTickComplete is the hook position invoked after every tick has
// latched, with the post-tick Snapshot as the item.
var HookPosTickComplete = &sim.HookPos{Name: "TickComplete"}

// Snapshot is the full observable-signal state after one tick. It is the
// item delivered to hooks registered on the Top; external collaborators
// (console monitors, waveform writers) consume it without the core
// knowing about them.
type Snapshot struct {
	// Tick is the fast-tick timestamp, counted from model construction.
	Tick uint64

	// ResetActive reports whether reset was asserted during the tick.
	ResetActive bool

	// SlowClock is the slow-clock level.
	SlowClock bool

	// SlowEdge is the slow-clock transition the tick produced, if any.
	SlowEdge clock.Edge

	// Stage1Output is Stage1's committed output value.
	Stage1Output uint64

	// Stage1Ready is Stage1's one-tick commit pulse.
	Stage1Ready bool

	// RegisterValue is the pipeline register's held value.
	RegisterValue uint64

	// Stage2Latch is Stage2's slow-edge latch (latched variant only).
	Stage2Latch uint64

	// Stage2Result is Stage2's committed doubled value.
	Stage2Result uint64
}
