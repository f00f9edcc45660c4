// Package clock provides the fast-to-slow clock division model.
//
// The divider counts fast-clock ticks and toggles a derived slow-clock
// level once every half period. Consumers that trigger on slow-clock
// edges read the edge produced by the most recent tick rather than the
// raw level.
package clock

// Edge identifies the slow-clock transition produced by a tick.
type Edge int

const (
	// EdgeNone means the slow clock did not transition on this tick.
	EdgeNone Edge = iota
	// EdgeRising means the slow clock went low to high on this tick.
	EdgeRising
	// EdgeFalling means the slow clock went high to low on this tick.
	EdgeFalling
)

// String returns a human-readable edge name.
func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	default:
		return "none"
	}
}

// DividerState is the next-state value of a Divider for one tick.
// It is computed from pre-tick state and latched at the end of the tick.
type DividerState struct {
	// Counter is the fast-tick count within the current half period.
	Counter int

	// Level is the slow-clock level after the tick.
	Level bool

	// Edge is the transition this tick produced, if any.
	Edge Edge
}

// Divider derives a slow clock from counted fast-clock ticks.
// The slow level toggles once every ratio/2 fast ticks.
type Divider struct {
	halfPeriod int

	counter  int
	level    bool
	lastEdge Edge
}

// NewDivider creates a divider for the given divide ratio.
// The ratio must be a positive even integer; callers validate it at
// configuration time.
func NewDivider(ratio int) *Divider {
	return &Divider{
		halfPeriod: ratio / 2,
	}
}

// Next computes the divider state after one fast tick without mutating
// the current state. While reset is active the counter and level stay
// cleared and no edge is reported.
func (d *Divider) Next(resetActive bool) DividerState {
	if resetActive {
		return DividerState{}
	}

	next := DividerState{
		Counter: d.counter + 1,
		Level:   d.level,
		Edge:    EdgeNone,
	}

	if d.counter == d.halfPeriod-1 {
		next.Counter = 0
		next.Level = !d.level
		if next.Level {
			next.Edge = EdgeRising
		} else {
			next.Edge = EdgeFalling
		}
	}

	return next
}

// Latch commits a previously computed state.
func (d *Divider) Latch(s DividerState) {
	d.counter = s.Counter
	d.level = s.Level
	d.lastEdge = s.Edge
}

// Reset synchronously clears the divider.
func (d *Divider) Reset() {
	d.Latch(DividerState{})
}

// Level returns the current slow-clock level.
func (d *Divider) Level() bool {
	return d.level
}

// LastEdge returns the transition produced by the most recent tick.
func (d *Divider) LastEdge() Edge {
	return d.lastEdge
}

// Counter returns the fast-tick count within the current half period.
func (d *Divider) Counter() int {
	return d.counter
}
