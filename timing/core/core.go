// Package core provides the top-level simulation driver.
// It wraps the pipeline model with a reset schedule and a bounded run
// loop, and is the single owner of tick advancement.
package core

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/hwstage/cdcsim/timing/pipeline"
)

// Stats holds run statistics for the simulator.
type Stats struct {
	// Ticks is the number of fast ticks executed.
	Ticks uint64
	// SlowPeriods is the number of completed slow-clock periods.
	SlowPeriods uint64
	// Stage1Commits is the number of Stage1 value commits.
	Stage1Commits uint64
	// Stage2Commits is the number of Stage2 result commits.
	Stage2Commits uint64
	// ObserverFaults is the number of recovered observer panics.
	ObserverFaults uint64
}

// Option is a functional option for configuring the Simulator.
type Option func(*Simulator)

// WithResetTicks sets how many ticks Run holds reset asserted before
// releasing it. Default: 4.
func WithResetTicks(n int) Option {
	return func(s *Simulator) {
		s.resetTicks = n
	}
}

// WithObserver registers a hook invoked with the Snapshot after every
// tick.
func WithObserver(hook sim.Hook) Option {
	return func(s *Simulator) {
		s.top.AcceptHook(hook)
	}
}

// Simulator drives the pipeline model for a configured number of fast
// ticks with a reset lead-in.
type Simulator struct {
	top        *pipeline.Top
	simCycles  int
	resetTicks int
}

// NewSimulator creates a Simulator from the given configuration.
func NewSimulator(cfg *pipeline.Config, opts ...Option) (*Simulator, error) {
	top, err := pipeline.NewTop(cfg)
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		top:        top,
		simCycles:  cfg.SimCycles,
		resetTicks: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Top returns the underlying pipeline model.
func (s *Simulator) Top() *pipeline.Top {
	return s.top
}

// Run executes the configured number of ticks: reset is held for the
// reset lead-in, then released for the remainder. The reset ticks count
// toward the total.
func (s *Simulator) Run() {
	s.top.SetReset(true)
	held := s.resetTicks
	if held > s.simCycles {
		held = s.simCycles
	}
	for i := 0; i < held; i++ {
		s.top.Tick()
	}
	s.top.SetReset(false)
	for i := held; i < s.simCycles; i++ {
		s.top.Tick()
	}
}

// RunCycles executes n additional ticks at the current reset level.
func (s *Simulator) RunCycles(n int) {
	for i := 0; i < n; i++ {
		s.top.Tick()
	}
}

// Stats returns run statistics.
func (s *Simulator) Stats() Stats {
	topStats := s.top.Stats()
	return Stats{
		Ticks:          topStats.Ticks,
		SlowPeriods:    topStats.SlowPeriods(),
		Stage1Commits:  topStats.Stage1Commits,
		Stage2Commits:  topStats.Stage2Commits,
		ObserverFaults: topStats.ObserverFaults,
	}
}
