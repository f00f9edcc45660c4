// Package trace provides detachable observers for the pipeline model:
// a console monitor, a VCD waveform writer and a CSV trace writer. All
// of them implement sim.Hook and consume the Snapshot published after
// every tick; the core model never references them.
package trace

import (
	"fmt"
	"io"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/hwstage/cdcsim/timing/pipeline"
)

// Monitor prints a signal line whenever an observable signal changes,
// the way a testbench monitor statement would.
type Monitor struct {
	w         io.Writer
	hexDigits int

	havePrev bool
	prev     pipeline.Snapshot
	err      error
}

// NewMonitor creates a Monitor writing to w. dataWidth sets the hex
// field width for value signals.
func NewMonitor(w io.Writer, dataWidth int) *Monitor {
	return &Monitor{
		w:         w,
		hexDigits: (dataWidth + 3) / 4,
	}
}

// Func implements sim.Hook.
func (m *Monitor) Func(ctx sim.HookCtx) {
	snap, ok := ctx.Item.(pipeline.Snapshot)
	if !ok {
		return
	}
	if m.havePrev && !m.changed(snap) {
		return
	}
	m.havePrev = true
	m.prev = snap

	_, err := fmt.Fprintf(m.w,
		"time=%4d rst=%s clk=%s s1_out=0x%0*X ready=%s pr=0x%0*X s2_result=0x%0*X\n",
		snap.Tick,
		bit(snap.ResetActive), bit(snap.SlowClock),
		m.hexDigits, snap.Stage1Output,
		bit(snap.Stage1Ready),
		m.hexDigits, snap.RegisterValue,
		m.hexDigits, snap.Stage2Result)
	if err != nil && m.err == nil {
		m.err = err
	}
}

// changed compares the displayed signals, ignoring the timestamp.
func (m *Monitor) changed(snap pipeline.Snapshot) bool {
	return snap.ResetActive != m.prev.ResetActive ||
		snap.SlowClock != m.prev.SlowClock ||
		snap.Stage1Output != m.prev.Stage1Output ||
		snap.Stage1Ready != m.prev.Stage1Ready ||
		snap.RegisterValue != m.prev.RegisterValue ||
		snap.Stage2Result != m.prev.Stage2Result
}

// Err returns the first write error encountered, if any.
func (m *Monitor) Err() error {
	return m.err
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
