package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/hwstage/cdcsim/timing/pipeline"
)

// VCD identifier codes, one per observable signal.
const (
	vcdIDReset    = "!"
	vcdIDSlowClk  = "\""
	vcdIDS1Out    = "#"
	vcdIDS1Ready  = "$"
	vcdIDRegValue = "%"
	vcdIDS2Latch  = "&"
	vcdIDS2Result = "'"
)

// VCDWriter dumps the observable signals as a Value Change Dump, the
// waveform format testbench dump statements produce. One fast tick maps
// to one VCD time unit.
type VCDWriter struct {
	bw    *bufio.Writer
	width int

	headerDone bool
	havePrev   bool
	prev       pipeline.Snapshot
	err        error
}

// NewVCDWriter creates a VCDWriter targeting w. dataWidth is the vector
// width of the value signals.
func NewVCDWriter(w io.Writer, dataWidth int) *VCDWriter {
	return &VCDWriter{
		bw:    bufio.NewWriter(w),
		width: dataWidth,
	}
}

// Func implements sim.Hook.
func (v *VCDWriter) Func(ctx sim.HookCtx) {
	snap, ok := ctx.Item.(pipeline.Snapshot)
	if !ok {
		return
	}
	if !v.headerDone {
		v.writeHeader()
		v.headerDone = true
	}

	if v.havePrev && sameSignals(snap, v.prev) {
		return
	}

	v.printf("#%d\n", snap.Tick)
	v.dumpChanges(snap)
	v.prev = snap
	v.havePrev = true
}

// sameSignals compares two snapshots on the dumped signals only,
// ignoring the timestamp and the edge marker.
func sameSignals(a, b pipeline.Snapshot) bool {
	a.Tick, b.Tick = 0, 0
	a.SlowEdge, b.SlowEdge = 0, 0
	return a == b
}

func (v *VCDWriter) writeHeader() {
	v.printf("$timescale 1ns $end\n")
	v.printf("$scope module pipeline_top $end\n")
	v.printf("$var wire 1 %s reset $end\n", vcdIDReset)
	v.printf("$var wire 1 %s slow_clk $end\n", vcdIDSlowClk)
	v.printf("$var wire %d %s s1_out $end\n", v.width, vcdIDS1Out)
	v.printf("$var wire 1 %s s1_ready $end\n", vcdIDS1Ready)
	v.printf("$var wire %d %s pr_value $end\n", v.width, vcdIDRegValue)
	v.printf("$var wire %d %s s2_latch $end\n", v.width, vcdIDS2Latch)
	v.printf("$var wire %d %s s2_result $end\n", v.width, vcdIDS2Result)
	v.printf("$upscope $end\n")
	v.printf("$enddefinitions $end\n")
}

func (v *VCDWriter) dumpChanges(snap pipeline.Snapshot) {
	first := !v.havePrev
	if first || snap.ResetActive != v.prev.ResetActive {
		v.scalar(snap.ResetActive, vcdIDReset)
	}
	if first || snap.SlowClock != v.prev.SlowClock {
		v.scalar(snap.SlowClock, vcdIDSlowClk)
	}
	if first || snap.Stage1Output != v.prev.Stage1Output {
		v.vector(snap.Stage1Output, vcdIDS1Out)
	}
	if first || snap.Stage1Ready != v.prev.Stage1Ready {
		v.scalar(snap.Stage1Ready, vcdIDS1Ready)
	}
	if first || snap.RegisterValue != v.prev.RegisterValue {
		v.vector(snap.RegisterValue, vcdIDRegValue)
	}
	if first || snap.Stage2Latch != v.prev.Stage2Latch {
		v.vector(snap.Stage2Latch, vcdIDS2Latch)
	}
	if first || snap.Stage2Result != v.prev.Stage2Result {
		v.vector(snap.Stage2Result, vcdIDS2Result)
	}
}

func (v *VCDWriter) scalar(value bool, id string) {
	if value {
		v.printf("1%s\n", id)
	} else {
		v.printf("0%s\n", id)
	}
}

func (v *VCDWriter) vector(value uint64, id string) {
	v.printf("b%s %s\n", strconv.FormatUint(value, 2), id)
}

func (v *VCDWriter) printf(format string, args ...interface{}) {
	if v.err != nil {
		return
	}
	if _, err := fmt.Fprintf(v.bw, format, args...); err != nil {
		v.err = err
	}
}

// Close flushes buffered output and returns the first error encountered.
func (v *VCDWriter) Close() error {
	if err := v.bw.Flush(); err != nil && v.err == nil {
		v.err = err
	}
	return v.err
}
