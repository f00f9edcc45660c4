package trace

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/hwstage/cdcsim/timing/pipeline"
)

// CSVWriter records one row of signal values per tick.
type CSVWriter struct {
	cw *csv.Writer

	headerDone bool
	err        error
}

// NewCSVWriter creates a CSVWriter targeting w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{
		cw: csv.NewWriter(w),
	}
}

// Func implements sim.Hook.
func (c *CSVWriter) Func(ctx sim.HookCtx) {
	snap, ok := ctx.Item.(pipeline.Snapshot)
	if !ok {
		return
	}
	if !c.headerDone {
		c.write([]string{
			"tick", "reset", "slow_clk", "slow_edge",
			"s1_out", "s1_ready", "pr_value", "s2_latch", "s2_result",
		})
		c.headerDone = true
	}

	c.write([]string{
		strconv.FormatUint(snap.Tick, 10),
		bit(snap.ResetActive),
		bit(snap.SlowClock),
		snap.SlowEdge.String(),
		strconv.FormatUint(snap.Stage1Output, 10),
		bit(snap.Stage1Ready),
		strconv.FormatUint(snap.RegisterValue, 10),
		strconv.FormatUint(snap.Stage2Latch, 10),
		strconv.FormatUint(snap.Stage2Result, 10),
	})
}

func (c *CSVWriter) write(record []string) {
	if c.err != nil {
		return
	}
	c.err = c.cw.Write(record)
}

// Close flushes buffered rows and returns the first error encountered.
func (c *CSVWriter) Close() error {
	c.cw.Flush()
	if err := c.cw.Error(); err != nil && c.err == nil {
		c.err = err
	}
	return c.err
}
