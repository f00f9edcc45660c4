// Package main provides the entry point for CDCSim.
// CDCSim is a cycle-accurate model of a two-stage pipeline with
// clock-domain crossing.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hwstage/cdcsim/timing/core"
	"github.com/hwstage/cdcsim/timing/pipeline"
	"github.com/hwstage/cdcsim/trace"
)

var (
	configPath = flag.String("config", "", "Path to pipeline configuration JSON file")
	cycles     = flag.Int("cycles", 0, "Number of fast ticks to simulate (overrides config)")
	seed       = flag.Int64("seed", 0, "Random seed (overrides config)")
	variant    = flag.String("variant", "", "Stage2 variant: direct-double | latched-plus-delay | fast-domain-delay")
	resetTicks = flag.Int("reset-ticks", 4, "Number of ticks to hold reset asserted")
	vcdPath    = flag.String("vcd", "", "Write a VCD waveform dump to this path")
	csvPath    = flag.String("csv", "", "Write a per-tick CSV trace to this path")
	monitor    = flag.Bool("monitor", false, "Print a monitor line on every signal change")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	cfg, err := buildConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := []core.Option{core.WithResetTicks(*resetTicks)}

	if *monitor {
		opts = append(opts, core.WithObserver(trace.NewMonitor(os.Stdout, cfg.DataWidth)))
	}

	var vcd *trace.VCDWriter
	if *vcdPath != "" {
		f, err := os.Create(*vcdPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating VCD file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		vcd = trace.NewVCDWriter(f, cfg.DataWidth)
		opts = append(opts, core.WithObserver(vcd))
	}

	var csv *trace.CSVWriter
	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CSV file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		csv = trace.NewCSVWriter(f)
		opts = append(opts, core.WithObserver(csv))
	}

	sim, err := core.NewSimulator(cfg, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Variant: %s\n", cfg.Stage2Variant)
		fmt.Printf("Divide ratio: %d\n", cfg.ClockDivideRatio)
		fmt.Printf("Max random delay: %d\n", cfg.MaxRandomDelay)
		fmt.Printf("Seed: %d\n", cfg.RandomSeed)
	}

	sim.Run()

	if vcd != nil {
		if err := vcd.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing VCD: %v\n", err)
		}
	}
	if csv != nil {
		if err := csv.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
		}
	}

	printReport(sim)
}

// buildConfig loads the config file if given and applies flag overrides.
func buildConfig() (*pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	if *configPath != "" {
		loaded, err := pipeline.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cycles":
			cfg.SimCycles = *cycles
		case "seed":
			cfg.RandomSeed = *seed
		case "variant":
			cfg.Stage2Variant = *variant
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printReport(sim *core.Simulator) {
	stats := sim.Stats()
	snap := sim.Top().Snapshot()

	fmt.Printf("\n")
	fmt.Printf("Total Ticks: %d\n", stats.Ticks)
	fmt.Printf("Slow Periods: %d\n", stats.SlowPeriods)
	fmt.Printf("Stage1 Commits: %d\n", stats.Stage1Commits)
	fmt.Printf("Stage2 Commits: %d\n", stats.Stage2Commits)
	if stats.ObserverFaults > 0 {
		fmt.Printf("Observer Faults: %d\n", stats.ObserverFaults)
	}
	fmt.Printf("\n")
	fmt.Printf("Final Signals:\n")
	fmt.Printf("  slow_clk:  %v\n", snap.SlowClock)
	fmt.Printf("  s1_out:    0x%02X\n", snap.Stage1Output)
	fmt.Printf("  pr_value:  0x%02X\n", snap.RegisterValue)
	fmt.Printf("  s2_result: 0x%02X\n", snap.Stage2Result)
}
