package pipeline

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/hwstage/cdcsim/timing/clock"
	"github.com/hwstage/cdcsim/timing/stage"
)

// ErrConfiguration is the sentinel wrapped by all construction-time
// validation failures.
var ErrConfiguration = errors.New("invalid configuration")

// Config holds the construct-time parameters of the pipeline model.
type Config struct {
	// DataWidth is the signal width in bits (1..64). Default: 8.
	DataWidth int `json:"data_width"`

	// ClockDivideRatio relates the fast and slow clock domains; the slow
	// level toggles every ClockDivideRatio/2 fast ticks. Must be a
	// positive even integer. Default: 4.
	ClockDivideRatio int `json:"clock_divide_ratio"`

	// MaxRandomDelay bounds the random component of the per-stage delay
	// draws. Must be >= 0. Default: 3.
	MaxRandomDelay int `json:"max_random_delay"`

	// Stage2Variant selects the second-stage behavior: "direct-double",
	// "latched-plus-delay" or "fast-domain-delay". Default:
	// "direct-double".
	Stage2Variant string `json:"stage2_variant"`

	// RandomSeed seeds the shared delay source. Runs with equal seeds
	// produce identical snapshot sequences. Default: 1.
	RandomSeed int64 `json:"random_seed"`

	// SimCycles is the number of fast ticks a full run executes.
	// Default: 120.
	SimCycles int `json:"sim_cycles"`

	// RegisterEdge is the slow-clock transition on which the pipeline
	// register samples: "rising" or "falling". One hardware revision
	// sampled on the falling edge. Default: "rising".
	RegisterEdge string `json:"register_edge"`

	// Stage1MinDelay is the lower bound of Stage1's delay range (0 or 1),
	// so the drawn delay is in [min, min+MaxRandomDelay). The revisions
	// disagreed on whether 0 is included. Default: 1.
	Stage1MinDelay int `json:"stage1_min_delay"`

	// Stage2MinDelay is the lower bound of Stage2's delay range (0 or 1)
	// for the delayed variants. Default: 0.
	Stage2MinDelay int `json:"stage2_min_delay"`

	// SkipFirstIncrement reproduces the startup guard of one revision:
	// the first Stage1 commit after reset passes its input through
	// un-incremented. Default: true.
	SkipFirstIncrement bool `json:"skip_first_increment"`
}

// DefaultConfig returns a Config with the source design's default values.
func DefaultConfig() *Config {
	return &Config{
		DataWidth:          8,
		ClockDivideRatio:   4,
		MaxRandomDelay:     3,
		Stage2Variant:      stage.VariantDirectDouble.String(),
		RandomSeed:         1,
		SimCycles:          120,
		RegisterEdge:       "rising",
		Stage1MinDelay:     1,
		Stage2MinDelay:     0,
		SkipFirstIncrement: true,
	}
}

// LoadConfig loads a Config from a JSON file, starting from defaults so
// absent fields keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read pipeline config file")
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse pipeline config")
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize pipeline config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write pipeline config file")
	}

	return nil
}

// Validate checks every construct-time parameter. All failures wrap
// ErrConfiguration.
func (c *Config) Validate() error {
	if c.DataWidth < 1 || c.DataWidth > 64 {
		return errors.Wrapf(ErrConfiguration,
			"data_width must be in [1, 64], got %d", c.DataWidth)
	}
	if c.ClockDivideRatio <= 0 || c.ClockDivideRatio%2 != 0 {
		return errors.Wrapf(ErrConfiguration,
			"clock_divide_ratio must be a positive even integer, got %d",
			c.ClockDivideRatio)
	}
	if c.MaxRandomDelay < 0 {
		return errors.Wrapf(ErrConfiguration,
			"max_random_delay must be >= 0, got %d", c.MaxRandomDelay)
	}
	if _, ok := stage.ParseStage2Variant(c.Stage2Variant); !ok {
		return errors.Wrapf(ErrConfiguration,
			"unknown stage2_variant %q", c.Stage2Variant)
	}
	if c.SimCycles < 0 {
		return errors.Wrapf(ErrConfiguration,
			"sim_cycles must be >= 0, got %d", c.SimCycles)
	}
	if _, ok := parseRegisterEdge(c.RegisterEdge); !ok {
		return errors.Wrapf(ErrConfiguration,
			"register_edge must be \"rising\" or \"falling\", got %q",
			c.RegisterEdge)
	}
	if c.Stage1MinDelay != 0 && c.Stage1MinDelay != 1 {
		return errors.Wrapf(ErrConfiguration,
			"stage1_min_delay must be 0 or 1, got %d", c.Stage1MinDelay)
	}
	if c.Stage2MinDelay != 0 && c.Stage2MinDelay != 1 {
		return errors.Wrapf(ErrConfiguration,
			"stage2_min_delay must be 0 or 1, got %d", c.Stage2MinDelay)
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

func parseRegisterEdge(name string) (clock.Edge, bool) {
	switch name {
	case "rising":
		return clock.EdgeRising, true
	case "falling":
		return clock.EdgeFalling, true
	default:
		return clock.EdgeNone, false
	}
}
