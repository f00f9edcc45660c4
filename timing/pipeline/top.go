package pipeline

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/hwstage/cdcsim/timing/clock"
	"github.com/hwstage/cdcsim/timing/delay"
	"github.com/hwstage/cdcsim/timing/stage"
)

// Statistics holds counters accumulated over a run.
type Statistics struct {
	// Ticks is the number of fast ticks executed.
	Ticks uint64

	// SlowToggles is the number of slow-clock transitions out of reset.
	SlowToggles uint64

	// Stage1Commits is the number of Stage1 value commits.
	Stage1Commits uint64

	// Stage2Commits is the number of Stage2 result commits.
	Stage2Commits uint64

	// ObserverFaults is the number of recovered hook panics.
	ObserverFaults uint64
}

// SlowPeriods returns the number of completed full slow-clock periods.
func (s Statistics) SlowPeriods() uint64 {
	return s.SlowToggles / 2
}

// TopOption is a functional option for configuring the Top.
type TopOption func(*topOptions)

type topOptions struct {
	stage1Src delay.Source
	stage2Src delay.Source
}

// WithStage1Source overrides Stage1's delay source, typically with a
// scripted source in tests.
func WithStage1Source(src delay.Source) TopOption {
	return func(o *topOptions) {
		o.stage1Src = src
	}
}

// WithStage2Source overrides Stage2's delay source.
func WithStage2Source(src delay.Source) TopOption {
	return func(o *topOptions) {
		o.stage2Src = src
	}
}

// Top wires the clock divider, the two stage units and the pipeline
// register, and closes the feedback loop: Stage1's input each tick is the
// register's current held value, which turns the free-running incrementer
// into a slow-rate chain.
//
// Top implements sim.Hookable; hooks registered with AcceptHook are
// invoked after every tick with the post-tick Snapshot.
type Top struct {
	cfg Config

	divider *clock.Divider
	stage1  *stage.Stage1Unit
	reg     *Register
	stage2  *stage.Stage2Unit

	tick        uint64
	resetActive bool

	hooks     []sim.Hook
	stats     Statistics
	lastFault interface{}
}

// NewTop constructs and validates the model. Both stages draw from one
// shared seeded source unless overridden, so a run is fully determined by
// the configured seed.
func NewTop(cfg *Config, opts ...TopOption) (*Top, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o topOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.stage1Src == nil || o.stage2Src == nil {
		shared := delay.NewRandomSource(cfg.RandomSeed)
		if o.stage1Src == nil {
			o.stage1Src = shared
		}
		if o.stage2Src == nil {
			o.stage2Src = shared
		}
	}

	variant, _ := stage.ParseStage2Variant(cfg.Stage2Variant)
	sampleEdge, _ := parseRegisterEdge(cfg.RegisterEdge)
	mask := stage.Mask(cfg.DataWidth)

	t := &Top{
		cfg:     *cfg,
		divider: clock.NewDivider(cfg.ClockDivideRatio),
		stage1: stage.NewStage1Unit(stage.Stage1Params{
			DataWidth:          cfg.DataWidth,
			MinDelay:           cfg.Stage1MinDelay,
			MaxRandomDelay:     cfg.MaxRandomDelay,
			SkipFirstIncrement: cfg.SkipFirstIncrement,
			Source:             o.stage1Src,
		}),
		reg: NewRegister(sampleEdge, mask),
		stage2: stage.NewStage2Unit(stage.Stage2Params{
			Variant:        variant,
			DataWidth:      cfg.DataWidth,
			MinDelay:       cfg.Stage2MinDelay,
			MaxRandomDelay: cfg.MaxRandomDelay,
			Source:         o.stage2Src,
		}),
	}
	return t, nil
}

// Config returns a copy of the model configuration.
func (t *Top) Config() Config {
	return t.cfg
}

// AcceptHook registers a hook, implementing sim.Hookable.
func (t *Top) AcceptHook(hook sim.Hook) {
	t.hooks = append(t.hooks, hook)
}

// NumHooks returns the number of registered hooks, implementing
// sim.Hookable.
func (t *Top) NumHooks() int {
	return len(t.hooks)
}

// Hooks returns the registered hooks, implementing sim.Hookable.
func (t *Top) Hooks() []sim.Hook {
	return t.hooks
}

// SetReset sets the reset level applied on subsequent ticks. While the
// level is asserted every unit reads as its cleared state on the next
// tick and the slow clock does not toggle.
func (t *Top) SetReset(active bool) {
	t.resetActive = active
}

// ResetActive returns the current reset level.
func (t *Top) ResetActive() bool {
	return t.resetActive
}

// Reset synchronously clears every unit. It does not advance the tick
// counter and calling it repeatedly is idempotent.
func (t *Top) Reset() {
	t.divider.Reset()
	t.stage1.Reset()
	t.reg.Reset()
	t.stage2.Reset()
}

// Tick advances the model by one fast-clock tick.
//
// All next-state values are computed against pre-tick state and latched
// together at the end, reproducing non-blocking-assignment ordering: the
// register samples Stage1's pre-edge output, and Stage2 reads the value
// the register held before this edge, never the one captured on it. The
// stage evaluation order is fixed, so draws from a shared delay source
// stay reproducible.
func (t *Top) Tick() {
	clkNext := t.divider.Next(t.resetActive)
	edge := clkNext.Edge

	regOld := t.reg.Value()
	stage1OutOld := t.stage1.Output()

	stage1Next := t.stage1.Next(t.resetActive, regOld)
	regNext := t.reg.NextValue(t.resetActive, stage1OutOld, edge)
	stage2Next := t.stage2.Next(t.resetActive, regOld, edge)

	t.divider.Latch(clkNext)
	t.stage1.Latch(stage1Next)
	t.reg.Latch(regNext)
	t.stage2.Latch(stage2Next)

	t.tick++
	t.stats.Ticks++
	if edge != clock.EdgeNone {
		t.stats.SlowToggles++
	}
	if stage1Next.Ready {
		t.stats.Stage1Commits++
	}
	if stage2Next.Committed {
		t.stats.Stage2Commits++
	}

	t.publish()
}

// publish delivers the post-tick snapshot to every registered hook. A
// panicking hook is recovered and counted; it never corrupts or halts the
// model.
func (t *Top) publish() {
	if len(t.hooks) == 0 {
		return
	}
	ctx := sim.HookCtx{
		Domain: t,
		Pos:    HookPosTickComplete,
		Item:   t.Snapshot(),
	}
	for _, h := range t.hooks {
		t.invokeHook(h, ctx)
	}
}

func (t *Top) invokeHook(h sim.Hook, ctx sim.HookCtx) {
	defer func() {
		if r := recover(); r != nil {
			t.stats.ObserverFaults++
			t.lastFault = r
		}
	}()
	h.Func(ctx)
}

// Snapshot returns the current observable-signal state.
func (t *Top) Snapshot() Snapshot {
	return Snapshot{
		Tick:          t.tick,
		ResetActive:   t.resetActive,
		SlowClock:     t.divider.Level(),
		SlowEdge:      t.divider.LastEdge(),
		Stage1Output:  t.stage1.Output(),
		Stage1Ready:   t.stage1.Ready(),
		RegisterValue: t.reg.Value(),
		Stage2Latch:   t.stage2.LatchValue(),
		Stage2Result:  t.stage2.Result(),
	}
}

// TickCount returns the number of ticks executed since construction.
func (t *Top) TickCount() uint64 {
	return t.tick
}

// SlowClockLevel returns the slow-clock level.
func (t *Top) SlowClockLevel() bool {
	return t.divider.Level()
}

// Stage1Output returns Stage1's committed output value.
func (t *Top) Stage1Output() uint64 {
	return t.stage1.Output()
}

// Stage1Ready reports Stage1's one-tick commit pulse.
func (t *Top) Stage1Ready() bool {
	return t.stage1.Ready()
}

// RegisterValue returns the pipeline register's held value.
func (t *Top) RegisterValue() uint64 {
	return t.reg.Value()
}

// Stage2Latch returns Stage2's slow-edge latch (latched variant only).
func (t *Top) Stage2Latch() uint64 {
	return t.stage2.LatchValue()
}

// Stage2Result returns Stage2's committed doubled value.
func (t *Top) Stage2Result() uint64 {
	return t.stage2.Result()
}

// Stats returns the accumulated run counters.
func (t *Top) Stats() Statistics {
	return t.stats
}

// LastObserverFault returns the most recently recovered hook panic value,
// or nil if no hook has failed.
func (t *Top) LastObserverFault() interface{} {
	return t.lastFault
}
