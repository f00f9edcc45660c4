package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/hwstage/cdcsim/timing/clock"
	"github.com/hwstage/cdcsim/timing/delay"
	"github.com/hwstage/cdcsim/timing/pipeline"
)

var _ sim.Hookable = (*pipeline.Top)(nil)

// snapshotRecorder collects every published snapshot.
type snapshotRecorder struct {
	snaps []pipeline.Snapshot
}

func (r *snapshotRecorder) Func(ctx sim.HookCtx) {
	snap, ok := ctx.Item.(pipeline.Snapshot)
	if ok {
		r.snaps = append(r.snaps, snap)
	}
}

// panicHook always fails, standing in for a broken observer.
type panicHook struct{}

func (panicHook) Func(sim.HookCtx) {
	panic("observer failure")
}

var _ = Describe("Top", func() {
	var cfg *pipeline.Config

	BeforeEach(func() {
		cfg = pipeline.DefaultConfig()
	})

	Describe("NewTop", func() {
		It("should reject an invalid configuration", func() {
			cfg.ClockDivideRatio = 3
			_, err := pipeline.NewTop(cfg)
			Expect(err).To(MatchError(pipeline.ErrConfiguration))
		})

		It("should start with all signals cleared", func() {
			top, err := pipeline.NewTop(cfg)
			Expect(err).NotTo(HaveOccurred())

			snap := top.Snapshot()
			Expect(snap.Tick).To(Equal(uint64(0)))
			Expect(snap.SlowClock).To(BeFalse())
			Expect(snap.Stage1Output).To(Equal(uint64(0)))
			Expect(snap.RegisterValue).To(Equal(uint64(0)))
			Expect(snap.Stage2Result).To(Equal(uint64(0)))
		})
	})

	Describe("feedback chain with direct-double", func() {
		var top *pipeline.Top

		BeforeEach(func() {
			// Fixed draw of 0 with min delay 1 makes Stage1 commit every
			// other tick, so each slow rising edge (every 4th tick with
			// ratio 4) sees a freshly incremented value.
			var err error
			top, err = pipeline.NewTop(cfg,
				pipeline.WithStage1Source(delay.FixedSource(0)),
				pipeline.WithStage2Source(delay.FixedSource(0)))
			Expect(err).NotTo(HaveOccurred())
		})

		tickTo := func(n uint64) {
			for top.TickCount() < n {
				top.Tick()
			}
		}

		It("should skip the first increment after reset", func() {
			tickTo(2)
			Expect(top.Stage1Output()).To(Equal(uint64(0)))
			tickTo(4)
			Expect(top.Stage1Output()).To(Equal(uint64(1)))
		})

		It("should advance the register once per slow cycle", func() {
			tickTo(2)
			Expect(top.RegisterValue()).To(Equal(uint64(0)))
			tickTo(6)
			Expect(top.RegisterValue()).To(Equal(uint64(1)))
			tickTo(10)
			Expect(top.RegisterValue()).To(Equal(uint64(2)))
			tickTo(14)
			Expect(top.RegisterValue()).To(Equal(uint64(3)))
		})

		It("should produce each doubled value one slow cycle after the register held it", func() {
			tickTo(6)
			Expect(top.Stage2Result()).To(Equal(uint64(0)))
			tickTo(10)
			Expect(top.Stage2Result()).To(Equal(uint64(2)))
			tickTo(14)
			Expect(top.Stage2Result()).To(Equal(uint64(4)))
			tickTo(18)
			Expect(top.Stage2Result()).To(Equal(uint64(6)))
		})

		It("should never let Stage2 observe the value captured on the same edge", func() {
			rec := &snapshotRecorder{}
			top.AcceptHook(rec)
			tickTo(40)

			for i, snap := range rec.snaps {
				if snap.SlowEdge != clock.EdgeRising || i == 0 {
					continue
				}
				prev := rec.snaps[i-1]
				Expect(snap.Stage2Result).To(
					Equal((prev.RegisterValue<<1)&0xFF),
					"tick %d", snap.Tick)
			}
		})
	})

	Describe("latched-plus-delay variant", func() {
		It("should double through the slow-edge latch after the drawn delay", func() {
			cfg.Stage2Variant = "latched-plus-delay"
			top, err := pipeline.NewTop(cfg,
				pipeline.WithStage1Source(delay.FixedSource(0)),
				pipeline.WithStage2Source(delay.FixedSource(1)))
			Expect(err).NotTo(HaveOccurred())

			for top.TickCount() < 12 {
				top.Tick()
			}
			Expect(top.Stage2Result()).To(Equal(uint64(2)))

			for top.TickCount() < 16 {
				top.Tick()
			}
			Expect(top.Stage2Result()).To(Equal(uint64(4)))
		})
	})

	Describe("falling register edge", func() {
		It("should update the register only on falling edges", func() {
			cfg.RegisterEdge = "falling"
			top, err := pipeline.NewTop(cfg,
				pipeline.WithStage1Source(delay.FixedSource(0)),
				pipeline.WithStage2Source(delay.FixedSource(0)))
			Expect(err).NotTo(HaveOccurred())

			rec := &snapshotRecorder{}
			top.AcceptHook(rec)
			for i := 0; i < 40; i++ {
				top.Tick()
			}

			for i := 1; i < len(rec.snaps); i++ {
				if rec.snaps[i].RegisterValue != rec.snaps[i-1].RegisterValue {
					Expect(rec.snaps[i].SlowEdge).To(
						Equal(clock.EdgeFalling), "tick %d", rec.snaps[i].Tick)
				}
			}
		})
	})

	Describe("reset", func() {
		It("should clear every signal on the tick after assertion", func() {
			top, err := pipeline.NewTop(cfg)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 17; i++ {
				top.Tick()
			}
			top.SetReset(true)
			top.Tick()

			snap := top.Snapshot()
			Expect(snap.ResetActive).To(BeTrue())
			Expect(snap.SlowClock).To(BeFalse())
			Expect(snap.SlowEdge).To(Equal(clock.EdgeNone))
			Expect(snap.Stage1Output).To(Equal(uint64(0)))
			Expect(snap.Stage1Ready).To(BeFalse())
			Expect(snap.RegisterValue).To(Equal(uint64(0)))
			Expect(snap.Stage2Latch).To(Equal(uint64(0)))
			Expect(snap.Stage2Result).To(Equal(uint64(0)))
		})

		It("should never toggle the slow clock while held", func() {
			top, err := pipeline.NewTop(cfg)
			Expect(err).NotTo(HaveOccurred())

			top.SetReset(true)
			for i := 0; i < 10; i++ {
				top.Tick()
				Expect(top.SlowClockLevel()).To(BeFalse())
			}
			Expect(top.Stats().SlowToggles).To(Equal(uint64(0)))
		})

		It("should be idempotent", func() {
			top, err := pipeline.NewTop(cfg)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 9; i++ {
				top.Tick()
			}
			top.Reset()
			once := top.Snapshot()
			top.Reset()
			Expect(top.Snapshot()).To(Equal(once))
		})
	})

	Describe("determinism", func() {
		runSequence := func(seed int64) []pipeline.Snapshot {
			c := pipeline.DefaultConfig()
			c.Stage2Variant = "latched-plus-delay"
			c.RandomSeed = seed

			top, err := pipeline.NewTop(c)
			Expect(err).NotTo(HaveOccurred())
			rec := &snapshotRecorder{}
			top.AcceptHook(rec)

			top.SetReset(true)
			for i := 0; i < 4; i++ {
				top.Tick()
			}
			top.SetReset(false)
			for i := 4; i < 120; i++ {
				top.Tick()
			}
			return rec.snaps
		}

		It("should produce identical snapshot sequences for identical seeds", func() {
			Expect(runSequence(42)).To(Equal(runSequence(42)))
		})
	})

	Describe("overflow wraparound", func() {
		It("should wrap the increment chain at the data width", func() {
			// Width 1 wraps immediately: the chain is 0, 1, 0, 1...
			cfg.DataWidth = 1
			cfg.SkipFirstIncrement = false
			top, err := pipeline.NewTop(cfg,
				pipeline.WithStage1Source(delay.FixedSource(0)),
				pipeline.WithStage2Source(delay.FixedSource(0)))
			Expect(err).NotTo(HaveOccurred())

			rec := &snapshotRecorder{}
			top.AcceptHook(rec)
			for i := 0; i < 40; i++ {
				top.Tick()
			}
			for _, snap := range rec.snaps {
				Expect(snap.Stage1Output).To(BeNumerically("<=", 1))
				// Doubling a 1-bit value always truncates to 0.
				Expect(snap.Stage2Result).To(Equal(uint64(0)))
			}
		})
	})

	Describe("observer hooks", func() {
		It("should expose registered hooks", func() {
			top, err := pipeline.NewTop(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(top.NumHooks()).To(Equal(0))
			Expect(top.Hooks()).To(BeEmpty())

			rec := &snapshotRecorder{}
			top.AcceptHook(rec)
			top.AcceptHook(panicHook{})

			Expect(top.NumHooks()).To(Equal(2))
			hooks := top.Hooks()
			Expect(hooks).To(HaveLen(2))
			Expect(hooks[0]).To(BeIdenticalTo(rec))
		})

		It("should deliver one snapshot per tick", func() {
			top, err := pipeline.NewTop(cfg)
			Expect(err).NotTo(HaveOccurred())

			rec := &snapshotRecorder{}
			top.AcceptHook(rec)
			for i := 0; i < 5; i++ {
				top.Tick()
			}

			Expect(rec.snaps).To(HaveLen(5))
			for i, snap := range rec.snaps {
				Expect(snap.Tick).To(Equal(uint64(i + 1)))
			}
		})

		It("should isolate a panicking hook from the model and other hooks", func() {
			top, err := pipeline.NewTop(cfg)
			Expect(err).NotTo(HaveOccurred())

			rec := &snapshotRecorder{}
			top.AcceptHook(panicHook{})
			top.AcceptHook(rec)

			for i := 0; i < 3; i++ {
				top.Tick()
			}

			Expect(top.TickCount()).To(Equal(uint64(3)))
			Expect(rec.snaps).To(HaveLen(3))
			Expect(top.Stats().ObserverFaults).To(Equal(uint64(3)))
			Expect(top.LastObserverFault()).To(Equal("observer failure"))
		})
	})

	Describe("Stats", func() {
		It("should count commits and toggles", func() {
			top, err := pipeline.NewTop(cfg,
				pipeline.WithStage1Source(delay.FixedSource(0)),
				pipeline.WithStage2Source(delay.FixedSource(0)))
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 40; i++ {
				top.Tick()
			}

			stats := top.Stats()
			Expect(stats.Ticks).To(Equal(uint64(40)))
			// Ratio 4: one toggle every 2 ticks.
			Expect(stats.SlowToggles).To(Equal(uint64(20)))
			Expect(stats.SlowPeriods()).To(Equal(uint64(10)))
			// Stage1 commits every other tick.
			Expect(stats.Stage1Commits).To(Equal(uint64(20)))
			// Direct-double commits on every rising edge.
			Expect(stats.Stage2Commits).To(Equal(uint64(10)))
		})
	})
})
