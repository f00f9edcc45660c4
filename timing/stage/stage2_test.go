package stage_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hwstage/cdcsim/timing/clock"
	"github.com/hwstage/cdcsim/timing/delay"
	"github.com/hwstage/cdcsim/timing/stage"
)

var _ = Describe("Stage2Unit", func() {
	var u *stage.Stage2Unit

	step := func(reset bool, regValue uint64, edge clock.Edge) stage.Stage2State {
		s := u.Next(reset, regValue, edge)
		u.Latch(s)
		return s
	}

	newUnit := func(variant stage.Stage2Variant, minDelay int, src delay.Source) {
		u = stage.NewStage2Unit(stage.Stage2Params{
			Variant:        variant,
			DataWidth:      8,
			MinDelay:       minDelay,
			MaxRandomDelay: 3,
			Source:         src,
		})
	}

	Describe("direct-double variant", func() {
		BeforeEach(func() {
			newUnit(stage.VariantDirectDouble, 0, delay.FixedSource(0))
		})

		It("should double the register value on the rising edge", func() {
			s := step(false, 0x21, clock.EdgeRising)
			Expect(s.Committed).To(BeTrue())
			Expect(s.Result).To(Equal(uint64(0x42)))
		})

		It("should hold the result between edges", func() {
			step(false, 0x21, clock.EdgeRising)
			Expect(step(false, 0x30, clock.EdgeNone).Result).To(Equal(uint64(0x42)))
			Expect(step(false, 0x30, clock.EdgeFalling).Result).To(Equal(uint64(0x42)))
		})

		It("should truncate the doubled value to the data width", func() {
			s := step(false, 0x80, clock.EdgeRising)
			Expect(s.Result).To(Equal(uint64(0x00)))
		})
	})

	Describe("latched-plus-delay variant", func() {
		It("should latch the register value on the rising edge", func() {
			newUnit(stage.VariantLatchedDelay, 0, delay.FixedSource(1))
			s := step(false, 0x05, clock.EdgeRising)
			Expect(s.Latch).To(Equal(uint64(0x05)))
		})

		It("should snapshot the pre-edge latch, not the value captured this tick", func() {
			newUnit(stage.VariantLatchedDelay, 0, delay.FixedSource(1))

			// Rising edge writes 5 into the latch, but the computation
			// starting this tick reads the latch's previous value (0).
			step(false, 0x05, clock.EdgeRising)
			s := step(false, 0x05, clock.EdgeNone)
			Expect(s.Committed).To(BeTrue())
			Expect(s.Result).To(Equal(uint64(0x00)))

			// The next computation sees the updated latch.
			step(false, 0x05, clock.EdgeNone)
			s = step(false, 0x05, clock.EdgeNone)
			Expect(s.Result).To(Equal(uint64(0x0A)))
		})

		It("should commit within the starting tick on a zero-delay draw", func() {
			newUnit(stage.VariantLatchedDelay, 0, delay.FixedSource(0))
			step(false, 0x07, clock.EdgeRising)
			s := step(false, 0x07, clock.EdgeNone)
			Expect(s.Committed).To(BeTrue())
			Expect(s.Result).To(Equal(uint64(0x0E)))
		})

		It("should honor a min delay of 1", func() {
			newUnit(stage.VariantLatchedDelay, 1, delay.FixedSource(0))
			s := step(false, 0x07, clock.EdgeNone)
			Expect(s.Computing).To(BeTrue())
			Expect(s.Chosen).To(Equal(1))
		})
	})

	Describe("fast-domain-delay variant", func() {
		It("should snapshot the register value directly at computation start", func() {
			newUnit(stage.VariantFastDomainDelay, 0, delay.FixedSource(1))

			s := step(false, 0x07, clock.EdgeNone)
			Expect(s.Computing).To(BeTrue())
			Expect(s.Snapshot).To(Equal(uint64(0x07)))

			// The register changing mid-computation does not affect the
			// committed result.
			s = step(false, 0x50, clock.EdgeNone)
			Expect(s.Committed).To(BeTrue())
			Expect(s.Result).To(Equal(uint64(0x0E)))
		})

		It("should keep no latch state", func() {
			newUnit(stage.VariantFastDomainDelay, 0, delay.FixedSource(1))
			step(false, 0x07, clock.EdgeRising)
			Expect(u.LatchValue()).To(Equal(uint64(0)))
		})

		It("should truncate the doubled value to the data width", func() {
			newUnit(stage.VariantFastDomainDelay, 0, delay.FixedSource(0))
			s := step(false, 0xC0, clock.EdgeNone)
			Expect(s.Result).To(Equal(uint64(0x80)))
		})
	})

	Describe("reset", func() {
		It("should clear all state on the reset tick", func() {
			newUnit(stage.VariantLatchedDelay, 0, delay.FixedSource(2))
			step(false, 0x11, clock.EdgeRising)
			step(false, 0x11, clock.EdgeNone)

			s := step(true, 0x11, clock.EdgeNone)
			Expect(s).To(Equal(stage.Stage2State{}))
			Expect(u.Result()).To(Equal(uint64(0)))
			Expect(u.LatchValue()).To(Equal(uint64(0)))
			Expect(u.Computing()).To(BeFalse())
		})
	})
})
