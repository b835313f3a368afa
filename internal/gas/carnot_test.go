package gas_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gassim/internal/gas"
)

var _ = Describe("Carnot", func() {
	var (
		sys *gas.System
		c   *gas.Carnot
	)

	BeforeEach(func() {
		var err error
		sys, err = gas.New(gas.DefaultConfig(), gas.WithRand(rand.New(rand.NewSource(11))))
		Expect(err).NotTo(HaveOccurred())
		c = gas.NewCarnot(sys)
	})

	It("starts on the isothermal expansion leg", func() {
		Expect(c.Leg()).To(Equal(gas.ExpandIsothermal))
		_, closed := c.Closure()
		Expect(closed).To(BeFalse())
	})

	It("rejects a phase that does not match the leg", func() {
		err := c.UpdateIsentropic(10)
		Expect(err).To(MatchError(gas.ErrCycleOrder))
		Expect(sys.Steps()).To(BeZero())
	})

	It("rejects a rate with the wrong sign", func() {
		Expect(c.UpdateIsothermal(-10)).To(MatchError(gas.ErrCycleOrder))

		Expect(c.Advance()).To(Succeed())
		Expect(c.Advance()).To(Succeed())
		Expect(c.Leg()).To(Equal(gas.CompressIsothermal))
		Expect(c.UpdateIsothermal(10)).To(MatchError(gas.ErrCycleOrder))
	})

	It("holds temperature during the isothermal leg", func() {
		t0 := sys.Temperature()
		for i := 0; i < 10; i++ {
			Expect(c.UpdateIsothermal(100)).To(Succeed())
		}
		Expect(sys.Temperature()).To(Equal(t0))
		Expect(sys.Volume()).To(BeNumerically("~", 9000, 1e-9))
		Expect(c.LegSteps()).To(Equal(10))
	})

	It("closes when the compression volume matches the adiabatic ratio", func() {
		v1 := sys.Volume()
		v2 := 2 * v1
		v3 := 1.5 * v2
		v4 := v1 * v3 / v2
		steps := 40.0

		legs := []struct {
			update func(float64) error
			from   float64
			to     float64
		}{
			{c.UpdateIsothermal, v1, v2},
			{c.UpdateIsentropic, v2, v3},
			{c.UpdateIsothermal, v3, v4},
			{c.UpdateIsentropic, v4, v1},
		}
		for _, leg := range legs {
			rate := (leg.to - leg.from) / steps
			for i := 0; i < int(steps); i++ {
				Expect(leg.update(rate)).To(Succeed())
			}
			Expect(c.Advance()).To(Succeed())
		}

		Expect(c.Leg()).To(Equal(gas.Closed))
		closure, ok := c.Closure()
		Expect(ok).To(BeTrue())
		Expect(closure.Within(1e-9)).To(BeTrue(), "residuals %+v", closure)
		Expect(sys.Thermo().Residual()).To(BeNumerically("<", 1e-9))
	})

	It("closes trivially without updates and then rejects phase calls", func() {
		for i := 0; i < 4; i++ {
			Expect(c.Advance()).To(Succeed())
		}
		Expect(c.Leg()).To(Equal(gas.Closed))
		closure, ok := c.Closure()
		Expect(ok).To(BeTrue())
		Expect(closure.Within(0)).To(BeTrue())

		Expect(c.UpdateIsothermal(1)).To(MatchError(gas.ErrCycleOrder))
		Expect(c.Advance()).To(MatchError(gas.ErrCycleOrder))
	})

	It("starts over after Reset", func() {
		Expect(c.UpdateIsothermal(500)).To(Succeed())
		for i := 0; i < 4; i++ {
			Expect(c.Advance()).To(Succeed())
		}
		closure, _ := c.Closure()
		Expect(closure.VolumeRes).To(BeNumerically(">", 0))

		c.Reset()
		Expect(c.Leg()).To(Equal(gas.ExpandIsothermal))
		Expect(c.UpdateIsothermal(1)).To(Succeed())
	})

	It("propagates physical limits from the engine", func() {
		Expect(c.Advance()).To(Succeed())
		Expect(c.Advance()).To(Succeed())
		err := c.UpdateIsothermal(-8000)
		Expect(err).To(MatchError(gas.ErrPhysicalLimit))
		Expect(c.LegSteps()).To(BeZero())
	})
})
