package sim_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gassim/internal/gas"
	"github.com/san-kum/gassim/internal/sim"
)

var _ = Describe("Driver", func() {
	var sys *gas.System

	BeforeEach(func() {
		var err error
		sys, err = gas.New(gas.DefaultConfig(), gas.WithRand(rand.New(rand.NewSource(5))))
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects an empty schedule", func() {
		_, err := sim.NewDriver(sys, nil)
		Expect(err).To(HaveOccurred())
	})

	Context("with a carnot cycle", func() {
		var d *sim.Driver

		BeforeEach(func() {
			sched, err := sim.CarnotSchedule(sys.Volume(), 2, 1.5, 20)
			Expect(err).NotTo(HaveOccurred())
			d, err = sim.NewDriver(sys, sched)
			Expect(err).NotTo(HaveOccurred())
		})

		It("walks the four legs in order", func() {
			var legs []int
			for !d.Done() {
				i, _ := d.Leg()
				if len(legs) == 0 || legs[len(legs)-1] != i {
					legs = append(legs, i)
				}
				_, err := d.Next()
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(legs).To(Equal([]int{0, 1, 2, 3}))
			Expect(d.Progress()).To(BeNumerically("==", 1))
		})

		It("records one closure that returns to the start", func() {
			v1, t1 := sys.Volume(), sys.Temperature()
			for !d.Done() {
				_, err := d.Next()
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(d.Closures()).To(HaveLen(1))
			Expect(d.Closures()[0].Within(1e-9)).To(BeTrue())
			Expect(sys.Volume()).To(BeNumerically("~", v1, 1e-6))
			Expect(sys.Temperature()).To(BeNumerically("~", t1, 1e-8))
		})

		It("raises the temperature on adiabatic compression only", func() {
			for i := 0; i < 40; i++ {
				_, err := d.Next()
				Expect(err).NotTo(HaveOccurred())
			}
			cold := sys.Temperature()
			Expect(cold).To(BeNumerically("<", gas.DefaultTemperature))

			for !d.Done() {
				_, err := d.Next()
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(sys.Temperature()).To(BeNumerically(">", cold))
		})
	})

	It("stops for good after a physical limit", func() {
		d, err := sim.NewDriver(sys, sim.Constant(gas.Isothermal, -1000, 20))
		Expect(err).NotTo(HaveOccurred())

		for {
			if _, err = d.Next(); err != nil {
				break
			}
		}
		Expect(err).To(MatchError(gas.ErrPhysicalLimit))

		_, err = d.Next()
		Expect(err).To(MatchError(gas.ErrHalted))
	})
})
