package sim

import (
	"fmt"

	"github.com/san-kum/gassim/internal/gas"
)

// Constant returns a single-leg schedule.
func Constant(p gas.Process, rate float64, steps int) Schedule {
	return Schedule{{Process: p, Rate: rate, Steps: steps}}
}

// CarnotSchedule builds one closing Carnot cycle starting at volume v1:
// isothermal expansion by isoRatio, adiabatic expansion by adRatio, then
// isothermal compression to v1*adRatio and adiabatic compression back to
// v1. Each leg is split into stepsPerLeg equal volume increments.
func CarnotSchedule(v1, isoRatio, adRatio float64, stepsPerLeg int) (Schedule, error) {
	if !(v1 > 0) {
		return nil, fmt.Errorf("carnot: start volume must be positive, got %g", v1)
	}
	if !(isoRatio > 1) || !(adRatio > 1) {
		return nil, fmt.Errorf("carnot: expansion ratios must exceed 1, got %g and %g", isoRatio, adRatio)
	}
	if stepsPerLeg <= 0 {
		return nil, fmt.Errorf("carnot: steps per leg must be positive, got %d", stepsPerLeg)
	}

	v2 := v1 * isoRatio
	v3 := v2 * adRatio
	v4 := v1 * v3 / v2

	n := float64(stepsPerLeg)
	return Schedule{
		{Process: gas.CarnotIsothermal, Rate: (v2 - v1) / n, Steps: stepsPerLeg},
		{Process: gas.CarnotIsentropic, Rate: (v3 - v2) / n, Steps: stepsPerLeg},
		{Process: gas.CarnotIsothermal, Rate: (v4 - v3) / n, Steps: stepsPerLeg},
		{Process: gas.CarnotIsentropic, Rate: (v1 - v4) / n, Steps: stepsPerLeg},
	}, nil
}

// Repeat concatenates n copies of s.
func (s Schedule) Repeat(n int) Schedule {
	out := make(Schedule, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return out
}
