package gas

import (
	"fmt"
	"math"
	"strings"
)

// Adiabatic exponents for a monatomic ideal gas (gamma ~ 5/3).
const (
	adiabaticTempExponent     = 0.66
	adiabaticPressureExponent = 1.66
)

// Thermo is the thermodynamic state of a system: the coupled scalars plus
// the box they describe. N is the (immutable) particle count.
type Thermo struct {
	Temperature float64
	Pressure    float64
	Energy      float64
	Volume      float64
	Box         Box
	N           int
}

func newThermo(box Box, n int, temperature float64) Thermo {
	v := box.Volume()
	return Thermo{
		Temperature: temperature,
		Pressure:    float64(n) * temperature / v,
		Energy:      1.5 * temperature,
		Volume:      v,
		Box:         box,
		N:           n,
	}
}

// IdealPressure returns n*T/V.
func (t Thermo) IdealPressure() float64 {
	return float64(t.N) * t.Temperature / t.Volume
}

// Residual returns the largest relative violation of P = nT/V and
// E = 3/2 T.
func (t Thermo) Residual() float64 {
	rp := math.Abs(t.Pressure-t.IdealPressure()) / math.Abs(t.Pressure)
	re := math.Abs(t.Energy-1.5*t.Temperature) / math.Abs(t.Energy)
	return math.Max(rp, re)
}

// IsValid reports whether all scalars are finite and positive.
func (t Thermo) IsValid() bool {
	for _, v := range []float64{t.Temperature, t.Pressure, t.Energy, t.Volume, t.Box.HalfY} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	return true
}

// Process selects the thermodynamic law applied by an update.
type Process int

const (
	NoOp Process = iota
	Isochoric
	Isothermal
	Isentropic
	CarnotIsothermal
	CarnotIsentropic
)

var processNames = [...]string{
	NoOp:             "noop",
	Isochoric:        "isochoric",
	Isothermal:       "isothermal",
	Isentropic:       "isentropic",
	CarnotIsothermal: "carnot_isothermal",
	CarnotIsentropic: "carnot_isentropic",
}

func (p Process) String() string {
	if p < 0 || int(p) >= len(processNames) {
		return fmt.Sprintf("process(%d)", int(p))
	}
	return processNames[p]
}

// ParseProcess maps a name (case-insensitive, '-' or '_') to a Process.
func ParseProcess(name string) (Process, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for i, n := range processNames {
		if n == key {
			return Process(i), nil
		}
	}
	return NoOp, fmt.Errorf("unknown process: %s", name)
}

// Processes lists every variant in declaration order.
func Processes() []Process {
	ps := make([]Process, len(processNames))
	for i := range ps {
		ps[i] = Process(i)
	}
	return ps
}

// Rescales reports whether the process changes the energy and therefore
// the particle speeds.
func (p Process) Rescales() bool {
	switch p {
	case Isochoric, Isentropic, CarnotIsentropic:
		return true
	}
	return false
}

// ChangesVolume reports whether rate is a volume increment.
func (p Process) ChangesVolume() bool {
	switch p {
	case Isothermal, Isentropic, CarnotIsothermal, CarnotIsentropic:
		return true
	}
	return false
}

// Apply returns the state after one update with the given rate. It is pure:
// on error th is returned unchanged alongside the cause.
func (p Process) Apply(th Thermo, rate float64) (Thermo, error) {
	next := th
	switch p {
	case NoOp:
		return th, nil

	case Isochoric:
		e := th.Energy + rate
		if !(e > 0) {
			return th, fmt.Errorf("%w: energy %g", ErrPhysicalLimit, e)
		}
		next.Energy = e
		next.Temperature = 2.0 / 3.0 * e
		next.Pressure = next.IdealPressure()

	case Isothermal, CarnotIsothermal:
		v, box, err := resize(th, rate)
		if err != nil {
			return th, err
		}
		next.Volume, next.Box = v, box
		next.Pressure = next.IdealPressure()

	case Isentropic, CarnotIsentropic:
		v, box, err := resize(th, rate)
		if err != nil {
			return th, err
		}
		ratio := th.Volume / v
		next.Volume, next.Box = v, box
		next.Temperature = th.Temperature * math.Pow(ratio, adiabaticTempExponent)
		next.Energy = 1.5 * next.Temperature
		next.Pressure = th.Pressure * math.Pow(ratio, adiabaticPressureExponent)

	default:
		return th, fmt.Errorf("%w: unknown process %d", ErrInvalidState, int(p))
	}

	if !next.IsValid() {
		return th, fmt.Errorf("%w: non-finite state after %s", ErrInvalidState, p)
	}
	return next, nil
}

// resize applies a volume increment, holding the x and z extents.
func resize(th Thermo, rate float64) (float64, Box, error) {
	v := th.Volume + rate
	if !(v > 0) {
		return 0, Box{}, fmt.Errorf("%w: volume %g", ErrPhysicalLimit, v)
	}
	box := th.Box.WithVolume(v)
	if !(box.HalfY > ParticleRadius) {
		return 0, Box{}, fmt.Errorf("%w: half_y %g below particle radius", ErrPhysicalLimit, box.HalfY)
	}
	return v, box, nil
}
