package gas

import (
	"fmt"
	"math"
)

// Leg is a stage of a Carnot cycle.
type Leg int

const (
	ExpandIsothermal Leg = iota
	ExpandAdiabatic
	CompressIsothermal
	CompressAdiabatic
	Closed
)

var legNames = [...]string{"expand_isothermal", "expand_adiabatic", "compress_isothermal", "compress_adiabatic", "closed"}

func (l Leg) String() string {
	if l < 0 || int(l) >= len(legNames) {
		return fmt.Sprintf("leg(%d)", int(l))
	}
	return legNames[l]
}

// Process returns the phase operation allowed during the leg.
func (l Leg) Process() Process {
	switch l {
	case ExpandIsothermal, CompressIsothermal:
		return CarnotIsothermal
	case ExpandAdiabatic, CompressAdiabatic:
		return CarnotIsentropic
	}
	return NoOp
}

// Expanding reports whether volume must grow during the leg.
func (l Leg) Expanding() bool { return l == ExpandIsothermal || l == ExpandAdiabatic }

// Closure compares the state after the last leg with the cycle start.
type Closure struct {
	Start, End  Thermo
	VolumeRes   float64
	TempRes     float64
	PressureRes float64
}

// Within reports whether every relative residual is at most tol.
func (c Closure) Within(tol float64) bool {
	return c.VolumeRes <= tol && c.TempRes <= tol && c.PressureRes <= tol
}

func relDiff(a, b float64) float64 { return math.Abs(a-b) / math.Abs(b) }

// Carnot drives a System through the four legs of a Carnot cycle. The two
// phase operations are only accepted during a matching leg and with a
// rate of the leg's sign; sequencing the legs is left to the caller via
// Advance.
type Carnot struct {
	sys      *System
	leg      Leg
	start    Thermo
	legSteps int
	closure  Closure
}

func NewCarnot(sys *System) *Carnot {
	return &Carnot{sys: sys, leg: ExpandIsothermal, start: sys.Thermo()}
}

func (c *Carnot) System() *System { return c.sys }
func (c *Carnot) Leg() Leg        { return c.leg }

// LegSteps returns the number of phase updates applied in the current leg.
func (c *Carnot) LegSteps() int { return c.legSteps }

// UpdateIsothermal applies one constant-temperature volume increment.
func (c *Carnot) UpdateIsothermal(rate float64) error {
	return c.phase(CarnotIsothermal, rate)
}

// UpdateIsentropic applies one adiabatic volume increment.
func (c *Carnot) UpdateIsentropic(rate float64) error {
	return c.phase(CarnotIsentropic, rate)
}

func (c *Carnot) phase(p Process, rate float64) error {
	if c.leg == Closed {
		return fmt.Errorf("%w: cycle closed, reset first", ErrCycleOrder)
	}
	if want := c.leg.Process(); want != p {
		return fmt.Errorf("%w: %s during %s (want %s)", ErrCycleOrder, p, c.leg, want)
	}
	if c.leg.Expanding() && rate < 0 || !c.leg.Expanding() && rate > 0 {
		return fmt.Errorf("%w: rate %g has wrong sign for %s", ErrCycleOrder, rate, c.leg)
	}
	if err := c.sys.Update(p, rate); err != nil {
		return err
	}
	c.legSteps++
	return nil
}

// Advance moves to the next leg. Leaving the last leg closes the cycle and
// computes the closure residuals.
func (c *Carnot) Advance() error {
	if c.leg == Closed {
		return fmt.Errorf("%w: cycle already closed", ErrCycleOrder)
	}
	c.leg++
	c.legSteps = 0
	if c.leg == Closed {
		end := c.sys.Thermo()
		c.closure = Closure{
			Start:       c.start,
			End:         end,
			VolumeRes:   relDiff(end.Volume, c.start.Volume),
			TempRes:     relDiff(end.Temperature, c.start.Temperature),
			PressureRes: relDiff(end.Pressure, c.start.Pressure),
		}
	}
	return nil
}

// Closure returns the residuals of the last closed cycle; ok is false
// until the cycle is closed.
func (c *Carnot) Closure() (Closure, bool) {
	return c.closure, c.leg == Closed
}

// Reset starts a new cycle from the current state.
func (c *Carnot) Reset() {
	c.leg = ExpandIsothermal
	c.legSteps = 0
	c.start = c.sys.Thermo()
	c.closure = Closure{}
}
