package metrics

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/gassim/internal/gas"
)

// IdealGasResidual tracks the largest relative deviation from P = nT/V and
// E = 3/2 T seen over a run.
type IdealGasResidual struct {
	name     string
	maxResid float64
}

func NewIdealGasResidual() *IdealGasResidual {
	return &IdealGasResidual{name: "ideal_gas_residual"}
}

func (m *IdealGasResidual) Name() string { return m.name }

func (m *IdealGasResidual) Observe(r gas.Record) {
	m.maxResid = math.Max(m.maxResid, r.Residual())
}

func (m *IdealGasResidual) Value() float64 { return m.maxResid }
func (m *IdealGasResidual) Reset()         { m.maxResid = 0 }

// Containment is the smallest fraction of particles found inside the
// inner bounds of the box over all observed frames. A correct engine keeps
// it at 1.
type Containment struct {
	name    string
	minFrac float64
	frames  int
}

func NewContainment() *Containment {
	return &Containment{name: "containment", minFrac: 1}
}

func (c *Containment) Name() string { return c.name }

// Observe is a no-op; containment only looks at positions.
func (c *Containment) Observe(r gas.Record) {}

func (c *Containment) ObservePositions(box gas.Box, positions []gas.Vec3) {
	if len(positions) == 0 {
		return
	}
	inside := 0
	for _, p := range positions {
		if box.Contains(p) {
			inside++
		}
	}
	c.minFrac = math.Min(c.minFrac, float64(inside)/float64(len(positions)))
	c.frames++
}

func (c *Containment) Value() float64 { return c.minFrac }

func (c *Containment) Reset() {
	c.minFrac = 1
	c.frames = 0
}

// Final records the last value of a scalar, selected by field name.
type Final struct {
	name  string
	pick  func(gas.Thermo) float64
	value float64
}

func NewFinal(field string) (*Final, error) {
	pick, ok := fields[field]
	if !ok {
		return nil, fmt.Errorf("metrics: unknown field %q", field)
	}
	return &Final{name: "final_" + field, pick: pick}, nil
}

var fields = map[string]func(gas.Thermo) float64{
	"temperature": func(t gas.Thermo) float64 { return t.Temperature },
	"pressure":    func(t gas.Thermo) float64 { return t.Pressure },
	"energy":      func(t gas.Thermo) float64 { return t.Energy },
	"volume":      func(t gas.Thermo) float64 { return t.Volume },
}

// FinalFields lists the field names NewFinal accepts, sorted.
func FinalFields() []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *Final) Name() string         { return f.name }
func (f *Final) Observe(r gas.Record) { f.value = f.pick(r.Thermo) }
func (f *Final) Value() float64       { return f.value }
func (f *Final) Reset()               { f.value = 0 }
