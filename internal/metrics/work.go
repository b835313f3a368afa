package metrics

import (
	"github.com/san-kum/gassim/internal/gas"
)

// Work accumulates the boundary work done by the gas, integrating P dV
// with the trapezoid rule between consecutive records.
type Work struct {
	name    string
	prev    gas.Thermo
	samples int
	total   float64
}

func NewWork() *Work {
	return &Work{name: "work"}
}

func (w *Work) Name() string { return w.name }

func (w *Work) Observe(r gas.Record) {
	if w.samples > 0 {
		w.total += trapezoid(w.prev, r.Thermo)
	}
	w.prev = r.Thermo
	w.samples++
}

func (w *Work) Value() float64 { return w.total }

func (w *Work) Reset() {
	w.prev = gas.Thermo{}
	w.samples = 0
	w.total = 0
}

// HeatIn sums the heat absorbed on every step where it is positive. Heat
// per step is the change of internal energy N*E plus the boundary work.
type HeatIn struct {
	name    string
	prev    gas.Thermo
	samples int
	total   float64
}

func NewHeatIn() *HeatIn {
	return &HeatIn{name: "heat_in"}
}

func (h *HeatIn) Name() string { return h.name }

func (h *HeatIn) Observe(r gas.Record) {
	if h.samples > 0 {
		if dq := heat(h.prev, r.Thermo); dq > 0 {
			h.total += dq
		}
	}
	h.prev = r.Thermo
	h.samples++
}

func (h *HeatIn) Value() float64 { return h.total }

func (h *HeatIn) Reset() {
	h.prev = gas.Thermo{}
	h.samples = 0
	h.total = 0
}

// Efficiency is Work/HeatIn over the run, 0 when no heat was absorbed.
type Efficiency struct {
	name string
	work *Work
	heat *HeatIn
}

func NewEfficiency() *Efficiency {
	return &Efficiency{name: "efficiency", work: NewWork(), heat: NewHeatIn()}
}

func (e *Efficiency) Name() string { return e.name }

func (e *Efficiency) Observe(r gas.Record) {
	e.work.Observe(r)
	e.heat.Observe(r)
}

func (e *Efficiency) Value() float64 {
	q := e.heat.Value()
	if q <= 0 {
		return 0
	}
	return e.work.Value() / q
}

func (e *Efficiency) Reset() {
	e.work.Reset()
	e.heat.Reset()
}

func trapezoid(a, b gas.Thermo) float64 {
	return 0.5 * (a.Pressure + b.Pressure) * (b.Volume - a.Volume)
}

func internalEnergy(t gas.Thermo) float64 {
	return float64(t.N) * t.Energy
}

func heat(a, b gas.Thermo) float64 {
	return internalEnergy(b) - internalEnergy(a) + trapezoid(a, b)
}
