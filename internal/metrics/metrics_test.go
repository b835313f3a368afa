package metrics

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/gassim/internal/gas"
	"github.com/san-kum/gassim/internal/sim"
)

func record(n int, t, v float64) gas.Record {
	return gas.Record{Thermo: gas.Thermo{
		Temperature: t,
		Pressure:    float64(n) * t / v,
		Energy:      1.5 * t,
		Volume:      v,
		N:           n,
	}}
}

func TestWorkTrapezoid(t *testing.T) {
	w := NewWork()
	w.Observe(record(1, 1, 1))
	w.Observe(record(1, 1, 2))

	// P goes 1 -> 0.5 over dV = 1
	if got := w.Value(); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("work = %v, want 0.75", got)
	}

	w.Reset()
	if w.Value() != 0 {
		t.Error("expected zero work after reset")
	}
	w.Observe(record(1, 1, 2))
	if w.Value() != 0 {
		t.Error("a single record must not produce work")
	}
}

func TestHeatInSkipsRejectedHeat(t *testing.T) {
	h := NewHeatIn()
	h.Observe(record(10, 2, 100))
	h.Observe(record(10, 2, 120))
	absorbed := h.Value()
	if absorbed <= 0 {
		t.Fatalf("isothermal expansion should absorb heat, got %v", absorbed)
	}

	h.Observe(record(10, 2, 100))
	if h.Value() != absorbed {
		t.Errorf("compression changed heat in: %v -> %v", absorbed, h.Value())
	}
}

func TestEfficiencyWithoutHeat(t *testing.T) {
	e := NewEfficiency()
	e.Observe(record(10, 2, 100))
	e.Observe(record(10, 1, 100))
	if e.Value() != 0 {
		t.Errorf("efficiency = %v, want 0", e.Value())
	}
}

func TestIdealGasResidual(t *testing.T) {
	m := NewIdealGasResidual()
	m.Observe(record(10, 2, 100))
	if m.Value() > 1e-15 {
		t.Errorf("consistent state has residual %v", m.Value())
	}

	bad := record(10, 2, 100)
	bad.Pressure *= 1.1
	m.Observe(bad)
	if m.Value() < 0.05 {
		t.Errorf("residual %v not reported", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestContainment(t *testing.T) {
	box := gas.Box{HalfX: 1, HalfY: 1, HalfZ: 1}
	c := NewContainment()

	c.ObservePositions(box, []gas.Vec3{{X: 0.5}, {Y: -0.8}})
	if c.Value() != 1 {
		t.Errorf("containment = %v, want 1", c.Value())
	}

	c.ObservePositions(box, []gas.Vec3{{X: 0.5}, {Z: 0.95}})
	if c.Value() != 0.5 {
		t.Errorf("containment = %v, want 0.5", c.Value())
	}

	c.Reset()
	if c.Value() != 1 {
		t.Error("expected 1 after reset")
	}
}

func TestFinal(t *testing.T) {
	f, err := NewFinal("volume")
	if err != nil {
		t.Fatal(err)
	}
	f.Observe(record(1, 1, 3))
	f.Observe(record(1, 1, 7))
	if f.Value() != 7 || f.Name() != "final_volume" {
		t.Errorf("got %s=%v", f.Name(), f.Value())
	}

	if _, err := NewFinal("entropy"); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestCarnotEfficiency(t *testing.T) {
	sys, err := gas.New(gas.DefaultConfig(), gas.WithRand(rand.New(rand.NewSource(3))))
	if err != nil {
		t.Fatal(err)
	}
	sched, err := sim.CarnotSchedule(sys.Volume(), 2, 1.5, 200)
	if err != nil {
		t.Fatal(err)
	}

	s := sim.New(sys)
	eff := NewEfficiency()
	cont := NewContainment()
	resid := NewIdealGasResidual()
	s.AddMetric(eff)
	s.AddMetric(cont)
	s.AddMetric(resid)

	result, err := s.Run(context.Background(), sched)
	if err != nil {
		t.Fatal(err)
	}

	want := 1 - math.Pow(1/1.5, 0.66)
	if got := result.Metrics["efficiency"]; math.Abs(got-want) > 0.01 {
		t.Errorf("efficiency = %v, want about %v", got, want)
	}
	if result.Metrics["containment"] != 1 {
		t.Errorf("containment = %v", result.Metrics["containment"])
	}
	if result.Metrics["ideal_gas_residual"] > 1e-9 {
		t.Errorf("residual = %v", result.Metrics["ideal_gas_residual"])
	}
}
