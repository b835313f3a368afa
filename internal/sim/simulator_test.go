package sim

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/gassim/internal/gas"
)

func newSystem(t *testing.T, seed int64) *gas.System {
	t.Helper()
	sys, err := gas.New(gas.DefaultConfig(), gas.WithRand(rand.New(rand.NewSource(seed))))
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	return sys
}

type countMetric struct {
	count int
	last  float64
	boxes int
}

func (c *countMetric) Name() string { return "count" }
func (c *countMetric) Observe(r gas.Record) {
	c.count++
	c.last = r.Volume
}
func (c *countMetric) Value() float64 { return float64(c.count) }
func (c *countMetric) Reset()         { *c = countMetric{} }
func (c *countMetric) ObservePositions(box gas.Box, pos []gas.Vec3) {
	c.boxes++
}

func TestSimulatorRun(t *testing.T) {
	sim := New(newSystem(t, 1))
	m := &countMetric{}
	sim.AddMetric(m)

	result, err := sim.Run(context.Background(), Constant(gas.Isentropic, 10, 100))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.StepsTaken != 100 {
		t.Errorf("expected 100 steps, got %d", result.StepsTaken)
	}
	if len(result.Records) != 101 {
		t.Errorf("expected 101 records, got %d", len(result.Records))
	}
	if result.Records[0].Step != 0 || result.Records[100].Step != 100 {
		t.Errorf("record steps out of order: %d..%d", result.Records[0].Step, result.Records[100].Step)
	}
	if math.Abs(result.Final.Volume-9000) > 1e-9 {
		t.Errorf("final volume = %v, want 9000", result.Final.Volume)
	}
	if result.Metrics["count"] != 101 || m.boxes != 101 {
		t.Errorf("metric saw %v records and %d position sets", result.Metrics["count"], m.boxes)
	}
}

func TestSimulatorInvalidSchedule(t *testing.T) {
	sim := New(newSystem(t, 1))

	tests := []struct {
		name  string
		sched Schedule
	}{
		{"empty", Schedule{}},
		{"zero steps", Constant(gas.Isochoric, 1, 0)},
		{"negative steps", Constant(gas.Isochoric, 1, -3)},
		{"stray carnot phase", Constant(gas.CarnotIsothermal, 1, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sim.Run(context.Background(), tt.sched); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSimulatorPhysicalLimit(t *testing.T) {
	sim := New(newSystem(t, 1))

	result, err := sim.Run(context.Background(), Constant(gas.Isothermal, -1000, 20))
	if !errors.Is(err, gas.ErrPhysicalLimit) {
		t.Fatalf("expected ErrPhysicalLimit, got %v", err)
	}
	if result == nil || result.StepsTaken != 7 {
		t.Fatalf("expected partial result with 7 steps, got %+v", result)
	}
	if result.Final.Volume != 1000 {
		t.Errorf("final volume = %v, want 1000", result.Final.Volume)
	}
}

func TestSimulatorCanceled(t *testing.T) {
	sim := New(newSystem(t, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := sim.Run(ctx, Constant(gas.NoOp, 0, 10))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.StepsTaken != 0 {
		t.Errorf("expected no steps, got %d", result.StepsTaken)
	}
}

func TestCarnotScheduleCloses(t *testing.T) {
	sys := newSystem(t, 2)
	sched, err := CarnotSchedule(sys.Volume(), 2, 1.5, 50)
	if err != nil {
		t.Fatal(err)
	}
	if !sched.IsCycle() {
		t.Fatal("carnot schedule not recognised as a cycle")
	}

	result, err := New(sys).Run(context.Background(), sched.Repeat(2))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Closures) != 2 {
		t.Fatalf("expected 2 closures, got %d", len(result.Closures))
	}
	for i, c := range result.Closures {
		if !c.Within(1e-9) {
			t.Errorf("cycle %d did not close: %+v", i, c)
		}
	}
}

func TestCarnotScheduleErrors(t *testing.T) {
	tests := []struct {
		name       string
		v1, iso, a float64
		steps      int
	}{
		{"zero volume", 0, 2, 2, 10},
		{"iso ratio 1", 8000, 1, 2, 10},
		{"adiabatic ratio below 1", 8000, 2, 0.5, 10},
		{"zero steps", 8000, 2, 2, 0},
	}
	for _, tt := range tests {
		if _, err := CarnotSchedule(tt.v1, tt.iso, tt.a, tt.steps); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestDriverProgress(t *testing.T) {
	d, err := NewDriver(newSystem(t, 1), Schedule{
		{Process: gas.Isochoric, Rate: 1, Steps: 2},
		{Process: gas.Isothermal, Rate: 5, Steps: 2},
	})
	if err != nil {
		t.Fatal(err)
	}

	var procs []gas.Process
	for !d.Done() {
		rec, err := d.Next()
		if err != nil {
			t.Fatal(err)
		}
		procs = append(procs, rec.Process)
	}
	want := []gas.Process{gas.Isochoric, gas.Isochoric, gas.Isothermal, gas.Isothermal}
	for i := range want {
		if procs[i] != want[i] {
			t.Errorf("step %d: %v, want %v", i, procs[i], want[i])
		}
	}
	if d.Progress() != 1 {
		t.Errorf("progress = %v, want 1", d.Progress())
	}
	if _, err := d.Next(); !errors.Is(err, ErrDone) {
		t.Errorf("expected ErrDone, got %v", err)
	}
}

func TestEnsembleDeterministicPerSeed(t *testing.T) {
	factory := func(seed int64) (*Simulator, error) {
		sys, err := gas.New(gas.DefaultConfig(), gas.WithRand(rand.New(rand.NewSource(seed))))
		if err != nil {
			return nil, err
		}
		return New(sys), nil
	}

	results, err := NewEnsemble(factory, 4, 100).Run(context.Background(), Constant(gas.Isentropic, -5, 30))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Final != results[0].Final {
			t.Errorf("run %d: scalar state depends on seed: %+v", i, r.Final)
		}
	}
}
