package experiment

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/gassim/internal/config"
	"github.com/san-kum/gassim/internal/gas"
)

func TestRegistryProcesses(t *testing.T) {
	r := NewRegistry()
	want := []string{"carnot", "isentropic", "isochoric", "isothermal", "noop"}
	got := r.ListProcesses()
	if len(got) != len(want) {
		t.Fatalf("processes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("processes[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	for _, name := range r.ListMetrics() {
		m, err := r.GetMetric(name)
		if err != nil || m.Name() != name {
			t.Errorf("metric %s: got %v, %v", name, m, err)
		}
	}
	if _, err := r.GetMetric("entropy"); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestRegistryCoversRunProcesses(t *testing.T) {
	r := NewRegistry()
	for _, name := range config.RunProcesses {
		cfg := config.DefaultConfig()
		cfg.Run.Process = name
		if _, err := r.GetSchedule(cfg, 8000); err != nil {
			t.Errorf("schedule %s: %v", name, err)
		}
	}
}

func TestRegistryFinalMetrics(t *testing.T) {
	r := NewRegistry()
	m, err := r.GetMetric("final_volume")
	if err != nil {
		t.Fatal(err)
	}
	m.Observe(gas.Record{Thermo: gas.Thermo{Volume: 125}})
	m.Observe(gas.Record{Thermo: gas.Thermo{Volume: 250}})
	if m.Value() != 250 {
		t.Errorf("final_volume = %v, want 250", m.Value())
	}
	if _, err := r.GetMetric("final_entropy"); err == nil {
		t.Error("expected error for unknown final field")
	}
}

func TestRegistryCarnotSchedule(t *testing.T) {
	cfg := config.GetPreset("carnot", "repeat")
	sched, err := NewRegistry().GetSchedule(cfg, 8000)
	if err != nil {
		t.Fatal(err)
	}
	if len(sched) != 4*cfg.Carnot.Cycles || !sched.IsCycle() {
		t.Errorf("unexpected schedule: %+v", sched)
	}
}

func TestExperimentRun(t *testing.T) {
	tests := []struct {
		process string
		preset  string
	}{
		{"isochoric", "heat"},
		{"isothermal", "expand"},
		{"isentropic", "expand"},
		{"carnot", "standard"},
		{"noop", "idle"},
	}

	r := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.process, func(t *testing.T) {
			cfg := config.GetPreset(tt.process, tt.preset)
			cfg.Gas.Particles = 30

			exp := New(cfg, r)
			if err := exp.Setup(r.DefaultMetrics(tt.process)); err != nil {
				t.Fatalf("setup: %v", err)
			}
			result, err := exp.Run(context.Background())
			if err != nil {
				t.Fatalf("run: %v", err)
			}

			steps := exp.Schedule().Steps()
			if result.StepsTaken != steps {
				t.Errorf("steps taken = %d, want %d", result.StepsTaken, steps)
			}
			if exp.History().Len() != steps+1 {
				t.Errorf("history length = %d, want %d", exp.History().Len(), steps+1)
			}
			if result.Metrics["containment"] != 1 {
				t.Errorf("containment = %v", result.Metrics["containment"])
			}
			if result.Metrics["ideal_gas_residual"] > 1e-9 {
				t.Errorf("residual = %v", result.Metrics["ideal_gas_residual"])
			}
		})
	}
}

func TestExperimentSeedReproducible(t *testing.T) {
	run := func() []gas.Vec3 {
		cfg := config.GetPreset("isothermal", "expand")
		cfg.Run.Seed = 11
		cfg.Run.Steps = 20
		exp := New(cfg, nil)
		if err := exp.Setup(nil); err != nil {
			t.Fatal(err)
		}
		if _, err := exp.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		return exp.System().Positions(nil)
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("particle %d differs between runs with the same seed", i)
		}
	}
}

func TestExperimentErrors(t *testing.T) {
	exp := New(config.DefaultConfig(), nil)
	if _, err := exp.Run(context.Background()); err == nil {
		t.Error("expected error before setup")
	}
	if exp.System() != nil {
		t.Error("expected nil system before setup")
	}

	cfg := config.DefaultConfig()
	cfg.Run.Process = "isothermal"
	cfg.Run.Rate = -1000
	cfg.Run.Steps = 10
	exp = New(cfg, nil)
	if err := exp.Setup(nil); err != nil {
		t.Fatal(err)
	}
	result, err := exp.Run(context.Background())
	if err == nil {
		t.Fatal("expected physical limit error")
	}
	if math.Abs(result.Final.Volume-1000) > 1e-9 {
		t.Errorf("final volume = %v", result.Final.Volume)
	}
	if exp.History().Len() != 8 {
		t.Errorf("history length = %d, want 8", exp.History().Len())
	}
}
