package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/gassim/internal/config"
	"github.com/san-kum/gassim/internal/gas"
	"github.com/san-kum/gassim/internal/metrics"
	"github.com/san-kum/gassim/internal/sim"
)

// ScheduleFunc builds a schedule for a config, given the starting volume of
// the system it will drive.
type ScheduleFunc func(cfg *config.Config, volume float64) (sim.Schedule, error)

type Registry struct {
	schedules map[string]ScheduleFunc
	metrics   map[string]func() sim.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		schedules: make(map[string]ScheduleFunc),
		metrics:   make(map[string]func() sim.Metric),
	}

	for _, p := range []gas.Process{gas.NoOp, gas.Isochoric, gas.Isothermal, gas.Isentropic} {
		p := p
		r.schedules[p.String()] = func(cfg *config.Config, _ float64) (sim.Schedule, error) {
			return sim.Constant(p, cfg.Run.Rate, cfg.Run.Steps), nil
		}
	}
	r.schedules["carnot"] = func(cfg *config.Config, volume float64) (sim.Schedule, error) {
		cc := cfg.Carnot
		cycle, err := sim.CarnotSchedule(volume, cc.IsothermalRatio, cc.AdiabaticRatio, cc.StepsPerLeg)
		if err != nil {
			return nil, err
		}
		return cycle.Repeat(cc.Cycles), nil
	}

	r.metrics["work"] = func() sim.Metric { return metrics.NewWork() }
	r.metrics["heat_in"] = func() sim.Metric { return metrics.NewHeatIn() }
	r.metrics["efficiency"] = func() sim.Metric { return metrics.NewEfficiency() }
	r.metrics["ideal_gas_residual"] = func() sim.Metric { return metrics.NewIdealGasResidual() }
	r.metrics["containment"] = func() sim.Metric { return metrics.NewContainment() }
	for _, field := range metrics.FinalFields() {
		field := field
		r.metrics["final_"+field] = func() sim.Metric {
			m, _ := metrics.NewFinal(field)
			return m
		}
	}

	return r
}

func (r *Registry) GetSchedule(cfg *config.Config, volume float64) (sim.Schedule, error) {
	fn, ok := r.schedules[cfg.Run.Process]
	if !ok {
		return nil, fmt.Errorf("unknown process: %s", cfg.Run.Process)
	}
	return fn(cfg, volume)
}

func (r *Registry) GetMetric(name string) (sim.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListProcesses() []string {
	names := make([]string, 0, len(r.schedules))
	for name := range r.schedules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns fresh metrics suited to a process. Every run
// tracks the ideal-gas residual and containment; volume-changing runs add
// work and heat, and Carnot runs add efficiency.
func (r *Registry) DefaultMetrics(process string) []sim.Metric {
	ms := []sim.Metric{metrics.NewIdealGasResidual(), metrics.NewContainment()}
	switch process {
	case "isothermal", "isentropic":
		ms = append(ms, metrics.NewWork(), metrics.NewHeatIn())
	case "carnot":
		ms = append(ms, metrics.NewWork(), metrics.NewHeatIn(), metrics.NewEfficiency())
	}
	return ms
}
