package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/gassim/internal/gas"
)

type Simulator struct {
	sys       *gas.System
	metrics   []Metric
	observers []Observer
	positions []gas.Vec3
}

func New(sys *gas.System) *Simulator {
	return &Simulator{
		sys:       sys,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }
func (s *Simulator) System() *gas.System    { return s.sys }

// Run drives the system through sched. On failure the partial result is
// returned together with the error.
func (s *Simulator) Run(ctx context.Context, sched Schedule) (*Result, error) {
	d, err := NewDriver(s.sys, sched)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Records: make([]gas.Record, 0, sched.Steps()+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}
	s.observe(gas.Record{Step: s.sys.Steps(), Thermo: s.sys.Thermo()}, result)

	for !d.Done() {
		select {
		case <-ctx.Done():
			s.finish(d, result)
			return result, ctx.Err()
		default:
		}

		rec, err := d.Next()
		if err != nil {
			s.finish(d, result)
			return result, fmt.Errorf("run: %w", err)
		}
		result.StepsTaken++
		s.observe(rec, result)
	}

	s.finish(d, result)
	return result, nil
}

func (s *Simulator) observe(rec gas.Record, result *Result) {
	result.Records = append(result.Records, rec)
	s.positions = s.sys.Positions(s.positions)
	for _, m := range s.metrics {
		m.Observe(rec)
		if po, ok := m.(PositionObserver); ok {
			po.ObservePositions(rec.Box, s.positions)
		}
	}
	for _, o := range s.observers {
		o.OnStep(s.sys, rec)
	}
}

func (s *Simulator) finish(d *Driver, result *Result) {
	result.Final = s.sys.Thermo()
	result.Closures = d.Closures()
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}
