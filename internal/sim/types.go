package sim

import (
	"fmt"

	"github.com/san-kum/gassim/internal/gas"
)

// Leg is a run of Steps updates with the same process and rate.
type Leg struct {
	Process gas.Process
	Rate    float64
	Steps   int
}

// Schedule is an ordered list of legs.
type Schedule []Leg

// Steps returns the total number of updates in the schedule.
func (s Schedule) Steps() int {
	n := 0
	for _, l := range s {
		n += l.Steps
	}
	return n
}

// IsCycle reports whether the schedule is a whole number of Carnot cycles:
// isothermal, isentropic, isothermal, isentropic Carnot phases, repeated.
func (s Schedule) IsCycle() bool {
	if len(s) == 0 || len(s)%4 != 0 {
		return false
	}
	for i, l := range s {
		want := gas.CarnotIsothermal
		if i%2 == 1 {
			want = gas.CarnotIsentropic
		}
		if l.Process != want {
			return false
		}
	}
	return true
}

// Validate checks every leg has a positive step count and that Carnot
// phases only appear inside a cycle schedule.
func (s Schedule) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("empty schedule")
	}
	cycle := s.IsCycle()
	for i, l := range s {
		if l.Steps <= 0 {
			return fmt.Errorf("leg %d: steps must be positive, got %d", i, l.Steps)
		}
		if !cycle && (l.Process == gas.CarnotIsothermal || l.Process == gas.CarnotIsentropic) {
			return fmt.Errorf("leg %d: %s outside a carnot cycle", i, l.Process)
		}
	}
	return nil
}

// Metric accumulates a scalar over the records of a run.
type Metric interface {
	Name() string
	Observe(r gas.Record)
	Value() float64
	Reset()
}

// PositionObserver is implemented by metrics that also inspect particle
// positions after every step.
type PositionObserver interface {
	ObservePositions(box gas.Box, positions []gas.Vec3)
}

// Observer is notified after every successful step.
type Observer interface {
	OnStep(sys *gas.System, r gas.Record)
}

type Result struct {
	Records    []gas.Record
	Metrics    map[string]float64
	Closures   []gas.Closure
	Final      gas.Thermo
	StepsTaken int
}
