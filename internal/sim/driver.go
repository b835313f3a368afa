package sim

import (
	"errors"
	"log/slog"

	"github.com/san-kum/gassim/internal/gas"
)

// ErrDone is returned by Driver.Next once the schedule is exhausted.
var ErrDone = errors.New("sim: schedule complete")

// Driver advances a system through a schedule one update per call, the
// way a render loop calls update once per frame. Cycle schedules are routed
// through the Carnot leg state machine.
type Driver struct {
	sys      *gas.System
	carnot   *gas.Carnot
	sched    Schedule
	leg      int
	step     int
	closures []gas.Closure
}

func NewDriver(sys *gas.System, sched Schedule) (*Driver, error) {
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{sys: sys, sched: sched}
	if sched.IsCycle() {
		d.carnot = gas.NewCarnot(sys)
	}
	return d, nil
}

func (d *Driver) System() *gas.System { return d.sys }
func (d *Driver) Done() bool          { return d.leg >= len(d.sched) }

// Leg returns the index and definition of the current leg.
func (d *Driver) Leg() (int, Leg) {
	if d.Done() {
		return d.leg, Leg{}
	}
	return d.leg, d.sched[d.leg]
}

// Progress returns the fraction of scheduled updates already applied.
func (d *Driver) Progress() float64 {
	total := d.sched.Steps()
	done := d.step
	for i := 0; i < d.leg && i < len(d.sched); i++ {
		done += d.sched[i].Steps
	}
	return float64(done) / float64(total)
}

// Closures returns the residuals of every completed Carnot cycle.
func (d *Driver) Closures() []gas.Closure { return d.closures }

// Next applies one update and returns the resulting record.
func (d *Driver) Next() (gas.Record, error) {
	if d.Done() {
		return gas.Record{}, ErrDone
	}

	l := d.sched[d.leg]
	var err error
	if d.carnot != nil {
		if l.Process == gas.CarnotIsothermal {
			err = d.carnot.UpdateIsothermal(l.Rate)
		} else {
			err = d.carnot.UpdateIsentropic(l.Rate)
		}
	} else {
		err = d.sys.Update(l.Process, l.Rate)
	}
	if err != nil {
		return gas.Record{}, err
	}

	rec := gas.Record{Step: d.sys.Steps(), Process: l.Process, Rate: l.Rate, Thermo: d.sys.Thermo()}
	d.step++
	if d.step >= l.Steps {
		d.finishLeg()
	}
	return rec, nil
}

func (d *Driver) finishLeg() {
	l := d.sched[d.leg]
	slog.Debug("leg complete", "leg", d.leg, "process", l.Process, "steps", l.Steps, "volume", d.sys.Volume(), "temperature", d.sys.Temperature())

	if d.carnot != nil {
		// Advance cannot fail here: a cycle schedule never runs past Closed
		_ = d.carnot.Advance()
		if closure, ok := d.carnot.Closure(); ok {
			d.closures = append(d.closures, closure)
			slog.Debug("cycle closed", "volume_res", closure.VolumeRes, "temp_res", closure.TempRes)
			d.carnot.Reset()
		}
	}
	d.leg++
	d.step = 0
}
