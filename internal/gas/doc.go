// Package gas implements the ideal-gas state-update engine.
//
// A [System] owns a fixed set of point-mass particles inside an
// axis-aligned box centred on the origin, together with the coupled
// scalars temperature, pressure, energy and volume. Thermodynamic laws
// are expressed as a tagged [Process] variant:
//
//   - [NoOp]: no change, bookkeeping and kinematics only
//   - [Isochoric]: heat added at constant volume
//   - [Isothermal]: volume change at constant temperature
//   - [Isentropic]: adiabatic, reversible volume change
//   - [CarnotIsothermal], [CarnotIsentropic]: the two Carnot phases
//
// Every process is applied by the same pure function ([Process.Apply]) and
// composed with the variant-independent kinematic step [System.Move].
//
// # Example
//
//	hist := gas.NewHistory()
//	sys, err := gas.New(gas.DefaultConfig(), gas.WithRand(rand.New(rand.NewSource(1))), gas.WithRecorder(hist))
//	if err != nil {
//	    return err
//	}
//	for i := 0; i < 1000; i++ {
//	    if err := sys.Update(gas.Isentropic, 10); err != nil {
//	        return err
//	    }
//	}
//
// # Thread Safety
//
// System instances are NOT safe for concurrent use. [System.Move] may fan
// particles out over worker goroutines internally, but callers must
// serialize all calls on a given System.
package gas
