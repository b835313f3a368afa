package gas

import (
	"errors"
	"fmt"
)

// Domain errors for engine operations.
var (
	// ErrConfiguration indicates a non-physical construction parameter.
	ErrConfiguration = errors.New("gas: invalid configuration")

	// ErrInvalidState indicates a degenerate or non-finite quantity.
	ErrInvalidState = errors.New("gas: invalid state")

	// ErrPhysicalLimit indicates an update would leave the physical domain
	// (non-positive volume or energy, or a box thinner than a particle).
	ErrPhysicalLimit = errors.New("gas: physical limit exceeded")

	// ErrCycleOrder indicates a Carnot phase call that does not match the
	// current leg.
	ErrCycleOrder = errors.New("gas: carnot leg out of order")

	// ErrHalted is returned by every call on a system that already failed.
	ErrHalted = errors.New("gas: system halted")
)

// ConfigError reports the offending construction parameter.
type ConfigError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("gas: invalid %s=%g: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// StepError wraps an update failure with the step context.
type StepError struct {
	Step    int
	Process Process
	Rate    float64
	State   Thermo
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s, rate=%g, V=%g): %v", e.Step, e.Process, e.Rate, e.State.Volume, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
