package gas

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"
)

const (
	DefaultDt          = 0.01
	DefaultRate        = 0.1
	DefaultHalfExtent  = 10.0
	DefaultParticles   = 100
	DefaultTemperature = 2.0

	// below this many particles per worker Move runs inline
	minParticlesPerWorker = 256

	pressureTolerance = 1e-9
)

// Config holds the construction parameters of a System.
type Config struct {
	Box         Box
	Particles   int
	Temperature float64
	// Pressure is optional. When Temperature is zero it determines the
	// temperature through P = nT/V; when both are set they must agree.
	Pressure float64
	Dt       float64
}

func DefaultConfig() Config {
	return Config{
		Box:         Box{HalfX: DefaultHalfExtent, HalfY: DefaultHalfExtent, HalfZ: DefaultHalfExtent},
		Particles:   DefaultParticles,
		Temperature: DefaultTemperature,
		Dt:          DefaultDt,
	}
}

// Validate checks the parameters and returns the initial temperature.
func (c Config) Validate() (float64, error) {
	if err := c.Box.validate(); err != nil {
		return 0, err
	}
	if c.Particles <= 0 {
		return 0, &ConfigError{Field: "particles", Value: float64(c.Particles), Reason: "must be positive"}
	}
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return 0, &ConfigError{Field: "dt", Value: c.Dt, Reason: "must be positive and finite"}
	}
	if !(c.Pressure >= 0) || math.IsInf(c.Pressure, 0) {
		return 0, &ConfigError{Field: "pressure", Value: c.Pressure, Reason: "must be finite and not negative"}
	}

	temp := c.Temperature
	if c.Pressure > 0 {
		derived := c.Pressure * c.Box.Volume() / float64(c.Particles)
		if temp == 0 {
			temp = derived
		} else if math.Abs(derived-temp) > pressureTolerance*temp {
			return 0, &ConfigError{Field: "pressure", Value: c.Pressure,
				Reason: fmt.Sprintf("inconsistent with temperature %g (expected %g)", temp, float64(c.Particles)*temp/c.Box.Volume())}
		}
	}
	if !(temp > 0) || math.IsInf(temp, 0) {
		return 0, &ConfigError{Field: "temperature", Value: temp, Reason: "must be positive"}
	}
	return temp, nil
}

// Option customizes a System at construction.
type Option func(*System)

// WithRand injects the random source used for particle initialization.
func WithRand(rng *rand.Rand) Option {
	return func(s *System) { s.rng = rng }
}

// WithRecorder sets the history sink.
func WithRecorder(rec Recorder) Option {
	return func(s *System) { s.rec = rec }
}

// WithWorkers bounds the goroutines used by Move. Values < 1 mean 1.
func WithWorkers(n int) Option {
	return func(s *System) { s.workers = n }
}

// System is an ideal gas in a box.
type System struct {
	th        Thermo
	dt        float64
	particles []Particle
	rng       *rand.Rand
	rec       Recorder
	workers   int
	vbuf      []Vec3
	steps     int
	err       error
}

// New validates cfg, spawns the particles and records the initial state.
func New(cfg Config, opts ...Option) (*System, error) {
	temp, err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	s := &System{
		dt:      cfg.Dt,
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.rec == nil {
		s.rec = discard{}
	}

	s.th = newThermo(cfg.Box, cfg.Particles, temp)
	s.particles, err = spawnParticles(cfg.Particles, cfg.Box, ParticleMass, s.th.Energy, s.rng)
	if err != nil {
		return nil, err
	}

	s.rec.Record(Record{Step: 0, Process: NoOp, Thermo: s.th})
	return s, nil
}

// Update applies process p with the given rate, rescales the particle
// speeds when the energy changed, records the new state and advances the
// particles by one step. A failed update leaves the system halted.
func (s *System) Update(p Process, rate float64) error {
	if s.err != nil {
		return fmt.Errorf("%w: %v", ErrHalted, s.err)
	}

	next, err := p.Apply(s.th, rate)
	if err != nil {
		return s.fail(p, rate, err)
	}

	if p.Rescales() {
		if err := s.rescale(next.Energy); err != nil {
			return s.fail(p, rate, err)
		}
	}

	s.th = next
	s.steps++
	s.rec.Record(Record{Step: s.steps, Process: p, Rate: rate, Thermo: next})

	s.Move()
	return nil
}

// rescale sets every particle speed for energy. Velocities are committed
// only when all of them could be rescaled.
func (s *System) rescale(energy float64) error {
	s.vbuf = s.vbuf[:0]
	for i := range s.particles {
		v, err := s.particles[i].rescaled(energy)
		if err != nil {
			return fmt.Errorf("particle %d: %w", i, err)
		}
		s.vbuf = append(s.vbuf, v)
	}
	for i := range s.particles {
		s.particles[i].Velocity = s.vbuf[i]
	}
	return nil
}

func (s *System) fail(p Process, rate float64, err error) error {
	s.err = &StepError{Step: s.steps + 1, Process: p, Rate: rate, State: s.th, Wrapped: err}
	return s.err
}

// Move advances every particle by dt, reflecting off and clamping to the
// inner walls of the current box.
func (s *System) Move() {
	lim := s.th.Box.Inner()
	dt := s.dt
	parallelFor(len(s.particles), s.workers, minParticlesPerWorker, func(start, end int) {
		for i := start; i < end; i++ {
			s.particles[i].step(dt, lim)
		}
	})
}

// step integrates position, then per axis flips the velocity at or beyond
// the wall and clamps the position onto it.
func (p *Particle) step(dt float64, lim Vec3) {
	p.Position = p.Position.Add(p.Velocity.Scale(dt))
	for a := 0; a < 3; a++ {
		l, x := lim.Axis(a), p.Position.Axis(a)
		if x >= l || x <= -l {
			p.Velocity.SetAxis(a, -p.Velocity.Axis(a))
		}
		if x > l {
			p.Position.SetAxis(a, l)
		} else if x < -l {
			p.Position.SetAxis(a, -l)
		}
	}
}

func (s *System) Thermo() Thermo       { return s.th }
func (s *System) Box() Box             { return s.th.Box }
func (s *System) Volume() float64      { return s.th.Volume }
func (s *System) Temperature() float64 { return s.th.Temperature }
func (s *System) Pressure() float64    { return s.th.Pressure }
func (s *System) Energy() float64      { return s.th.Energy }
func (s *System) Dt() float64          { return s.dt }
func (s *System) Len() int             { return len(s.particles) }

// Steps returns the number of successful updates.
func (s *System) Steps() int { return s.steps }

// Err returns the failure that halted the system, if any.
func (s *System) Err() error { return s.err }

// Particle returns a copy of particle i.
func (s *System) Particle(i int) Particle { return s.particles[i] }

// Particles returns a copy of all particles.
func (s *System) Particles() []Particle {
	out := make([]Particle, len(s.particles))
	copy(out, s.particles)
	return out
}

// Positions appends the particle positions to dst and returns it.
func (s *System) Positions(dst []Vec3) []Vec3 {
	dst = dst[:0]
	for _, p := range s.particles {
		dst = append(dst, p.Position)
	}
	return dst
}
