package gas

import (
	"math"
	"math/rand"
)

const (
	// ParticleRadius is the wall inset applied on every axis.
	ParticleRadius = 0.2
	// ParticleMass is the mass of every particle.
	ParticleMass = 4.0

	maxResample = 64
)

// Particle is a point mass. Position and Velocity are mutated by the
// owning System only; mass is fixed at creation.
type Particle struct {
	Position Vec3
	Velocity Vec3
	mass     float64
}

func (p Particle) Mass() float64 { return p.mass }

// Speed returns |v|.
func (p Particle) Speed() float64 { return p.Velocity.Length() }

// speedFor is the speed consistent with the system energy.
func speedFor(mass, energy float64) float64 {
	return math.Sqrt(2 * mass * energy)
}

// rescaled returns the velocity with |v| matching energy, direction
// preserved.
func (p Particle) rescaled(energy float64) (Vec3, error) {
	return p.Velocity.WithLength(speedFor(p.mass, energy))
}

// randomDirection samples components in [0,1) and normalizes, resampling
// the (measure-zero) zero vector.
func randomDirection(rng *rand.Rand) (Vec3, error) {
	for i := 0; i < maxResample; i++ {
		raw := Vec3{rng.Float64(), rng.Float64(), rng.Float64()}
		if u, err := raw.Normalize(); err == nil {
			return u, nil
		}
	}
	return Vec3{}, ErrInvalidState
}

// spawnParticles places n particles uniformly inside the inner bounds
// and points each along a random direction with the energy-consistent speed.
func spawnParticles(n int, box Box, mass, energy float64, rng *rand.Rand) ([]Particle, error) {
	lim := box.Inner()
	speed := speedFor(mass, energy)
	ps := make([]Particle, n)
	for i := range ps {
		ps[i].mass = mass
		for a := 0; a < 3; a++ {
			l := lim.Axis(a)
			ps[i].Position.SetAxis(a, -l+2*l*rng.Float64())
		}
		dir, err := randomDirection(rng)
		if err != nil {
			return nil, err
		}
		ps[i].Velocity = dir.Scale(speed)
	}
	return ps, nil
}
