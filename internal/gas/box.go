package gas

import "math"

// Box is an axis-aligned box centred on the origin, described by its
// half-extents.
type Box struct {
	HalfX, HalfY, HalfZ float64
}

// Volume returns 8*x*y*z.
func (b Box) Volume() float64 { return 8 * b.HalfX * b.HalfY * b.HalfZ }

// Half returns the half-extents as a vector.
func (b Box) Half() Vec3 { return Vec3{b.HalfX, b.HalfY, b.HalfZ} }

// Inner returns the per-axis wall position seen by a particle centre.
func (b Box) Inner() Vec3 {
	return Vec3{b.HalfX - ParticleRadius, b.HalfY - ParticleRadius, b.HalfZ - ParticleRadius}
}

// WithVolume keeps the x and z extents and solves y for volume v.
func (b Box) WithVolume(v float64) Box {
	b.HalfY = v / (8 * b.HalfX * b.HalfZ)
	return b
}

// Contains reports whether p lies within the inner bounds, inclusive. A
// non-finite position is never inside.
func (b Box) Contains(p Vec3) bool {
	if !p.IsFinite() {
		return false
	}
	lim := b.Inner()
	for a := 0; a < 3; a++ {
		l := lim.Axis(a)
		if c := p.Axis(a); c > l || c < -l {
			return false
		}
	}
	return true
}

func (b Box) validate() error {
	for a, name := range []string{"half_x", "half_y", "half_z"} {
		h := b.Half().Axis(a)
		if !(h > ParticleRadius) {
			return &ConfigError{Field: name, Value: h, Reason: "half-extent must exceed the particle radius"}
		}
		if math.IsInf(h, 0) {
			return &ConfigError{Field: name, Value: h, Reason: "half-extent must be finite"}
		}
	}
	if v := b.Volume(); math.IsInf(v, 0) {
		return &ConfigError{Field: "volume", Value: v, Reason: "must be finite"}
	}
	return nil
}
