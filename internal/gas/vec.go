package gas

import "math"

// Vec3 is a 3-vector of float64 components.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Length() float64      { return math.Sqrt(v.Dot(v)) }

// Axis returns component i (0=x, 1=y, 2=z).
func (v Vec3) Axis(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// SetAxis sets component i (0=x, 1=y, 2=z).
func (v *Vec3) SetAxis(i int, val float64) {
	switch i {
	case 0:
		v.X = val
	case 1:
		v.Y = val
	default:
		v.Z = val
	}
}

// IsFinite reports whether no component is NaN or Inf.
func (v Vec3) IsFinite() bool {
	for i := 0; i < 3; i++ {
		c := v.Axis(i)
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Normalize returns the unit vector along v. A zero or non-finite vector
// has no direction and yields ErrInvalidState.
func (v Vec3) Normalize() (Vec3, error) {
	l := v.Length()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return Vec3{}, ErrInvalidState
	}
	return v.Scale(1 / l), nil
}

// WithLength rescales v to magnitude l, keeping its direction.
func (v Vec3) WithLength(l float64) (Vec3, error) {
	u, err := v.Normalize()
	if err != nil {
		return Vec3{}, err
	}
	return u.Scale(l), nil
}
