// Package gamemath provides small headless math helpers shared by the
// netcode core, the relay server and any front end. It must not depend on
// a graphics library so server binaries stay headless.
package gamemath

// Vec2 is a two-component vector.
type Vec2 struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Clamp clamps a value to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampVec clamps each axis of v independently to [0, bounds].
func ClampVec(v, bounds Vec2) Vec2 {
	return Vec2{
		X: Clamp(v.X, 0, bounds.X),
		Y: Clamp(v.Y, 0, bounds.Y),
	}
}

// Lerp returns a + (b-a)*t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// LerpVec interpolates componentwise between a and b.
func LerpVec(a, b Vec2, t float64) Vec2 {
	return Vec2{
		X: Lerp(a.X, b.X, t),
		Y: Lerp(a.Y, b.Y, t),
	}
}
