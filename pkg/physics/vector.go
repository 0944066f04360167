// pkg/physics/vector.go
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vector3 is the world-space vector used throughout the simulation.
type Vector3 = mgl64.Vec3

// Unit axes and inward wall normals. Values, never mutated.
var (
	UnitX = Vector3{1, 0, 0}
	UnitY = Vector3{0, 1, 0}
	UnitZ = Vector3{0, 0, 1}
)

// Normalize returns a unit vector in the same direction as v.
// Unlike mgl64.Vec3.Normalize it returns the zero vector for a zero input instead of NaNs.
func Normalize(v Vector3) Vector3 {
	length := v.Len()
	if length == 0 {
		return Vector3{}
	}
	return v.Mul(1 / length)
}

// Reflect mirrors v about the surface with unit normal n: v - 2(v·n)n.
// Both arguments are taken by value so the caller's normal is never modified.
func Reflect(n, v Vector3) Vector3 {
	return v.Sub(n.Mul(2 * v.Dot(n)))
}

// Forward returns the world direction of the local +z axis after a rotation of yaw radians about +y.
func Forward(yaw float64) Vector3 {
	return mgl64.Rotate3DY(yaw).Mul3x1(UnitZ)
}

// FromAngle creates a horizontal (x/z plane) vector from an angle and magnitude, with y set to up.
func FromAngle(angle, magnitude, up float64) Vector3 {
	return Vector3{
		magnitude * math.Cos(angle),
		up,
		magnitude * math.Sin(angle),
	}
}

// HorizontalLength returns the magnitude of the x/z components of v.
func HorizontalLength(v Vector3) float64 {
	return math.Hypot(v.X(), v.Z())
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v Vector3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
