// pkg/physics/collision.go
package physics

// Sphere represents a spherical collision proxy
type Sphere struct {
	Center Vector3
	Radius float64
}

// Collides checks if two spheres overlap
func (s Sphere) Collides(other Sphere) bool {
	return other.Center.Sub(s.Center).Len() < s.Radius+other.Radius
}

// CollisionResult contains information about a collision
type CollisionResult struct {
	Collided    bool
	Normal      Vector3 // unit vector from A towards B
	Distance    float64
	Penetration float64
}

// CheckCollision performs detailed overlap detection between two spheres.
// Touching spheres (distance equal to the radius sum) do not collide.
func CheckCollision(a, b Sphere) CollisionResult {
	// Vector from A to B
	offset := b.Center.Sub(a.Center)
	distance := offset.Len()

	if distance >= a.Radius+b.Radius {
		return CollisionResult{Collided: false, Distance: distance}
	}

	// Coincident centres have no direction; push B straight up.
	normal := UnitY
	if distance > 0 {
		normal = offset.Mul(1 / distance)
	}

	return CollisionResult{
		Collided:    true,
		Normal:      normal,
		Distance:    distance,
		Penetration: a.Radius + b.Radius - distance,
	}
}
