// pkg/entity/car.go
package entity

import (
	"fmt"
	"math"

	"github.com/opd-ai/go-carsoccer/pkg/physics"
)

// Car is the player-controlled car. Its velocity is expressed in the car's
// local frame and only the z component moves it.
type Car struct {
	BaseEntity
	Rotation        float64 // yaw in radians about +y
	Size            physics.Vector3
	CollisionRadius float64

	arena physics.Arena
}

// NewCar creates a car at its spawn position
func NewCar(position, size physics.Vector3, collisionRadius float64, arena physics.Arena) (*Car, error) {
	if !(collisionRadius > 0) {
		return nil, fmt.Errorf("car collision radius %v: %w", collisionRadius, ErrInvalidRadius)
	}

	car := &Car{
		BaseEntity: BaseEntity{
			ID:              CarID,
			Position:        position,
			InitialPosition: position,
		},
		Size:            size,
		CollisionRadius: collisionRadius,
		arena:           arena,
	}
	car.Reset()
	return car, nil
}

// GetCollider returns the circular proxy used for car-ball contact
func (c *Car) GetCollider() physics.Sphere {
	return physics.Sphere{Center: c.Position, Radius: c.CollisionRadius}
}

// Reset returns the car to its spawn point, facing forward and at rest
func (c *Car) Reset() {
	c.Position = c.InitialPosition
	c.Rotation = 0
	c.Velocity = physics.Vector3{}
}

// Rotate turns the car about the vertical axis by angle radians
func (c *Car) Rotate(angle float64) {
	c.Rotation = normalizeAngle(c.Rotation + angle)
}

// Forward returns the world direction of the car's local +z axis
func (c *Car) Forward() physics.Vector3 {
	return physics.Forward(c.Rotation)
}

// Update moves the car along its own forward axis. A step that would leave the
// arena is discarded; the car stays put for this frame without bouncing.
func (c *Car) Update(deltaTime float64) {
	previous := c.Position
	c.Position = c.Position.Add(c.Forward().Mul(c.Velocity.Z() * deltaTime))

	if !c.arena.ContainsXZ(c.Position) {
		c.Position = previous
	}
}

// normalizeAngle wraps an angle into [-π, π]
func normalizeAngle(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}
