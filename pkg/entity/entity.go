// pkg/entity/entity.go
package entity

import (
	"errors"

	"github.com/opd-ai/go-carsoccer/pkg/physics"
)

// ID is a unique identifier for an entity
type ID uint64

// Fixed identifiers for the two bodies of a match
const (
	BallID ID = 1
	CarID  ID = 2
)

// ErrInvalidRadius is returned when a ball radius or car collision radius is not positive
var ErrInvalidRadius = errors.New("radius must be positive")

// Entity is the base interface for all simulated bodies.
// Entities hold plain physics state; drawing is delegated to a Renderer.
type Entity interface {
	GetID() ID
	GetPosition() physics.Vector3
	GetCollider() physics.Sphere
	Update(deltaTime float64)
	Reset()
	Render(r Renderer)
}

// BaseEntity contains the state shared by the ball and the car
type BaseEntity struct {
	ID              ID
	Position        physics.Vector3
	Velocity        physics.Vector3
	InitialPosition physics.Vector3
}

// GetID returns the entity's unique identifier
func (e *BaseEntity) GetID() ID {
	return e.ID
}

// GetPosition returns the entity's position
func (e *BaseEntity) GetPosition() physics.Vector3 {
	return e.Position
}

// Speed returns the magnitude of the entity's velocity
func (e *BaseEntity) Speed() float64 {
	return e.Velocity.Len()
}

func (b *Ball) Render(r Renderer) {
	r.RenderBall(b)
}

func (c *Car) Render(r Renderer) {
	r.RenderCar(c)
}
