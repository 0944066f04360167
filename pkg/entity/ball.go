// pkg/entity/ball.go
package entity

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/opd-ai/go-carsoccer/pkg/physics"
)

// BallParams holds the tunable constants of ball motion
type BallParams struct {
	Gravity     float64 `json:"gravity" yaml:"gravity"`         // m/s², applied to y while airborne
	Restitution float64 `json:"restitution" yaml:"restitution"` // fraction of velocity kept on a wall bounce
	LaunchSpeed float64 `json:"launchSpeed" yaml:"launch_speed"`
	LaunchLift  float64 `json:"launchLift" yaml:"launch_lift"`
	ShadowLift  float64 `json:"shadowLift" yaml:"shadow_lift"`
}

// DefaultBallParams returns the standard ball tuning
func DefaultBallParams() BallParams {
	return BallParams{
		Gravity:     -15,
		Restitution: 0.8,
		LaunchSpeed: 25,
		LaunchLift:  15,
		ShadowLift:  0.01,
	}
}

// Ball is the bouncing ball of a match
type Ball struct {
	BaseEntity
	Radius float64
	Params BallParams

	// Shadow is the ground shadow offset relative to the ball, refreshed by UpdateShadow.
	Shadow physics.Vector3

	arena physics.Arena
	rng   *rand.Rand
}

// NewBall creates a ball at its spawn position and launches it.
// A nil rng uses the package-level math/rand/v2 source.
func NewBall(position physics.Vector3, radius float64, arena physics.Arena, params BallParams, rng *rand.Rand) (*Ball, error) {
	if !(radius > 0) {
		return nil, fmt.Errorf("ball radius %v: %w", radius, ErrInvalidRadius)
	}

	ball := &Ball{
		BaseEntity: BaseEntity{
			ID:              BallID,
			Position:        position,
			InitialPosition: position,
		},
		Radius: radius,
		Params: params,
		arena:  arena,
		rng:    rng,
	}
	ball.Reset()
	return ball, nil
}

// GetCollider returns the ball's collision sphere
func (b *Ball) GetCollider() physics.Sphere {
	return physics.Sphere{Center: b.Position, Radius: b.Radius}
}

// Reset returns the ball to its spawn point and throws it in a random horizontal direction
func (b *Ball) Reset() {
	b.Position = b.InitialPosition
	b.Velocity = physics.FromAngle(b.randomAngle(), b.Params.LaunchSpeed, b.Params.LaunchLift)
}

func (b *Ball) randomAngle() float64 {
	if b.rng != nil {
		return b.rng.Float64() * 2 * math.Pi
	}
	return rand.Float64() * 2 * math.Pi
}

// Update integrates the ball for deltaTime seconds and bounces it off the arena walls.
// Axes are checked in x, y, z order. Gravity only applies when no floor or ceiling
// contact happened this step.
func (b *Ball) Update(deltaTime float64) {
	step := b.Velocity.Mul(deltaTime)
	b.Position = b.Position.Add(step)

	if n, hit := b.arena.WallNormal(0, b.Position.X()); hit {
		b.Position[0] -= step[0]
		b.bounce(n)
	}

	if n, hit := b.arena.WallNormal(1, b.Position.Y()); hit {
		b.Position[1] -= step[1]
		b.bounce(n)
	} else {
		b.Velocity[1] += b.Params.Gravity * deltaTime
	}

	if n, hit := b.arena.WallNormal(2, b.Position.Z()); hit {
		b.Position[2] -= step[2]
		b.bounce(n)
	}
}

func (b *Ball) bounce(normal physics.Vector3) {
	b.Velocity = physics.Reflect(normal, b.Velocity).Mul(b.Params.Restitution)
}

// UpdateShadow places the ground shadow directly below the ball, just above the floor
func (b *Ball) UpdateShadow() {
	b.Shadow = physics.Vector3{0, -b.Position.Y() + b.Params.ShadowLift, 0}
}
