// pkg/engine/match.go
package engine

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/opd-ai/go-carsoccer/pkg/config"
	"github.com/opd-ai/go-carsoccer/pkg/entity"
	"github.com/opd-ai/go-carsoccer/pkg/event"
	"github.com/opd-ai/go-carsoccer/pkg/physics"
)

// ErrInvalidDeltaTime is returned by Update for a negative or non-finite frame time
var ErrInvalidDeltaTime = errors.New("invalid delta time")

// Match owns the car, the ball and the input vector, and advances them one frame at a time.
// A Match is not safe for concurrent use; Runner serializes access to it.
type Match struct {
	Config   *config.MatchConfig
	Tuning   config.Tuning
	Arena    physics.Arena
	Ball     *entity.Ball
	Car      *entity.Car
	Input    InputVector
	EventBus *event.Bus

	Frame       uint64
	ElapsedTime float64 // simulated seconds
}

// NewMatch creates a match from the configuration with both entities at their spawn points.
// A nil bus gets a private one.
func NewMatch(cfg *config.MatchConfig, bus *event.Bus) (*Match, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if bus == nil {
		bus = event.NewEventBus()
	}

	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	}

	ball, err := entity.NewBall(cfg.BallConfig.Spawn, cfg.BallConfig.Radius, cfg.Arena, cfg.BallConfig.Params, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to create ball: %w", err)
	}
	car, err := entity.NewCar(cfg.CarConfig.Spawn, cfg.CarConfig.Size, cfg.CarConfig.CollisionRadius, cfg.Arena)
	if err != nil {
		return nil, fmt.Errorf("failed to create car: %w", err)
	}

	return &Match{
		Config:   cfg,
		Tuning:   cfg.Tuning,
		Arena:    cfg.Arena,
		Ball:     ball,
		Car:      car,
		EventBus: bus,
	}, nil
}

// Update advances the match by deltaTime seconds.
// Order: throttle and turn, car-ball collision, car motion, ball motion, shadow, goal check.
func (m *Match) Update(deltaTime float64) error {
	if deltaTime < 0 || math.IsNaN(deltaTime) || math.IsInf(deltaTime, 0) {
		m.EventBus.Publish(event.NewFrameEvent(event.FrameRejected, m, deltaTime, m.Frame))
		return fmt.Errorf("frame %d: %w: %v", m.Frame, ErrInvalidDeltaTime, deltaTime)
	}

	m.applyInput(deltaTime)
	m.resolveCollision()

	m.Car.Update(deltaTime)
	m.Ball.Update(deltaTime)
	m.Ball.UpdateShadow()

	m.checkGoal()

	m.Frame++
	m.ElapsedTime += deltaTime
	m.EventBus.Publish(event.NewFrameEvent(event.FrameSimulated, m, deltaTime, m.Frame))
	return nil
}

// applyInput turns the input vector into car acceleration and yaw.
func (m *Match) applyInput(deltaTime float64) {
	throttle := float64(m.Input.Y)
	turn := float64(m.Input.X)
	step := m.Tuning.CarAccel * deltaTime

	// Soft cap: an increment that would exceed the top speed is undone, not clamped.
	delta := -throttle * step
	m.Car.Velocity[2] += delta
	if m.Car.Velocity.Len() > m.Tuning.CarMaxSpeed {
		m.Car.Velocity[2] -= delta
	}

	if m.Input.Y == 0 {
		m.coast(step)
	}

	// Turning needs throttle held and flips with reverse.
	m.Car.Rotate(throttle * -turn * m.Tuning.CarRotationRate * deltaTime)
}

func (m *Match) coast(step float64) {
	vz := m.Car.Velocity.Z()
	if m.Tuning.ClampCoast && math.Abs(vz) <= step {
		m.Car.Velocity[2] = 0
		return
	}
	switch {
	case vz < 0:
		m.Car.Velocity[2] += step
	case vz > 0:
		m.Car.Velocity[2] -= step
	}
}

// resolveCollision launches the ball away from the car while the two overlap.
// It fires on every overlapping frame.
func (m *Match) resolveCollision() {
	hit := physics.CheckCollision(m.Car.GetCollider(), m.Ball.GetCollider())
	if !hit.Collided {
		return
	}

	carSpeed := m.Car.Speed()
	speed := carSpeed + m.Tuning.StrikeRetention*m.Ball.Speed()
	m.Ball.Velocity = hit.Normal.Mul(speed)
	m.Ball.Velocity[1] -= m.Tuning.StrikeDrop

	m.EventBus.Publish(event.NewStrikeEvent(m, carSpeed, m.Ball.Velocity, m.Frame))
}

func (m *Match) checkGoal() {
	side := m.Arena.GoalAt(m.Ball.Position)
	if side == physics.NoGoal {
		return
	}

	m.EventBus.Publish(event.NewGoalEvent(m, side, m.Ball.Position, m.Frame))
	m.Reset(event.ResetGoal)
}

// Reset returns both entities to their spawn points and relaunches the ball.
// The input vector is left as is.
func (m *Match) Reset(reason event.ResetReason) {
	m.Car.Reset()
	m.Ball.Reset()
	m.Ball.UpdateShadow()
	m.EventBus.Publish(event.NewResetEvent(m, reason, m.Frame))
}

// KeyDown applies a key press. It reports false for unbound keys.
func (m *Match) KeyDown(key string) bool {
	action := ParseKey(key)
	switch action {
	case ActionNone:
		return false
	case ActionReset:
		m.Reset(event.ResetManual)
	default:
		m.Input.Press(action)
	}
	return true
}

// KeyUp applies a key release. It reports false for unbound keys.
func (m *Match) KeyUp(key string) bool {
	action := ParseKey(key)
	if action == ActionNone {
		return false
	}
	m.Input.Release(action)
	return true
}

// Render draws the car and the ball through r
func (m *Match) Render(r entity.Renderer) {
	r.Clear()
	m.Car.Render(r)
	m.Ball.Render(r)
	r.Present()
}

// Snapshot returns a copy of the match state that shares nothing with the match
func (m *Match) Snapshot() *MatchState {
	return &MatchState{
		Frame:       m.Frame,
		ElapsedTime: m.ElapsedTime,
		Input:       m.Input,
		Ball: BallState{
			Position: m.Ball.Position,
			Velocity: m.Ball.Velocity,
			Shadow:   m.Ball.Shadow,
			Radius:   m.Ball.Radius,
		},
		Car: CarState{
			Position:        m.Car.Position,
			Rotation:        m.Car.Rotation,
			Speed:           m.Car.Velocity.Z(),
			Size:            m.Car.Size,
			CollisionRadius: m.Car.CollisionRadius,
		},
	}
}

// MatchState is the replicated view of a match
type MatchState struct {
	Frame       uint64      `json:"frame"`
	ElapsedTime float64     `json:"elapsed"`
	Input       InputVector `json:"input"`
	Ball        BallState   `json:"ball"`
	Car         CarState    `json:"car"`
}

// BallState is the replicated view of the ball
type BallState struct {
	Position physics.Vector3 `json:"position"`
	Velocity physics.Vector3 `json:"velocity"`
	Shadow   physics.Vector3 `json:"shadow"`
	Radius   float64         `json:"radius"`
}

// CarState is the replicated view of the car
type CarState struct {
	Position        physics.Vector3 `json:"position"`
	Rotation        float64         `json:"rotation"`
	Speed           float64         `json:"speed"` // signed local z velocity
	Size            physics.Vector3 `json:"size"`
	CollisionRadius float64         `json:"collisionRadius"`
}

// Render draws a received snapshot through r, in the same order as Match.Render.
// The entities built here carry no arena and must not be stepped.
func (s *MatchState) Render(r entity.Renderer) {
	ball := &entity.Ball{
		BaseEntity: entity.BaseEntity{
			ID:       entity.BallID,
			Position: s.Ball.Position,
			Velocity: s.Ball.Velocity,
		},
		Radius: s.Ball.Radius,
		Shadow: s.Ball.Shadow,
	}
	car := &entity.Car{
		BaseEntity: entity.BaseEntity{
			ID:       entity.CarID,
			Position: s.Car.Position,
			Velocity: physics.Vector3{0, 0, s.Car.Speed},
		},
		Rotation:        s.Car.Rotation,
		Size:            s.Car.Size,
		CollisionRadius: s.Car.CollisionRadius,
	}

	r.Clear()
	car.Render(r)
	ball.Render(r)
	r.Present()
}
