// pkg/entity/ball_test.go
package entity

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/opd-ai/go-carsoccer/pkg/physics"
)

const epsilon = 1e-9

// vecNear compares component-wise against an absolute tolerance
func vecNear(a, b physics.Vector3, tol float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func newTestBall(t *testing.T) *Ball {
	t.Helper()
	ball, err := NewBall(physics.Vector3{0, 2.6, 0}, 2.6, physics.DefaultArena(), DefaultBallParams(), rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("NewBall() failed: %v", err)
	}
	return ball
}

func TestNewBall_InvalidRadius(t *testing.T) {
	for _, radius := range []float64{0, -1, math.NaN()} {
		_, err := NewBall(physics.Vector3{}, radius, physics.DefaultArena(), DefaultBallParams(), nil)
		if !errors.Is(err, ErrInvalidRadius) {
			t.Errorf("NewBall(radius=%v) error = %v, want ErrInvalidRadius", radius, err)
		}
	}
}

func TestBall_Reset(t *testing.T) {
	ball := newTestBall(t)

	for i := 0; i < 100; i++ {
		ball.Position = physics.Vector3{5, 20, -30}
		ball.Reset()

		if ball.Position != ball.InitialPosition {
			t.Fatalf("Position = %v, want %v", ball.Position, ball.InitialPosition)
		}
		if ball.Velocity.Y() != 15 {
			t.Fatalf("Velocity.Y = %v, want 15", ball.Velocity.Y())
		}
		horizontal := ball.Velocity.X()*ball.Velocity.X() + ball.Velocity.Z()*ball.Velocity.Z()
		if math.Abs(horizontal-625) > 1e-6 {
			t.Fatalf("horizontal speed² = %v, want 625", horizontal)
		}
	}
}

func TestBall_ResetTwice(t *testing.T) {
	ball := newTestBall(t)
	ball.Reset()
	ball.Reset()

	if ball.Position != ball.InitialPosition {
		t.Errorf("Position = %v, want %v", ball.Position, ball.InitialPosition)
	}
	if math.Abs(physics.HorizontalLength(ball.Velocity)-25) > 1e-9 {
		t.Errorf("horizontal speed = %v, want 25", physics.HorizontalLength(ball.Velocity))
	}
}

func TestBall_Update_Airborne(t *testing.T) {
	ball := newTestBall(t)
	ball.Position = physics.Vector3{0, 10, 0}
	ball.Velocity = physics.Vector3{1, 2, 3}

	dt := 0.02
	ball.Update(dt)

	expectedPos := physics.Vector3{0.02, 10.04, 0.06}
	if !vecNear(ball.Position, expectedPos, epsilon) {
		t.Errorf("Position = %v, want %v", ball.Position, expectedPos)
	}
	if math.Abs(ball.Velocity.Y()-(2-15*dt)) > epsilon {
		t.Errorf("Velocity.Y = %v, want %v", ball.Velocity.Y(), 2-15*dt)
	}
}

func TestBall_Update_GravityEveryAirborneFrame(t *testing.T) {
	ball := newTestBall(t)
	ball.Position = physics.Vector3{0, 20, 0}
	ball.Velocity = physics.Vector3{0, 5, 0}

	dt := 1.0 / 60.0
	for i := 0; i < 30; i++ {
		before := ball.Velocity.Y()
		ball.Update(dt)
		if math.Abs((before-ball.Velocity.Y())-15*dt) > epsilon {
			t.Fatalf("frame %d: y-velocity dropped by %v, want %v", i, before-ball.Velocity.Y(), 15*dt)
		}
	}
}

func TestBall_Update_WallBounces(t *testing.T) {
	tests := []struct {
		name        string
		position    physics.Vector3
		velocity    physics.Vector3
		expectedPos physics.Vector3
		expectedVel physics.Vector3
	}{
		{
			name:        "right_wall",
			position:    physics.Vector3{37.3, 10, 0},
			velocity:    physics.Vector3{20, 0, 0},
			expectedPos: physics.Vector3{37.3, 10, 0},
			expectedVel: physics.Vector3{-16, -0.15, 0},
		},
		{
			name:        "left_wall",
			position:    physics.Vector3{-37.3, 10, 0},
			velocity:    physics.Vector3{-20, 0, 0},
			expectedPos: physics.Vector3{-37.3, 10, 0},
			expectedVel: physics.Vector3{16, -0.15, 0},
		},
		{
			name:        "floor_no_gravity",
			position:    physics.Vector3{0, 2.7, 0},
			velocity:    physics.Vector3{3, -20, 4},
			expectedPos: physics.Vector3{0.03, 2.7, 0.04},
			expectedVel: physics.Vector3{2.4, 16, 3.2},
		},
		{
			name:        "ceiling_no_gravity",
			position:    physics.Vector3{0, 32.3, 0},
			velocity:    physics.Vector3{0, 20, 0},
			expectedPos: physics.Vector3{0, 32.3, 0},
			expectedVel: physics.Vector3{0, -16, 0},
		},
		{
			name:        "back_wall",
			position:    physics.Vector3{0, 20, 47.3},
			velocity:    physics.Vector3{0, 0, 30},
			expectedPos: physics.Vector3{0, 20, 47.3},
			expectedVel: physics.Vector3{0, -0.12, -24},
		},
		{
			name:        "floor_and_wall_corner",
			position:    physics.Vector3{-37.3, 2.7, 0},
			velocity:    physics.Vector3{-20, -20, 0},
			expectedPos: physics.Vector3{-37.3, 2.7, 0},
			expectedVel: physics.Vector3{12.8, 12.8, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ball := newTestBall(t)
			ball.Position = tt.position
			ball.Velocity = tt.velocity

			ball.Update(0.01)

			if !vecNear(ball.Position, tt.expectedPos, 1e-9) {
				t.Errorf("Position = %v, want %v", ball.Position, tt.expectedPos)
			}
			if !vecNear(ball.Velocity, tt.expectedVel, 1e-9) {
				t.Errorf("Velocity = %v, want %v", ball.Velocity, tt.expectedVel)
			}
		})
	}
}

func TestBall_Update_BounceKeepsEightyPercent(t *testing.T) {
	ball := newTestBall(t)
	ball.Position = physics.Vector3{0, 2.7, 0}
	ball.Velocity = physics.Vector3{5, -30, -2}
	before := ball.Velocity

	ball.Update(0.01)

	if math.Abs(ball.Velocity.Len()-0.8*before.Len()) > epsilon {
		t.Errorf("speed after bounce = %v, want %v", ball.Velocity.Len(), 0.8*before.Len())
	}
	if ball.Velocity.Y() <= 0 {
		t.Errorf("normal component did not flip: %v", ball.Velocity)
	}
}

func TestBall_Update_ZeroDeltaTime(t *testing.T) {
	ball := newTestBall(t)
	ball.Position = physics.Vector3{1, 10, 1}
	ball.Velocity = physics.Vector3{4, 5, 6}

	ball.Update(0)

	if ball.Position != (physics.Vector3{1, 10, 1}) || ball.Velocity != (physics.Vector3{4, 5, 6}) {
		t.Errorf("zero step changed state: pos=%v vel=%v", ball.Position, ball.Velocity)
	}
}

func TestBall_UpdateShadow(t *testing.T) {
	ball := newTestBall(t)
	ball.Position = physics.Vector3{3, 12, -4}
	ball.UpdateShadow()

	expected := physics.Vector3{0, -11.99, 0}
	if !vecNear(ball.Shadow, expected, epsilon) {
		t.Errorf("Shadow = %v, want %v", ball.Shadow, expected)
	}
}

func TestBall_GetCollider(t *testing.T) {
	ball := newTestBall(t)
	collider := ball.GetCollider()
	if collider.Center != ball.Position || collider.Radius != 2.6 {
		t.Errorf("GetCollider() = %+v", collider)
	}
}
