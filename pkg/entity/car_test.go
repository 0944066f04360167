// pkg/entity/car_test.go
package entity

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/opd-ai/go-carsoccer/pkg/physics"
)

func newTestCar(t *testing.T) *Car {
	t.Helper()
	car, err := NewCar(physics.Vector3{0, 1, 45}, physics.Vector3{4, 4, 5}, 4, physics.DefaultArena())
	if err != nil {
		t.Fatalf("NewCar() failed: %v", err)
	}
	return car
}

func TestNewCar_InvalidRadius(t *testing.T) {
	_, err := NewCar(physics.Vector3{}, physics.Vector3{4, 4, 5}, 0, physics.DefaultArena())
	if !errors.Is(err, ErrInvalidRadius) {
		t.Errorf("NewCar() error = %v, want ErrInvalidRadius", err)
	}
}

func TestCar_Reset(t *testing.T) {
	car := newTestCar(t)
	car.Position = physics.Vector3{10, 1, 10}
	car.Rotation = 1.2
	car.Velocity = physics.Vector3{0, 0, -30}

	car.Reset()
	car.Reset()

	if car.Position != car.InitialPosition {
		t.Errorf("Position = %v, want %v", car.Position, car.InitialPosition)
	}
	if car.Rotation != 0 {
		t.Errorf("Rotation = %v, want 0", car.Rotation)
	}
	if car.Velocity != (physics.Vector3{}) {
		t.Errorf("Velocity = %v, want zero", car.Velocity)
	}
}

func TestCar_Update(t *testing.T) {
	tests := []struct {
		name     string
		rotation float64
		speed    float64
		expected physics.Vector3
	}{
		{"drive_forward", 0, -20, physics.Vector3{0, 1, -0.2}},
		{"reverse", 0, 10, physics.Vector3{0, 1, 0.1}},
		{"turned_quarter", math.Pi / 2, -20, physics.Vector3{-0.2, 1, 0}},
		{"stationary", 0.7, 0, physics.Vector3{0, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			car := newTestCar(t)
			car.Position = physics.Vector3{0, 1, 0}
			car.Rotation = tt.rotation
			car.Velocity = physics.Vector3{0, 0, tt.speed}

			car.Update(0.01)

			if !vecNear(car.Position, tt.expected, epsilon) {
				t.Errorf("Position = %v, want %v", car.Position, tt.expected)
			}
		})
	}
}

func TestCar_Update_StopsAtBoundary(t *testing.T) {
	car := newTestCar(t)
	car.Position = physics.Vector3{0, 1, 47.3}
	car.Velocity = physics.Vector3{0, 0, 40}

	car.Update(0.01)

	if car.Position != (physics.Vector3{0, 1, 47.3}) {
		t.Errorf("Position = %v, want step discarded", car.Position)
	}
	if car.Velocity.Z() != 40 {
		t.Errorf("Velocity changed at boundary: %v", car.Velocity)
	}
}

func TestCar_Update_NeverLeavesArena(t *testing.T) {
	arena := physics.DefaultArena()
	rng := rand.New(rand.NewPCG(7, 11))
	car := newTestCar(t)

	for i := 0; i < 2000; i++ {
		car.Position = physics.Vector3{
			arena.Min.X() + rng.Float64()*(arena.Max.X()-arena.Min.X()),
			1,
			arena.Min.Z() + rng.Float64()*(arena.Max.Z()-arena.Min.Z()),
		}
		car.Rotation = rng.Float64() * 2 * math.Pi
		car.Velocity = physics.Vector3{0, 0, (rng.Float64()*2 - 1) * 80}

		car.Update(rng.Float64() * 0.5)

		if !arena.ContainsXZ(car.Position) {
			t.Fatalf("car left the arena: %v", car.Position)
		}
	}
}

func TestCar_Rotate(t *testing.T) {
	car := newTestCar(t)
	car.Rotate(math.Pi / 2)
	if !vecNear(car.Forward(), physics.Vector3{1, 0, 0}, epsilon) {
		t.Errorf("Forward() = %v after quarter turn", car.Forward())
	}

	car.Rotate(3 * math.Pi)
	if car.Rotation < -math.Pi || car.Rotation > math.Pi {
		t.Errorf("Rotation %v not wrapped", car.Rotation)
	}
	if !vecNear(car.Forward(), physics.Vector3{-1, 0, 0}, 1e-9) {
		t.Errorf("Forward() = %v after wrapping", car.Forward())
	}
}

func TestEntities_Render(t *testing.T) {
	ball := newTestBall(t)
	car := newTestCar(t)
	r := &recordingRenderer{}

	var entities []Entity = []Entity{ball, car}
	for _, e := range entities {
		e.Render(r)
	}

	if r.ball != ball || r.car != car {
		t.Errorf("Render did not dispatch to the renderer")
	}
}

type recordingRenderer struct {
	ball *Ball
	car  *Car
}

func (r *recordingRenderer) RenderBall(b *Ball) { r.ball = b }
func (r *recordingRenderer) RenderCar(c *Car)   { r.car = c }
func (r *recordingRenderer) Clear()             {}
func (r *recordingRenderer) Present()           {}
