// pkg/render/engo/renderer.go
package engo

import (
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-carsoccer/pkg/entity"
)

// Draw order, back to front
const (
	zPitch  = 0
	zShadow = 1
	zCar    = 2
	zBall   = 3
)

// loftScale is how much larger the ball sprite grows at the ceiling.
// It is the only cue for height in the top-down view.
const loftScale = 0.6

// sprite is one drawable ECS entity
type sprite struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

func newSprite(z float32) *sprite {
	s := &sprite{BasicEntity: ecs.NewBasic()}
	s.RenderComponent.SetZIndex(z)
	return s
}

// EngoRenderer implements entity.Renderer by moving three sprites (car, ball and
// ball shadow) over a static pitch sprite.
type EngoRenderer struct {
	camera *CameraSystem

	pitch  *sprite
	shadow *sprite
	car    *sprite
	ball   *sprite

	attached     bool
	renderSystem *common.RenderSystem
}

// NewEngoRenderer creates a renderer projecting through camera. Sprites are not
// drawn until Attach.
func NewEngoRenderer(camera *CameraSystem) *EngoRenderer {
	return &EngoRenderer{
		camera: camera,
		pitch:  newSprite(zPitch),
		shadow: newSprite(zShadow),
		car:    newSprite(zCar),
		ball:   newSprite(zBall),
	}
}

// Attach assigns textures and registers the sprites with the render system
func (r *EngoRenderer) Attach(rs *common.RenderSystem, assets *AssetManager) {
	r.pitch.Drawable = assets.Sprite(SpritePitch)
	r.shadow.Drawable = assets.Sprite(SpriteShadow)
	r.car.Drawable = assets.Sprite(SpriteCar)
	r.ball.Drawable = assets.Sprite(SpriteBall)

	for _, s := range []*sprite{r.pitch, r.shadow, r.car, r.ball} {
		rs.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
	}
	r.renderSystem = rs
	r.attached = true
}

// Detach removes the sprites from the render system
func (r *EngoRenderer) Detach() {
	if !r.attached {
		return
	}
	for _, s := range []*sprite{r.pitch, r.shadow, r.car, r.ball} {
		r.renderSystem.Remove(s.BasicEntity)
	}
	r.attached = false
}

// Clear implements entity.Renderer. The pitch follows the camera every frame.
func (r *EngoRenderer) Clear() {
	a := r.camera.arena
	topLeft := r.camera.WorldToScreen(a.Min)
	ppm := r.camera.PixelsPerMetre()

	r.pitch.Position = topLeft
	r.pitch.Width = float32(a.Max.X()-a.Min.X()) * ppm
	r.pitch.Height = float32(a.Max.Z()-a.Min.Z()) * ppm
}

// Present implements entity.Renderer. The engo render system draws on its own.
func (r *EngoRenderer) Present() {}

// RenderBall implements entity.Renderer. The shadow sits on the ground below the
// ball; the ball sprite grows with height.
func (r *EngoRenderer) RenderBall(ball *entity.Ball) {
	ppm := r.camera.PixelsPerMetre()
	diameter := float32(2*ball.Radius) * ppm

	shadowPos := r.camera.WorldToScreen(ball.Position.Add(ball.Shadow))
	r.shadow.Width, r.shadow.Height = diameter, diameter
	r.shadow.SetCenter(shadowPos)

	ceiling := r.camera.arena.Max.Y()
	height := -ball.Shadow.Y()
	scale := float32(1)
	if ceiling > 0 {
		scale += loftScale * float32(math.Max(0, math.Min(height/ceiling, 1)))
	}
	r.ball.Width, r.ball.Height = diameter*scale, diameter*scale
	r.ball.SetCenter(r.camera.WorldToScreen(ball.Position))
}

// RenderCar implements entity.Renderer. The sprite front points down the screen at
// yaw 0, so the screen rotation is the negated yaw in degrees.
func (r *EngoRenderer) RenderCar(car *entity.Car) {
	ppm := r.camera.PixelsPerMetre()
	r.car.Width = float32(car.Size.X()) * ppm
	r.car.Height = float32(car.Size.Z()) * ppm
	r.car.Rotation = carScreenRotation(car.Rotation)
	r.car.SetCenter(r.camera.WorldToScreen(car.Position))
}

func carScreenRotation(yaw float64) float32 {
	deg := -yaw * 180 / math.Pi
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return float32(deg)
}

// BallCenter and CarCenter report where the sprites were last placed
func (r *EngoRenderer) BallCenter() engo.Point { return r.ball.Center() }

func (r *EngoRenderer) CarCenter() engo.Point { return r.car.Center() }
