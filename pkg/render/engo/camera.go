// pkg/render/engo/camera.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-carsoccer/pkg/physics"
)

// CameraSystem projects the pitch top-down onto the window: world x runs right,
// world z runs down. At zoom 1 the whole arena fits the viewport with a margin.
// With a target set the view pans toward it; otherwise it stays centred.
type CameraSystem struct {
	arena physics.Arena

	viewWidth  float32
	viewHeight float32
	margin     float32

	// Target to follow
	target    physics.Vector3
	targetSet bool

	zoom    float32
	minZoom float32
	maxZoom float32

	followSpeed float32
	smoothing   bool

	// world x/z at the centre of the view
	currentPos physics.Vector3
}

// NewCameraSystem creates a camera for arena on a width by height viewport
func NewCameraSystem(arena physics.Arena, width, height float32) *CameraSystem {
	return &CameraSystem{
		arena:       arena,
		viewWidth:   width,
		viewHeight:  height,
		margin:      24,
		zoom:        1.0,
		minZoom:     0.5,
		maxZoom:     4.0,
		followSpeed: 3.0,
		smoothing:   true,
		currentPos:  arenaCentre(arena),
	}
}

func arenaCentre(a physics.Arena) physics.Vector3 {
	return physics.Vector3{
		(a.Min.X() + a.Max.X()) / 2,
		0,
		(a.Min.Z() + a.Max.Z()) / 2,
	}
}

// Remove satisfies the ecs.System interface
func (cs *CameraSystem) Remove(basic ecs.BasicEntity) {}

// Update applies zoom input and pans toward the target
func (cs *CameraSystem) Update(dt float32) {
	cs.handleZoomInput()
	cs.step(dt)
}

func (cs *CameraSystem) handleZoomInput() {
	if engo.Input.Button(ButtonZoomIn).Down() {
		cs.SetZoom(cs.zoom * 1.02)
	}
	if engo.Input.Button(ButtonZoomOut).Down() {
		cs.SetZoom(cs.zoom * 0.98)
	}
	if engo.Input.Button(ButtonResetView).JustPressed() {
		cs.SetZoom(1.0)
		cs.ClearTarget()
	}
}

// step moves the view centre; without a target it drifts back to the arena centre
func (cs *CameraSystem) step(dt float32) {
	goal := arenaCentre(cs.arena)
	if cs.targetSet {
		goal = physics.Vector3{cs.target.X(), 0, cs.target.Z()}
	}

	if !cs.smoothing {
		cs.currentPos = goal
		return
	}

	t := float64(cs.followSpeed * dt)
	if t > 1 {
		t = 1
	}
	cs.currentPos = cs.currentPos.Add(goal.Sub(cs.currentPos).Mul(t))
}

// SetViewport updates the window size used for projection
func (cs *CameraSystem) SetViewport(width, height float32) {
	cs.viewWidth = width
	cs.viewHeight = height
}

// SetTarget makes the view follow a world position, usually the ball
func (cs *CameraSystem) SetTarget(target physics.Vector3) {
	cs.target = target
	cs.targetSet = true
}

// ClearTarget returns the view to the whole pitch
func (cs *CameraSystem) ClearTarget() {
	cs.targetSet = false
}

// SetZoom sets the zoom level, clamped to the limits
func (cs *CameraSystem) SetZoom(zoom float32) {
	cs.zoom = cs.clampZoom(zoom)
}

// GetZoom returns the current zoom level
func (cs *CameraSystem) GetZoom() float32 {
	return cs.zoom
}

func (cs *CameraSystem) clampZoom(zoom float32) float32 {
	if zoom < cs.minZoom {
		return cs.minZoom
	}
	if zoom > cs.maxZoom {
		return cs.maxZoom
	}
	return zoom
}

// EnableSmoothing switches between panning and snapping to the target
func (cs *CameraSystem) EnableSmoothing(enabled bool) {
	cs.smoothing = enabled
}

// PixelsPerMetre returns the current scale of the projection
func (cs *CameraSystem) PixelsPerMetre() float32 {
	spanX := float32(cs.arena.Max.X() - cs.arena.Min.X())
	spanZ := float32(cs.arena.Max.Z() - cs.arena.Min.Z())

	sx := (cs.viewWidth - 2*cs.margin) / spanX
	sz := (cs.viewHeight - 2*cs.margin) / spanZ
	scale := sx
	if sz < sx {
		scale = sz
	}
	if scale <= 0 {
		scale = 1
	}
	return scale * cs.zoom
}

// WorldToScreen projects a world position onto the window, ignoring height
func (cs *CameraSystem) WorldToScreen(pos physics.Vector3) engo.Point {
	ppm := cs.PixelsPerMetre()
	return engo.Point{
		X: float32(pos.X()-cs.currentPos.X())*ppm + cs.viewWidth/2,
		Y: float32(pos.Z()-cs.currentPos.Z())*ppm + cs.viewHeight/2,
	}
}

// ScreenToWorld maps a window point back onto the ground plane
func (cs *CameraSystem) ScreenToWorld(p engo.Point) physics.Vector3 {
	ppm := float64(cs.PixelsPerMetre())
	return physics.Vector3{
		float64(p.X-cs.viewWidth/2)/ppm + cs.currentPos.X(),
		0,
		float64(p.Y-cs.viewHeight/2)/ppm + cs.currentPos.Z(),
	}
}
