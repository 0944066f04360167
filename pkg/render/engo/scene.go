// pkg/render/engo/scene.go
package engo

import (
	"context"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-carsoccer/pkg/engine"
	"github.com/opd-ai/go-carsoccer/pkg/event"
	"github.com/opd-ai/go-carsoccer/pkg/logging"
	"github.com/opd-ai/go-carsoccer/pkg/physics"
)

// pitchResolution is the pixels per metre of the generated pitch texture
const pitchResolution = 8

// MatchSystem steps the runner once per engo frame and redraws the match
type MatchSystem struct {
	runner   *engine.Runner
	renderer *EngoRenderer
	camera   *CameraSystem
	hud      *HUD
	logger   *logging.Logger

	follow bool
}

// Remove satisfies the ecs.System interface
func (ms *MatchSystem) Remove(basic ecs.BasicEntity) {}

// Update advances the match by dt and pushes the new state to the sprites and HUD
func (ms *MatchSystem) Update(dt float32) {
	if engo.Input.Button(ButtonFollow).JustPressed() {
		ms.follow = !ms.follow
		if !ms.follow {
			ms.camera.ClearTarget()
		}
	}

	if err := ms.runner.Step(float64(dt)); err != nil {
		ms.logger.Warn(context.Background(), "frame rejected", "error", err)
	}

	var state *engine.MatchState
	ms.runner.WithMatch(func(m *engine.Match) {
		m.Render(ms.renderer)
		state = m.Snapshot()
	})

	if ms.follow {
		ms.camera.SetTarget(state.Ball.Position)
	}
	ms.hud.Show(state)
}

// MatchScene is the engo scene of the local client: one window, one car, one ball
type MatchScene struct {
	runner *engine.Runner
	bus    *event.Bus
	arena  physics.Arena
	logger *logging.Logger

	width, height float32

	camera   *CameraSystem
	renderer *EngoRenderer
	assets   *AssetManager
	tally    *Tally
	hud      *HUD
}

// NewMatchScene creates the scene for a runner whose match publishes on bus
func NewMatchScene(runner *engine.Runner, bus *event.Bus, arena physics.Arena, width, height int, logger *logging.Logger) *MatchScene {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &MatchScene{
		runner: runner,
		bus:    bus,
		arena:  arena,
		logger: logger.WithComponent("scene"),
		width:  float32(width),
		height: float32(height),
	}
}

// Type returns the scene type
func (scene *MatchScene) Type() string {
	return "CarSoccer"
}

// Preload registers the HUD font
func (scene *MatchScene) Preload() {
	if err := PreloadFont(); err != nil {
		scene.logger.Error(context.Background(), "failed to preload font", err)
	}
}

// Setup builds the world: render system, camera, sprites, input and match systems
func (scene *MatchScene) Setup(u engo.Updater) {
	world, ok := u.(*ecs.World)
	if !ok {
		scene.logger.Error(context.Background(), "unexpected updater", nil)
		return
	}
	common.SetBackground(colorScreen)
	SetupInputBindings()

	renderSystem := &common.RenderSystem{}
	world.AddSystem(renderSystem)

	scene.camera = NewCameraSystem(scene.arena, scene.width, scene.height)
	world.AddSystem(scene.camera)

	scene.assets = NewAssetManager()
	if err := scene.assets.LoadAssets(scene.arena, pitchResolution); err != nil {
		scene.logger.Error(context.Background(), "failed to load assets", err)
	}

	scene.renderer = NewEngoRenderer(scene.camera)
	scene.renderer.Attach(renderSystem, scene.assets)

	scene.tally = NewTally()
	scene.tally.Attach(scene.bus)
	scene.hud = NewHUD(scene.tally)
	if err := scene.hud.Attach(renderSystem); err != nil {
		scene.logger.Error(context.Background(), "hud disabled", err)
	}

	world.AddSystem(NewInputSystem(scene.runner))
	world.AddSystem(&MatchSystem{
		runner:   scene.runner,
		renderer: scene.renderer,
		camera:   scene.camera,
		hud:      scene.hud,
		logger:   scene.logger,
	})

	scene.logger.Info(context.Background(), "scene ready",
		"width", scene.width, "height", scene.height)
}

// Exit releases the bus subscriptions and sprites
func (scene *MatchScene) Exit() {
	if scene.tally != nil {
		scene.tally.Detach()
	}
	if scene.renderer != nil {
		scene.renderer.Detach()
	}
	scene.logger.Info(context.Background(), "scene exited")
}
