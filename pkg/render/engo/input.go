// pkg/render/engo/input.go
package engo

import (
	"sort"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
)

// Camera buttons
const (
	ButtonZoomIn    = "zoomIn"
	ButtonZoomOut   = "zoomOut"
	ButtonResetView = "resetView"
	ButtonFollow    = "follow"
)

// keyBindings maps each match key name to its engo key. Every key gets its own
// button so that releasing w does not clear a throttle held by ArrowUp.
var keyBindings = map[string]engo.Key{
	"w":          engo.KeyW,
	"ArrowUp":    engo.KeyArrowUp,
	"s":          engo.KeyS,
	"ArrowDown":  engo.KeyArrowDown,
	"a":          engo.KeyA,
	"ArrowLeft":  engo.KeyArrowLeft,
	"d":          engo.KeyD,
	"ArrowRight": engo.KeyArrowRight,
	" ":          engo.KeySpace,
}

// KeySink receives key events. engine.Runner and engine.Match both satisfy it.
type KeySink interface {
	KeyDown(key string) bool
	KeyUp(key string) bool
}

// buttonEdges reports whether a button went down or up since the last frame
type buttonEdges func(name string) (pressed, released bool)

func engoButtonEdges(name string) (bool, bool) {
	b := engo.Input.Button(name)
	return b.JustPressed(), b.JustReleased()
}

// InputSystem turns key edges into KeyDown and KeyUp calls on its sink
type InputSystem struct {
	sink  KeySink
	edges buttonEdges
	keys  []string
}

// NewInputSystem creates an input system feeding sink
func NewInputSystem(sink KeySink) *InputSystem {
	keys := make([]string, 0, len(keyBindings))
	for k := range keyBindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return &InputSystem{
		sink:  sink,
		edges: engoButtonEdges,
		keys:  keys,
	}
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(basic ecs.BasicEntity) {}

// Update forwards this frame's key edges. Releases go first so that a key
// tapped and swapped within one frame leaves the new key held.
func (is *InputSystem) Update(dt float32) {
	pressed := make([]string, 0, 2)
	for _, key := range is.keys {
		down, up := is.edges(key)
		if up {
			is.sink.KeyUp(key)
		}
		if down {
			pressed = append(pressed, key)
		}
	}
	for _, key := range pressed {
		is.sink.KeyDown(key)
	}
}

// SetupInputBindings registers the driving keys and the camera controls
func SetupInputBindings() {
	for name, key := range keyBindings {
		engo.Input.RegisterButton(name, key)
	}
	engo.Input.RegisterButton(ButtonZoomIn, engo.KeyE)
	engo.Input.RegisterButton(ButtonZoomOut, engo.KeyQ)
	engo.Input.RegisterButton(ButtonResetView, engo.KeyR)
	engo.Input.RegisterButton(ButtonFollow, engo.KeyF)
}
