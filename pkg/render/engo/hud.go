// pkg/render/engo/hud.go
package engo

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/opd-ai/go-carsoccer/pkg/engine"
	"github.com/opd-ai/go-carsoccer/pkg/event"
	"github.com/opd-ai/go-carsoccer/pkg/physics"
)

const (
	hudFontURL     = "goregular.ttf"
	hudFontSize    = 16
	goalBannerTime = 2 * time.Second
)

// Tally counts match events for the HUD. Goals are tallied here only;
// the match itself keeps no score.
type Tally struct {
	mu       sync.Mutex
	goals    map[physics.GoalSide]int
	strikes  int
	lastGoal physics.GoalSide
	goalAt   time.Time
	subs     []*event.Subscription
	now      func() time.Time
}

// NewTally creates an empty tally
func NewTally() *Tally {
	return &Tally{
		goals: make(map[physics.GoalSide]int),
		now:   time.Now,
	}
}

// Attach subscribes the tally to goal and strike events
func (t *Tally) Attach(bus *event.Bus) {
	t.subs = append(t.subs,
		bus.Subscribe(event.GoalScored, func(e event.Event) {
			ge, ok := e.(*event.GoalEvent)
			if !ok {
				return
			}
			t.mu.Lock()
			t.goals[ge.Side]++
			t.lastGoal = ge.Side
			t.goalAt = t.now()
			t.mu.Unlock()
		}),
		bus.Subscribe(event.BallStruck, func(event.Event) {
			t.mu.Lock()
			t.strikes++
			t.mu.Unlock()
		}),
	)
}

// Detach cancels the subscriptions
func (t *Tally) Detach() {
	for _, s := range t.subs {
		s.Cancel()
	}
	t.subs = nil
}

// Text formats the HUD lines for a snapshot
func (t *Tally) Text(state *engine.MatchState) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	text := fmt.Sprintf("home %d : %d away   strikes %d\nspeed %5.1f   ball height %4.1f",
		t.goals[physics.HomeGoal], t.goals[physics.AwayGoal], t.strikes,
		state.Car.Speed, -state.Ball.Shadow.Y())

	if t.lastGoal != physics.NoGoal && t.now().Sub(t.goalAt) < goalBannerTime {
		text += fmt.Sprintf("\nGOAL! (%s)", t.lastGoal)
	}
	return text
}

// HUD draws the tally text in the top-left corner
type HUD struct {
	tally *Tally
	font  *common.Font

	text  sprite
	shown string
}

// NewHUD creates a HUD over tally
func NewHUD(tally *Tally) *HUD {
	return &HUD{tally: tally}
}

// PreloadFont registers the embedded Go font with engo's file loader
func PreloadFont() error {
	return engo.Files.LoadReaderData(hudFontURL, bytes.NewReader(goregular.TTF))
}

// Attach creates the font and registers the text sprite. It must run on the GL thread.
func (hud *HUD) Attach(rs *common.RenderSystem) error {
	hud.font = &common.Font{
		URL:  hudFontURL,
		FG:   color.White,
		Size: hudFontSize,
	}
	if err := hud.font.CreatePreloaded(); err != nil {
		return fmt.Errorf("hud font: %w", err)
	}

	hud.text = sprite{BasicEntity: ecs.NewBasic()}
	hud.text.SetZIndex(10)
	hud.text.SetShader(common.HUDShader)
	hud.text.Position = engo.Point{X: 10, Y: 10}
	rs.Add(&hud.text.BasicEntity, &hud.text.RenderComponent, &hud.text.SpaceComponent)
	return nil
}

// Show rebuilds the text texture when the HUD text changes
func (hud *HUD) Show(state *engine.MatchState) {
	if hud.font == nil || state == nil {
		return
	}
	text := hud.tally.Text(state)
	if text == hud.shown {
		return
	}
	hud.shown = text
	hud.text.Drawable = common.Text{Font: hud.font, Text: text, LineSpacing: 0.3}
}
