// pkg/render/terminal.go
package render

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/opd-ai/go-carsoccer/pkg/entity"
	"github.com/opd-ai/go-carsoccer/pkg/physics"
)

// Glyphs used by the terminal view
const (
	glyphEmpty  = ' '
	glyphGoal   = '='
	glyphBall   = 'o'
	glyphLofted = 'O'
)

// loftHeight is the shadow depth beyond which the ball is drawn as lofted
const loftHeight = 8.0

// TerminalRenderer draws a top-down ASCII view of the pitch: x across, z down.
// The car is drawn as an arrow pointing along its heading.
type TerminalRenderer struct {
	out    *bufio.Writer
	width  int
	height int
	arena  physics.Arena

	buffer [][]rune
	status []string

	// ClearScreen emits an ANSI clear before every frame
	ClearScreen bool
}

// NewTerminalRenderer creates a width by height cell view of arena written to out
func NewTerminalRenderer(out io.Writer, width, height int, arena physics.Arena) *TerminalRenderer {
	if width < 3 {
		width = 3
	}
	if height < 3 {
		height = 3
	}
	buffer := make([][]rune, height)
	for i := range buffer {
		buffer[i] = make([]rune, width)
	}

	return &TerminalRenderer{
		out:    bufio.NewWriter(out),
		width:  width,
		height: height,
		arena:  arena,
		buffer: buffer,
	}
}

// worldToScreen maps a world x/z position to a cell. ok is false off the pitch.
func (r *TerminalRenderer) worldToScreen(pos physics.Vector3) (col, row int, ok bool) {
	spanX := r.arena.Max.X() - r.arena.Min.X()
	spanZ := r.arena.Max.Z() - r.arena.Min.Z()

	fx := (pos.X() - r.arena.Min.X()) / spanX
	fz := (pos.Z() - r.arena.Min.Z()) / spanZ
	if !(fx >= 0 && fx <= 1 && fz >= 0 && fz <= 1) {
		return 0, 0, false
	}

	// fx and fz are in [0, 1]; the far walls land in the last cell
	col = min(int(math.Floor(fx*float64(r.width))), r.width-1)
	row = min(int(math.Floor(fz*float64(r.height))), r.height-1)
	return col, row, true
}

func (r *TerminalRenderer) plot(pos physics.Vector3, glyph rune) {
	if col, row, ok := r.worldToScreen(pos); ok {
		r.buffer[row][col] = glyph
	}
}

// Clear implements entity.Renderer
func (r *TerminalRenderer) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = glyphEmpty
		}
	}
	r.status = r.status[:0]
}

// goalColumns returns the cell range spanned by the goal mouths
func (r *TerminalRenderer) goalColumns() (int, int) {
	half := r.arena.Goal.HalfWidth
	left, _, _ := r.worldToScreen(physics.Vector3{-half, 0, r.arena.Min.Z()})
	right, _, _ := r.worldToScreen(physics.Vector3{half, 0, r.arena.Min.Z()})
	return left, right
}

// Present implements entity.Renderer. Write errors are dropped; the next frame retries.
func (r *TerminalRenderer) Present() {
	if r.ClearScreen {
		r.out.WriteString("\033[H\033[2J")
	}

	left, right := r.goalColumns()
	border := func() {
		var b strings.Builder
		b.WriteByte('+')
		for x := 0; x < r.width; x++ {
			if x >= left && x <= right {
				b.WriteRune(glyphGoal)
			} else {
				b.WriteByte('-')
			}
		}
		b.WriteString("+\n")
		r.out.WriteString(b.String())
	}

	border()
	for y := range r.buffer {
		r.out.WriteByte('|')
		r.out.WriteString(string(r.buffer[y]))
		r.out.WriteString("|\n")
	}
	border()

	for _, line := range r.status {
		r.out.WriteString(line)
		r.out.WriteByte('\n')
	}
	r.out.Flush()
}

// RenderBall implements entity.Renderer. Height comes from the shadow offset, so it
// lags by one frame if UpdateShadow has not run.
func (r *TerminalRenderer) RenderBall(ball *entity.Ball) {
	if ball == nil {
		return
	}
	height := -ball.Shadow.Y()
	glyph := glyphBall
	if height > loftHeight {
		glyph = glyphLofted
	}
	r.plot(ball.Position, glyph)
	r.status = append(r.status, fmt.Sprintf("ball x=%6.1f h=%5.1f z=%6.1f  |v|=%5.1f",
		ball.Position.X(), height, ball.Position.Z(), ball.Speed()))
}

// RenderCar implements entity.Renderer
func (r *TerminalRenderer) RenderCar(car *entity.Car) {
	if car == nil {
		return
	}
	r.plot(car.Position, headingGlyph(car.Forward()))
	r.status = append(r.status, fmt.Sprintf("car  x=%6.1f z=%6.1f  yaw=%5.2f  v=%6.1f",
		car.Position.X(), car.Position.Z(), car.Rotation, car.Velocity.Z()))
}

// headingGlyph picks the arrow closest to a horizontal direction. Screen rows grow with z.
func headingGlyph(forward physics.Vector3) rune {
	if math.Abs(forward.X()) > math.Abs(forward.Z()) {
		if forward.X() > 0 {
			return '>'
		}
		return '<'
	}
	if forward.Z() > 0 {
		return 'v'
	}
	return '^'
}
