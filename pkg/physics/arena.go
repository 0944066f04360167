// pkg/physics/arena.go
package physics

// GoalSide identifies which goal aperture a point lies in
type GoalSide int

const (
	NoGoal GoalSide = iota
	AwayGoal
	HomeGoal
)

// String returns the lowercase side name used in logs and events
func (s GoalSide) String() string {
	switch s {
	case AwayGoal:
		return "away"
	case HomeGoal:
		return "home"
	default:
		return "none"
	}
}

// GoalZone describes the two goal apertures at either end of the arena.
// A point scores when |x| < HalfWidth, 0 < y < Height and |z| > LineZ.
type GoalZone struct {
	HalfWidth float64 `json:"halfWidth" yaml:"half_width"`
	Height    float64 `json:"height" yaml:"height"`
	LineZ     float64 `json:"lineZ" yaml:"line_z"`
}

// Arena holds the wall limits of the playing volume.
// Min and Max bound the ball centre; cars use only the x and z limits.
type Arena struct {
	Min  Vector3  `json:"min" yaml:"min"`
	Max  Vector3  `json:"max" yaml:"max"`
	Goal GoalZone `json:"goal" yaml:"goal"`
}

// DefaultArena returns the standard pitch: x ±37.4, y [2.6, 32.4], z ±47.4
func DefaultArena() Arena {
	return Arena{
		Min: Vector3{-37.4, 2.6, -47.4},
		Max: Vector3{37.4, 32.4, 47.4},
		Goal: GoalZone{
			HalfWidth: 12.6,
			Height:    12.6,
			LineZ:     46.5,
		},
	}
}

// WallNormal reports whether value lies beyond the walls on the given axis (0=x, 1=y, 2=z)
// and, if so, returns the inward-facing unit normal of the wall that was crossed.
func (a Arena) WallNormal(axis int, value float64) (Vector3, bool) {
	var n Vector3
	switch {
	case value < a.Min[axis]:
		n[axis] = 1
	case value > a.Max[axis]:
		n[axis] = -1
	default:
		return Vector3{}, false
	}
	return n, true
}

// ContainsXZ reports whether p lies within the x and z walls, boundaries included
func (a Arena) ContainsXZ(p Vector3) bool {
	return p.X() >= a.Min.X() && p.X() <= a.Max.X() &&
		p.Z() >= a.Min.Z() && p.Z() <= a.Max.Z()
}

// GoalAt returns the goal aperture containing p, or NoGoal
func (a Arena) GoalAt(p Vector3) GoalSide {
	g := a.Goal
	if p.X() <= -g.HalfWidth || p.X() >= g.HalfWidth {
		return NoGoal
	}
	if p.Y() <= 0 || p.Y() >= g.Height {
		return NoGoal
	}
	switch {
	case p.Z() < -g.LineZ:
		return AwayGoal
	case p.Z() > g.LineZ:
		return HomeGoal
	}
	return NoGoal
}
