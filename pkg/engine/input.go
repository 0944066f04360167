// pkg/engine/input.go
package engine

// Action is what a key does to the match
type Action int

const (
	ActionNone Action = iota
	ActionThrottle
	ActionReverse
	ActionTurnLeft
	ActionTurnRight
	ActionReset
)

var actionNames = map[Action]string{
	ActionNone:      "none",
	ActionThrottle:  "throttle",
	ActionReverse:   "reverse",
	ActionTurnLeft:  "turn_left",
	ActionTurnRight: "turn_right",
	ActionReset:     "reset",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// keyBindings maps browser-style key names to actions.
var keyBindings = map[string]Action{
	"w":          ActionThrottle,
	"ArrowUp":    ActionThrottle,
	"s":          ActionReverse,
	"ArrowDown":  ActionReverse,
	"a":          ActionTurnLeft,
	"ArrowLeft":  ActionTurnLeft,
	"d":          ActionTurnRight,
	"ArrowRight": ActionTurnRight,
	" ":          ActionReset,
	"Space":      ActionReset,
}

// ParseKey returns the action bound to a key name, or ActionNone for unbound keys
func ParseKey(key string) Action {
	return keyBindings[key]
}

// IsBoundKey reports whether the key drives any action
func IsBoundKey(key string) bool {
	_, ok := keyBindings[key]
	return ok
}

// InputVector holds the current turn (X) and throttle (Y) axes, each -1, 0 or 1
type InputVector struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Press applies an action's key-down to the axes. Reset has no axis.
func (in *InputVector) Press(a Action) {
	switch a {
	case ActionThrottle:
		in.Y = 1
	case ActionReverse:
		in.Y = -1
	case ActionTurnLeft:
		in.X = -1
	case ActionTurnRight:
		in.X = 1
	}
}

// Release clears an axis, but only if it still holds the value this action set.
// Releasing w while s is held keeps the car reversing.
func (in *InputVector) Release(a Action) {
	switch {
	case a == ActionThrottle && in.Y == 1:
		in.Y = 0
	case a == ActionReverse && in.Y == -1:
		in.Y = 0
	case a == ActionTurnLeft && in.X == -1:
		in.X = 0
	case a == ActionTurnRight && in.X == 1:
		in.X = 0
	}
}

// Idle reports whether no axis is held
func (in InputVector) Idle() bool {
	return in.X == 0 && in.Y == 0
}
