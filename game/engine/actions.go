package engine

import "fmt"

// Action is one of the reduced player inputs. The reduced space maps onto the
// raw simulator action set, which has 15 combos of which only four matter for
// human play.
type Action int

const (
	ActionLeft Action = iota
	ActionForward
	ActionRight
	ActionThrow
)

// Raw simulator action values for the reduced space.
const (
	rawLeft    = 1
	rawForward = 4
	rawRight   = 7
	rawThrow   = 9
)

// Raw returns the underlying simulator action value.
func (a Action) Raw() int {
	switch a {
	case ActionLeft:
		return rawLeft
	case ActionRight:
		return rawRight
	case ActionThrow:
		return rawThrow
	default:
		return rawForward
	}
}

func (a Action) String() string {
	switch a {
	case ActionLeft:
		return "left"
	case ActionRight:
		return "right"
	case ActionThrow:
		return "throw"
	default:
		return "forward"
	}
}

// ParseAction resolves an action name or a browser key code to an Action.
// Both spellings arrive over the wire: the discrete mode sends action names,
// older clients send key codes.
func ParseAction(name string) (Action, error) {
	switch name {
	case "left", "ArrowLeft":
		return ActionLeft, nil
	case "right", "ArrowRight":
		return ActionRight, nil
	case "throw", "Space":
		return ActionThrow, nil
	case "forward", "ArrowUp":
		return ActionForward, nil
	}
	return ActionForward, fmt.Errorf("unknown action %q", name)
}
