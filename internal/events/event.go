package events

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidEvent is returned for events that cannot be applied to a
// controller.
var ErrInvalidEvent = errors.New("invalid event")

// Action names a controller mutation.
type Action string

// Supported actions.
const (
	ActionSpeed         Action = "speed"
	ActionGoTo          Action = "goto"
	ActionGoToBeginning Action = "goto_beginning"
	ActionGoToEnd       Action = "goto_end"
	ActionIterations    Action = "iterations"
	ActionPersist       Action = "persist"
	ActionPingpong      Action = "pingpong"
	ActionPongping      Action = "pongping"
	ActionPause         Action = "pause"
	ActionResume        Action = "resume"
)

// valueKind tells which value field an action reads.
type valueKind int

const (
	valueNone valueKind = iota
	valueNumber
	valueFlag
)

var actionKinds = map[Action]valueKind{
	ActionSpeed:         valueNumber,
	ActionGoTo:          valueNumber,
	ActionGoToBeginning: valueNone,
	ActionGoToEnd:       valueNone,
	ActionIterations:    valueNumber,
	ActionPersist:       valueFlag,
	ActionPingpong:      valueFlag,
	ActionPongping:      valueFlag,
	ActionPause:         valueNone,
	ActionResume:        valueNone,
}

// ParseAction parses an action name, case-insensitively.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := actionKinds[a]; !ok {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidEvent, s)
	}
	return a, nil
}

// Event is a control action scheduled at an offset of the external clock
// from the start of the run.
type Event struct {
	At     time.Duration `json:"at"`
	Action Action        `json:"action"`
	Number float64       `json:"number,omitempty"`
	Flag   bool          `json:"flag,omitempty"`

	// Line is the script line of the event value, 0 when unknown.
	Line int `json:"-"`
}

// Validate checks that the event can be applied.
func (e *Event) Validate() error {
	kind, ok := actionKinds[e.Action]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidEvent, e.Action)
	}
	if e.At < 0 {
		return fmt.Errorf("%w: %s at %v: offset cannot be negative", ErrInvalidEvent, e.Action, e.At)
	}
	if kind != valueNumber {
		return nil
	}
	if math.IsNaN(e.Number) {
		return fmt.Errorf("%w: %s requires a numeric value", ErrInvalidEvent, e.Action)
	}
	switch e.Action {
	case ActionSpeed, ActionGoTo:
		if math.IsInf(e.Number, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidEvent, e.Action, e.Number)
		}
	case ActionIterations:
		if e.Number < 1 {
			return fmt.Errorf("%w: iterations must be >= 1, got %v", ErrInvalidEvent, e.Number)
		}
	}
	return nil
}

// String returns a short description such as "2.5s speed=-1".
func (e *Event) String() string {
	switch actionKinds[e.Action] {
	case valueNumber:
		return fmt.Sprintf("%v %s=%g", e.At, e.Action, e.Number)
	case valueFlag:
		return fmt.Sprintf("%v %s=%t", e.At, e.Action, e.Flag)
	default:
		return fmt.Sprintf("%v %s", e.At, e.Action)
	}
}
