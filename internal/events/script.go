package events

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/myorg/tempo/internal/config"
)

// Script is the YAML document holding control events.
type Script struct {
	Events []EventYAML `yaml:"events"`
}

// EventYAML is an event as written in a script. Value holds a number for
// numeric actions and a boolean for flag actions.
type EventYAML struct {
	At     config.Duration `yaml:"at"`
	Action string          `yaml:"action"`
	Value  yaml.Node       `yaml:"value,omitempty"`
}

// ParseScript parses control events from YAML data, in file order.
func ParseScript(data []byte) ([]*Event, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	events := make([]*Event, 0, len(script.Events))
	for i := range script.Events {
		ev, err := script.Events[i].toEvent()
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// ParseFile parses control events from a YAML file.
func ParseFile(path string) ([]*Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseScript(data)
}

func (ey *EventYAML) toEvent() (*Event, error) {
	action, err := ParseAction(ey.Action)
	if err != nil {
		return nil, err
	}

	ev := &Event{
		At:     ey.At.Std(),
		Action: action,
		Line:   ey.Value.Line,
	}

	hasValue := ey.Value.Kind != 0
	switch actionKinds[action] {
	case valueNumber:
		if !hasValue {
			return nil, fmt.Errorf("%w: %s requires a value", ErrInvalidEvent, action)
		}
		if err := ey.Value.Decode(&ev.Number); err != nil {
			return nil, fmt.Errorf("%w: %s value %q is not a number", ErrInvalidEvent, action, ey.Value.Value)
		}
	case valueFlag:
		// A bare flag action turns the flag on.
		ev.Flag = true
		if hasValue {
			if err := ey.Value.Decode(&ev.Flag); err != nil {
				return nil, fmt.Errorf("%w: %s value %q is not a boolean", ErrInvalidEvent, action, ey.Value.Value)
			}
		}
	default:
		if hasValue {
			return nil, fmt.Errorf("%w: %s takes no value", ErrInvalidEvent, action)
		}
	}

	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}

// MarshalScript renders events as a YAML script.
func MarshalScript(events []*Event) ([]byte, error) {
	script := Script{Events: make([]EventYAML, len(events))}
	for i, ev := range events {
		ey := EventYAML{At: config.Duration(ev.At), Action: string(ev.Action)}
		switch actionKinds[ev.Action] {
		case valueNumber:
			ey.Value = scalar(formatNumber(ev.Number))
		case valueFlag:
			ey.Value = scalar(strconv.FormatBool(ev.Flag))
		}
		script.Events[i] = ey
	}
	return yaml.Marshal(&script)
}

func scalar(value string) yaml.Node {
	return yaml.Node{Kind: yaml.ScalarNode, Value: value}
}

func formatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return ".inf"
	case math.IsInf(v, -1):
		return "-.inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ExampleYAML returns an example script for documentation.
func ExampleYAML() string {
	return `events:
  - at: 500ms
    action: speed
    value: 2

  - at: 1s
    action: pause

  - at: 1500ms
    action: resume

  - at: 2s
    action: pingpong
    value: true

  - at: 2s
    action: iterations
    value: 4

  - at: 3s
    action: goto
    value: 0.25
`
}
