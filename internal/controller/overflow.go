package controller

import (
	"fmt"
	"strconv"
)

// Overflow is the signal a Playable returns from DoUpdate. It is either empty
// (the local time is inside the playable's bounds) or carries the signed amount
// by which local time ran past the end (positive) or through the start (zero or
// negative).
type Overflow struct {
	value float64
	set   bool
}

// NoOverflow returns the empty overflow signal.
func NoOverflow() Overflow {
	return Overflow{}
}

// OverflowOf returns an overflow signal carrying v.
func OverflowOf(v float64) Overflow {
	return Overflow{value: v, set: true}
}

// Value returns the overflow amount and whether one was signalled.
func (o Overflow) Value() (float64, bool) {
	return o.value, o.set
}

// IsSet reports whether the playable signalled an overflow.
func (o Overflow) IsSet() bool {
	return o.set
}

// Forward reports whether the overflow was caused by time running past the end.
func (o Overflow) Forward() bool {
	return o.set && o.value > 0
}

// String returns "none" for an empty signal, the amount otherwise.
func (o Overflow) String() string {
	if !o.set {
		return "none"
	}
	return strconv.FormatFloat(o.value, 'g', -1, 64)
}

// ParseOverflow parses the String form of an overflow.
func ParseOverflow(s string) (Overflow, error) {
	if s == "" || s == "none" {
		return NoOverflow(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Overflow{}, fmt.Errorf("invalid overflow %q: %w", s, err)
	}
	return OverflowOf(v), nil
}

// MarshalText implements encoding.TextMarshaler.
func (o Overflow) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Overflow) UnmarshalText(text []byte) error {
	v, err := ParseOverflow(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// GoString implements fmt.GoStringer for readable test failures.
func (o Overflow) GoString() string {
	if !o.set {
		return "controller.NoOverflow()"
	}
	return fmt.Sprintf("controller.OverflowOf(%v)", o.value)
}
