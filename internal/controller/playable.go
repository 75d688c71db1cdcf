package controller

// Playable is the host a TimeController drives.
//
// Duration is read on every call, so a host may change it between ticks.
// DoUpdate receives the local time computed for the tick and reports whether
// that time lies outside the playable's bounds. Complete is invoked once the
// iterations are exhausted and the playable does not persist; its result is
// handed back to the caller of Update.
//
// None of the hooks may call Update on the controller that invoked them.
type Playable interface {
	Duration() float64
	DoUpdate(local float64) Overflow
	Complete(overflow, dt float64) any
}

// UpdateFunc is the optional per-tick callback. It receives the local time
// passed to DoUpdate and the external-clock delta since the previous tick.
type UpdateFunc func(t, dt float64)
