package controller

import "math"

// Update advances the controller to the external clock reading now.
//
// The playable's DoUpdate hook receives the local time for the tick, folded
// into the current iteration and reversed on pingpong/pongping passes. The
// OnUpdate callback then runs exactly once. When the playable signals an
// overflow after the last iteration, the controller either clamps (persist)
// or completes, in which case the result of the playable's Complete hook is
// returned together with true.
//
// Update must not be called from within the playable's hooks or the OnUpdate
// callback.
func (c *TimeController) Update(now float64) (any, bool) {
	duration := c.playable.Duration()

	t := (now - c.timeStart) * c.speed
	iteration := iterationOf(t, duration)
	c.iteration = iteration

	// Negative local time lies before the first pass and is left unfolded.
	if iteration < c.iterations && t >= 0 {
		t = math.Mod(t, duration)
	}

	if reversed(iteration, c.pingpong, c.pongping) {
		t = duration - t
	}

	overflow := c.playable.DoUpdate(t)
	c.overflow = overflow

	if c.onUpdate != nil {
		c.onUpdate(t, now-c.timeNow)
	}

	amount, ok := overflow.Value()
	if !ok || iteration < c.iterations {
		c.timeNow = now
		c.status = StatusPlaying
		return nil, false
	}

	if c.persist {
		if amount > 0 {
			// Pin local time at the end of the last iteration.
			end := duration * c.iterations
			if c.speed == 0 {
				c.timeStart = now - end
			} else {
				c.timeStart = now - end/c.speed
			}
		} else {
			c.timeStart = now
		}
		c.timeNow = now
		c.status = StatusPersisting
		return nil, false
	}

	dt := now - c.timeNow
	c.timeNow = now
	c.status = StatusCompleted
	return c.playable.Complete(amount, dt), true
}

// iterationOf returns t/duration. A zero duration puts every tick on an
// iteration boundary: +Inf at or after the start, -Inf before it.
func iterationOf(t, duration float64) float64 {
	if duration == 0 {
		if t < 0 {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	return t / duration
}

// reversed reports whether the pass containing iteration plays backward.
// The pass index is ceil(iteration), so a pass in progress counts as the
// pass that will complete it.
func reversed(iteration float64, pingpong, pongping bool) bool {
	if !pingpong && !pongping {
		return false
	}
	if math.IsInf(iteration, 0) || math.IsNaN(iteration) {
		return false
	}
	even := math.Mod(math.Ceil(iteration), 2) == 0
	return (pingpong && even) || (pongping && !even)
}
