package events

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/myorg/tempo/internal/controller"
)

// Scheduler releases control events as the external clock reaches their
// offsets. Events sharing an offset keep their script order.
type Scheduler struct {
	mu      sync.Mutex
	events  []*Event
	next    int
	applied int

	// speed and local time in effect before the most recent pause
	resumeSpeed float64
	resumeLocal float64
	paused      bool
}

// NewScheduler creates a scheduler over a copy of events.
func NewScheduler(events []*Event) *Scheduler {
	sorted := make([]*Event, len(events))
	for i, ev := range events {
		cp := *ev
		sorted[i] = &cp
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At < sorted[j].At
	})
	return &Scheduler{events: sorted, resumeSpeed: 1}
}

// Due returns and consumes the events whose offset is at or before elapsed.
func (s *Scheduler) Due(elapsed time.Duration) []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.next
	for s.next < len(s.events) && s.events[s.next].At <= elapsed {
		s.next++
	}
	if start == s.next {
		return nil
	}
	return s.events[start:s.next:s.next]
}

// ApplyDue applies every event due at elapsed to c and returns them.
func (s *Scheduler) ApplyDue(elapsed time.Duration, c *controller.TimeController) ([]*Event, error) {
	due := s.Due(elapsed)
	for _, ev := range due {
		if err := s.Apply(c, ev); err != nil {
			return due, err
		}
	}
	return due, nil
}

// Apply mutates c according to ev.
func (s *Scheduler) Apply(c *controller.TimeController, ev *Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Action {
	case ActionSpeed:
		c.SetSpeed(ev.Number)
		s.paused = false
	case ActionGoTo:
		c.GoTo(ev.Number)
	case ActionGoToBeginning:
		c.GoToBeginning()
	case ActionGoToEnd:
		c.GoToEnd()
	case ActionIterations:
		c.SetIterations(ev.Number)
	case ActionPersist:
		c.SetPersist(ev.Flag)
	case ActionPingpong:
		c.SetPingpong(ev.Flag)
	case ActionPongping:
		c.SetPongping(ev.Flag)
	case ActionPause:
		if !s.paused {
			s.resumeSpeed = c.Speed()
			s.resumeLocal = c.Time()
			s.paused = true
		}
		c.SetSpeed(0)
	case ActionResume:
		// Ticks at speed 0 move the controller's virtual clock, so the
		// local time held at the pause is sought explicitly.
		if s.paused {
			c.SetSpeed(s.resumeSpeed).GoTo(s.resumeLocal)
			s.paused = false
		}
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidEvent, ev.Action)
	}
	s.applied++
	return nil
}

// Pending returns the number of events not yet released.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events) - s.next
}

// Applied returns the number of events applied so far.
func (s *Scheduler) Applied() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// Events returns copies of all scheduled events in release order.
func (s *Scheduler) Events() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*Event, len(s.events))
	for i, ev := range s.events {
		cp := *ev
		result[i] = &cp
	}
	return result
}

// Reset rewinds the scheduler so every event is released again.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = 0
	s.applied = 0
	s.paused = false
	s.resumeSpeed = 1
	s.resumeLocal = 0
}
