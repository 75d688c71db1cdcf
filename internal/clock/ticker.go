package clock

import "time"

// Ticker delivers clock readings on C until stopped.
type Ticker struct {
	C          <-chan time.Time
	realTicker *time.Ticker
	done       <-chan struct{}
	stopCh     chan struct{}
	onStop     func()
}

// Stop stops the ticker. It is safe to call more than once.
func (t *Ticker) Stop() {
	if t.realTicker != nil {
		t.realTicker.Stop()
	}
	if t.stopCh != nil {
		select {
		case <-t.stopCh:
			return
		default:
			close(t.stopCh)
		}
	}
	if t.onStop != nil {
		t.onStop()
	}
}
