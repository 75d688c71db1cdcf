package timeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Sink receives batches of trace entries as a run progresses.
type Sink interface {
	WriteEntries(ctx context.Context, runID uuid.UUID, entries []TraceEntry) error
}

// StreamingWriter records entries into a Timeline and forwards them to its
// sinks in batches. Entries a sink rejects stay queued for that sink and are
// retried on the next flush.
type StreamingWriter struct {
	timeline  *Timeline
	sinks     []*sinkState
	batch     []TraceEntry
	batchSize int
	written   int64
	mu        sync.Mutex
}

type sinkState struct {
	sink      Sink
	pending   []TraceEntry
	delivered int64
}

// NewStreamingWriter creates a writer over tl. A batchSize <= 0 defaults
// to 64.
func NewStreamingWriter(tl *Timeline, batchSize int, sinks ...Sink) *StreamingWriter {
	if batchSize <= 0 {
		batchSize = 64
	}
	states := make([]*sinkState, len(sinks))
	for i, sink := range sinks {
		states[i] = &sinkState{sink: sink}
	}
	return &StreamingWriter{
		timeline:  tl,
		sinks:     states,
		batch:     make([]TraceEntry, 0, batchSize),
		batchSize: batchSize,
	}
}

// Record adds an entry to the timeline and flushes once a batch is full.
func (sw *StreamingWriter) Record(ctx context.Context, entry TraceEntry) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.timeline.AddEntry(entry)
	if len(sw.sinks) == 0 {
		return nil
	}

	sw.batch = append(sw.batch, entry)
	if len(sw.batch) >= sw.batchSize {
		return sw.flushLocked(ctx)
	}
	return nil
}

// Flush forwards the pending batch to every sink.
func (sw *StreamingWriter) Flush(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.flushLocked(ctx)
}

func (sw *StreamingWriter) flushLocked(ctx context.Context) error {
	if len(sw.sinks) == 0 {
		return nil
	}
	if len(sw.batch) > 0 {
		for _, st := range sw.sinks {
			st.pending = append(st.pending, sw.batch...)
		}
		sw.batch = make([]TraceEntry, 0, sw.batchSize)
	}

	var errs []error
	written := int64(-1)
	for _, st := range sw.sinks {
		if len(st.pending) > 0 {
			if err := st.sink.WriteEntries(ctx, sw.timeline.RunID, st.pending); err != nil {
				errs = append(errs, err)
			} else {
				st.delivered += int64(len(st.pending))
				st.pending = nil
			}
		}
		if written < 0 || st.delivered < written {
			written = st.delivered
		}
	}
	sw.written = written
	return errors.Join(errs...)
}

// Close flushes the pending batch and returns the number of entries every
// sink has accepted.
func (sw *StreamingWriter) Close(ctx context.Context) (int64, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	err := sw.flushLocked(ctx)
	return sw.written, err
}

// Timeline returns the underlying timeline.
func (sw *StreamingWriter) Timeline() *Timeline {
	return sw.timeline
}

// Written returns the number of entries every sink has accepted.
func (sw *StreamingWriter) Written() int64 {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.written
}
