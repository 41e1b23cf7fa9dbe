package instrument

import (
	"context"
	"log"
	"sync"
	"time"
)

// maxBacklog bounds how many batches' worth of events are held while the sink
// keeps failing. Beyond it the oldest events are dropped.
const maxBacklog = 10

// EventBuffer batches events in memory and writes them to a sink from a
// single background goroutine, on a timer or as soon as a batch fills.
type EventBuffer struct {
	sink      EventSink
	batchSize int

	mu      sync.Mutex
	pending []Event
	dropped int

	full     chan struct{}
	quit     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

func NewEventBuffer(sink EventSink, batchSize int, flushIntervalMs int) *EventBuffer {
	if batchSize <= 0 {
		batchSize = 500
	}
	if flushIntervalMs <= 0 {
		flushIntervalMs = 100
	}
	b := &EventBuffer{
		sink:      sink,
		batchSize: batchSize,
		full:      make(chan struct{}, 1),
		quit:      make(chan struct{}),
		finished:  make(chan struct{}),
	}
	go b.loop(time.Duration(flushIntervalMs) * time.Millisecond)
	return b
}

func (b *EventBuffer) loop(interval time.Duration) {
	defer close(b.finished)
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
		case <-b.full:
		case <-b.quit:
			for attempt := 0; attempt < 3 && b.Len() > 0; attempt++ {
				b.Flush()
			}
			return
		}
		b.Flush()
	}
}

// Enqueue adds e and wakes the writer when a batch is ready.
func (b *EventBuffer) Enqueue(e Event) {
	b.mu.Lock()
	b.pending = append(b.pending, e)
	if over := len(b.pending) - b.batchSize*maxBacklog; over > 0 {
		b.pending = b.pending[over:]
		b.dropped += over
	}
	ready := len(b.pending) >= b.batchSize
	b.mu.Unlock()

	if ready {
		select {
		case b.full <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of events waiting to be written.
func (b *EventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flush writes everything pending in batches of at most batchSize. A batch the
// sink rejects is put back for the next attempt.
func (b *EventBuffer) Flush() {
	for {
		b.mu.Lock()
		if b.dropped > 0 {
			log.Printf("WARN: event buffer dropped %d events", b.dropped)
			b.dropped = 0
		}
		n := min(len(b.pending), b.batchSize)
		if n == 0 {
			b.mu.Unlock()
			return
		}
		batch := b.pending[:n:n]
		b.pending = b.pending[n:]
		b.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := b.sink.InsertEvents(ctx, batch)
		cancel()
		if err != nil {
			log.Printf("ERROR: write %d events: %v", len(batch), err)
			b.mu.Lock()
			b.pending = append(batch, b.pending...)
			b.mu.Unlock()
			return
		}
	}
}

// Stop writes what is pending and ends the background writer. Safe to call twice.
func (b *EventBuffer) Stop() {
	b.stopOnce.Do(func() { close(b.quit) })
	<-b.finished
}
