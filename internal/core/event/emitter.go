package event

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tdquang/car-escrow/internal/core/domain"
)

// Emitter is the engine's append-only event log plus a buffered delivery
// channel for sink workers. The engine emits inside its critical section,
// so log order equals state-mutation order.
type Emitter struct {
	mu     sync.Mutex
	seq    uint64
	log    []domain.Event
	ch     chan domain.Event
	closed bool
}

func NewEmitter(buffer int) *Emitter {
	return &Emitter{
		ch: make(chan domain.Event, buffer),
	}
}

// Emit assigns the event an ID and the next sequence number, appends it to
// the log, and queues it for delivery. The timestamp is set by the caller
// from the operation's single time read.
func (e *Emitter) Emit(ev domain.Event) domain.Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	ev.Seq = e.seq
	ev.ID = uuid.New().String()
	e.log = append(e.log, ev)

	if !e.closed {
		e.ch <- ev
	}
	return ev
}

// Events is the delivery channel consumed by sink workers.
func (e *Emitter) Events() <-chan domain.Event {
	return e.ch
}

// Log returns a snapshot copy of the full event log, oldest first. Mirrors
// can replay it after a restart.
func (e *Emitter) Log() []domain.Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Event, len(e.log))
	copy(out, e.log)
	return out
}

// Close ends delivery. Call only after the engine has quiesced.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
