// Package ui carries session updates from worker goroutines to whatever
// presents them, one event at a time on a single goroutine.
package ui

import (
	"context"
	log "log/slog"
	"sync"
	"time"

	"aura/pkg/protocol"
)

// Sink receives session updates. Implementations must be safe for
// concurrent use.
type Sink interface {
	OnTranscriptChunk(session, text string)
	OnVolume(session string, level float64)
	OnSummaryClear(session string)
	OnSummaryChunk(session, fragment string)
	OnTitleChanged(session, title string)
	OnStatusChanged(session, status string)
	OnNotice(session, text string)
}

type Handler interface {
	Handle(protocol.Event)
}

type HandlerFunc func(protocol.Event)

func (f HandlerFunc) Handle(e protocol.Event) { f(e) }

// Dispatcher is a Sink that queues events on a bounded channel and hands
// them to its handlers from one goroutine, in order. Volume updates are
// dropped when the queue is full; everything else waits for room.
type Dispatcher struct {
	events   chan protocol.Event
	handlers []Handler

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped int
	now     func() time.Time
}

func NewDispatcher(size int, handlers ...Handler) *Dispatcher {
	if size <= 0 {
		size = 256
	}
	return &Dispatcher{
		events:   make(chan protocol.Event, size),
		handlers: handlers,
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

// Run delivers events until Close has been called and the queue is empty.
func (d *Dispatcher) Run() {
	defer close(d.done)
	for e := range d.events {
		for _, h := range d.handlers {
			h.Handle(e)
		}
	}
}

// Close stops accepting events and waits until Run has delivered the rest
// or ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) Dropped() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dropped
}

func (d *Dispatcher) post(e protocol.Event) {
	e.At = d.now()
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Debug("Dropping event after close", "kind", e.Kind, "session", e.Session)
		return
	}
	d.events <- e
}

func (d *Dispatcher) tryPost(e protocol.Event) {
	e.At = d.now()
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return
	}
	select {
	case d.events <- e:
		d.mu.RUnlock()
	default:
		d.mu.RUnlock()
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
	}
}

func (d *Dispatcher) OnTranscriptChunk(session, text string) {
	d.post(protocol.Event{Kind: protocol.KindTranscript, Session: session, Text: text})
}

func (d *Dispatcher) OnVolume(session string, level float64) {
	d.tryPost(protocol.Event{Kind: protocol.KindVolume, Session: session, Level: level})
}

func (d *Dispatcher) OnSummaryClear(session string) {
	d.post(protocol.Event{Kind: protocol.KindSummaryClear, Session: session})
}

func (d *Dispatcher) OnSummaryChunk(session, fragment string) {
	d.post(protocol.Event{Kind: protocol.KindSummaryChunk, Session: session, Text: fragment})
}

func (d *Dispatcher) OnTitleChanged(session, title string) {
	d.post(protocol.Event{Kind: protocol.KindTitle, Session: session, Text: title})
}

func (d *Dispatcher) OnStatusChanged(session, status string) {
	d.post(protocol.Event{Kind: protocol.KindStatus, Session: session, Text: status})
}

func (d *Dispatcher) OnNotice(session, text string) {
	d.post(protocol.Event{Kind: protocol.KindNotice, Session: session, Text: text})
}
