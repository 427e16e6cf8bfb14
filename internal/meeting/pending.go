package meeting

import "sync"

type Item struct {
	Pos  int
	Text string
}

// Pending is an unbounded FIFO between the transcription path and the
// summarizer. Push never blocks; Ready is signalled after every push.
type Pending struct {
	mu     sync.Mutex
	items  []Item
	closed bool
	ready  chan struct{}
	done   chan struct{}
}

func NewPending() *Pending {
	return &Pending{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Push enqueues it. Returns false once the queue is closed.
func (p *Pending) Push(it Item) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.items = append(p.items, it)
	p.mu.Unlock()

	select {
	case p.ready <- struct{}{}:
	default:
	}
	return true
}

// Drain removes and returns everything queued, oldest first.
func (p *Pending) Drain() []Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.items
	p.items = nil
	return out
}

func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

func (p *Pending) Ready() <-chan struct{} { return p.ready }

// Done is closed by Close.
func (p *Pending) Done() <-chan struct{} { return p.done }

func (p *Pending) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.done)
}

func (p *Pending) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
