package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	ErrNoDevice = errors.New("no loopback device selected")
	ErrStalled  = errors.New("audio device stopped delivering")
)

type Format struct {
	Rate     int
	Channels int
}

// Source delivers interleaved int16 blocks. Blocks is closed once the
// source is closed or runs out; a device failure is reported on Err first.
type Source interface {
	Format() Format
	Blocks() <-chan []int16
	Err() <-chan error
	Close() error
}

// DeviceError means the capture device could not be used.
type DeviceError struct {
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device %q: %v", e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Feed is a Source driven by calls to Push or Send.
type Feed struct {
	format Format
	blocks chan []int16
	errs   chan error

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

func NewFeed(format Format, capacity int) *Feed {
	if capacity <= 0 {
		capacity = 1
	}
	return &Feed{
		format: format,
		blocks: make(chan []int16, capacity),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (f *Feed) Format() Format         { return f.format }
func (f *Feed) Blocks() <-chan []int16 { return f.blocks }
func (f *Feed) Err() <-chan error      { return f.errs }
func (f *Feed) Dropped() int64         { return f.dropped.Load() }

// Push copies block onto the queue without blocking. A full queue drops
// the block and counts it.
func (f *Feed) Push(block []int16) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return false
	}
	select {
	case f.blocks <- append([]int16(nil), block...):
		return true
	default:
		f.dropped.Add(1)
		return false
	}
}

// Send queues block, waiting for room. It gives up when the feed closes.
func (f *Feed) Send(block []int16) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return false
	}
	select {
	case f.blocks <- append([]int16(nil), block...):
		return true
	case <-f.done:
		return false
	}
}

// Fail reports err once. Later failures are ignored.
func (f *Feed) Fail(err error) {
	select {
	case f.errs <- err:
	default:
	}
}

// Done is closed when Close is called.
func (f *Feed) Done() <-chan struct{} { return f.done }

func (f *Feed) Close() error {
	f.once.Do(func() { close(f.done) })

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.blocks)
	return nil
}
