// Package transcribe turns a session's raw capture blocks into text chunks.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"aura/internal/audio"
	"aura/pkg/audioconv"
	"aura/pkg/stt"
)

type Engine interface {
	Transcribe(ctx context.Context, pcm16k []float32) ([]stt.Segment, error)
}

type Sink interface {
	OnChunk(text string, at time.Time)
	OnVolume(level float64)
	OnError(err error)
}

type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

type Config struct {
	// MinChunk is how much audio is gathered before a transcription pass.
	MinChunk time.Duration
	// Poll is how long to wait for audio before reporting silence.
	Poll time.Duration
	// Timeout bounds a single transcription pass.
	Timeout time.Duration
}

type Worker struct {
	src  audio.Source
	eng  Engine
	sink Sink
	cfg  Config
	log  *log.Logger

	state atomic.Int32
	stop  chan struct{}
	once  sync.Once
}

func NewWorker(src audio.Source, eng Engine, sink Sink, cfg Config, logger *log.Logger) *Worker {
	if cfg.MinChunk <= 0 {
		cfg.MinChunk = 3 * time.Second
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Worker{
		src:  src,
		eng:  eng,
		sink: sink,
		cfg:  cfg,
		log:  logger.With("component", "transcriber"),
		stop: make(chan struct{}),
	}
}

func (w *Worker) State() State { return State(w.state.Load()) }

// Stop asks Run to drain what is queued and return.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.stop) })
}

// Run consumes audio until the source ends, fails, or Stop is called.
// Buffered audio always gets a final pass. A source failure is returned.
func (w *Worker) Run(ctx context.Context) error {
	w.state.Store(int32(StateStreaming))
	defer w.state.Store(int32(StateIdle))

	f := w.src.Format()
	if f.Rate <= 0 || f.Channels <= 0 {
		return fmt.Errorf("bad source format %+v", f)
	}
	minSamples := int(w.cfg.MinChunk.Seconds()*float64(f.Rate)) * f.Channels

	w.log.Debug("Streaming", "rate", f.Rate, "channels", f.Channels)

	var buf []int16
	timer := time.NewTimer(w.cfg.Poll)
	defer timer.Stop()

	for {
		select {
		case b, ok := <-w.src.Blocks():
			if !ok {
				return w.drain(ctx, buf, nil)
			}
			buf = w.take(buf, b, f)
			if len(buf) >= minSamples {
				w.pass(ctx, buf, f)
				buf = nil
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.cfg.Poll)

		case err := <-w.src.Err():
			w.log.Error("Audio source failed", "err", err)
			return w.drain(ctx, buf, err)

		case <-w.stop:
			return w.drain(ctx, buf, nil)

		case <-ctx.Done():
			w.sink.OnVolume(0)
			return ctx.Err()

		case <-timer.C:
			if len(buf) > 0 {
				w.pass(ctx, buf, f)
				buf = nil
			} else {
				w.sink.OnVolume(0)
			}
			timer.Reset(w.cfg.Poll)
		}
	}
}

// take appends b and reports its level.
func (w *Worker) take(buf, b []int16, f audio.Format) []int16 {
	w.sink.OnVolume(audioconv.Level(audioconv.ToMono16k(b, f.Channels, f.Rate)))
	return append(buf, b...)
}

func (w *Worker) drain(ctx context.Context, buf []int16, cause error) error {
	w.state.Store(int32(StateDraining))

	f := w.src.Format()
loop:
	for {
		select {
		case b, ok := <-w.src.Blocks():
			if !ok {
				break loop
			}
			buf = append(buf, b...)
		default:
			break loop
		}
	}

	if len(buf) > 0 {
		w.pass(ctx, buf, f)
	}
	w.sink.OnVolume(0)
	w.log.Debug("Drained", "samples", len(buf))
	return cause
}

func (w *Worker) pass(ctx context.Context, buf []int16, f audio.Format) {
	pcm := audioconv.ToMono16k(buf, f.Channels, f.Rate)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.Timeout)
	defer cancel()

	start := time.Now()
	segs, err := w.eng.Transcribe(pctx, pcm)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.log.Error("Failed to transcribe", "err", err)
		}
		w.sink.OnError(err)
		return
	}

	text := strings.TrimSpace(stt.VoiceText(segs))
	if text == "" {
		return
	}

	w.log.Debug("Transcribed", "seconds", float64(len(pcm))/audioconv.SampleRate, "took", time.Since(start))
	w.sink.OnChunk(text+" ", time.Now())
}
