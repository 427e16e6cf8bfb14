package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

type Options struct {
	Language      string // "auto", "en", ...
	Threads       int    // <=0 => NumCPU()
	BeamSize      int    // 0 = greedy
	InitialPrompt string
	Temperature   float32
}

// Segment is a span of the input. Voice is false for spans the VAD
// classified as silence; those carry no text.
type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
	Voice bool
}

// Whisper runs whisper.cpp over 16 kHz mono audio, optionally transcribing
// only the regions a VAD marks as speech.
type Whisper struct {
	mu    sync.Mutex
	model whisper.Model
	opt   Options
	vad   *VAD
}

func NewWhisper(modelPath string, opt Options, vad *VAD) (*Whisper, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Whisper{model: m, opt: opt, vad: vad}, nil
}

func (w *Whisper) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return nil
	}
	err := w.model.Close()
	w.model = nil
	return err
}

// Transcribe returns segments in time order. pcm16k must be mono at
// 16 kHz in [-1, 1].
func (w *Whisper) Transcribe(ctx context.Context, pcm16k []float32) ([]Segment, error) {
	if len(pcm16k) == 0 {
		return nil, nil
	}

	spans := []Span{{Start: 0, End: len(pcm16k), Voice: true}}
	if w.vad != nil {
		var err error
		spans, err = w.vad.Spans(pcm16k)
		if err != nil {
			return nil, fmt.Errorf("vad: %w", err)
		}
	}

	var out []Segment
	for _, sp := range spans {
		if !sp.Voice {
			out = append(out, Segment{Start: samplesToDur(sp.Start), End: samplesToDur(sp.End)})
			continue
		}
		segs, err := w.process(ctx, pcm16k[sp.Start:sp.End])
		if err != nil {
			return nil, err
		}
		off := samplesToDur(sp.Start)
		for _, s := range segs {
			s.Start += off
			s.End += off
			out = append(out, s)
		}
	}
	return out, nil
}

func (w *Whisper) process(ctx context.Context, pcm []float32) ([]Segment, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.model == nil {
		return nil, errors.New("nil model")
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}

	lang := w.opt.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}

	threads := w.opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if w.opt.BeamSize > 0 {
		wctx.SetBeamSize(w.opt.BeamSize)
	}
	if w.opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(w.opt.InitialPrompt)
	}
	if w.opt.Temperature != 0 {
		wctx.SetTemperature(w.opt.Temperature)
	}

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}

	var segs []Segment
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("next segment: %w", err)
		}

		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segs = append(segs, Segment{
			Text:  text,
			Start: s.Start,
			End:   s.End,
			Voice: true,
		})
	}
	return segs, nil
}

func samplesToDur(n int) time.Duration {
	return time.Duration(n) * time.Second / 16000
}

// VoiceText joins the text of voice segments with single spaces.
func VoiceText(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if s.Voice && s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}
