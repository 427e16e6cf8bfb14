package stt

import (
	"fmt"
	"sync"
	"time"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

const (
	vadRate       = 16000
	vadFrame      = 480 // 30 ms
	vadFrameDur   = 30 * time.Millisecond
	defaultSpeech = 250 * time.Millisecond
)

// Span is a half-open sample range [Start, End).
type Span struct {
	Start int
	End   int
	Voice bool
}

// VAD splits 16 kHz audio into speech and silence spans. Silence shorter
// than MinSilence inside speech is bridged; speech shorter than MinSpeech
// is treated as silence.
type VAD struct {
	mu         sync.Mutex
	vad        *webrtcvad.VAD
	MinSilence time.Duration
	MinSpeech  time.Duration
}

func NewVAD(mode int, minSilence time.Duration) (*VAD, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("create vad: %w", err)
	}
	if mode < 0 {
		mode = 0
	}
	if mode > 3 {
		mode = 3
	}
	if err := v.SetMode(mode); err != nil {
		return nil, fmt.Errorf("set vad mode: %w", err)
	}
	return &VAD{vad: v, MinSilence: minSilence, MinSpeech: defaultSpeech}, nil
}

func (v *VAD) Spans(pcm []float32) ([]Span, error) {
	flags, err := v.frames(pcm)
	if err != nil {
		return nil, err
	}
	return mergeFrames(flags, len(pcm), v.MinSilence, v.MinSpeech), nil
}

func (v *VAD) frames(pcm []float32) ([]bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := (len(pcm) + vadFrame - 1) / vadFrame
	flags := make([]bool, n)
	frame := make([]byte, vadFrame*2)

	for i := 0; i < n; i++ {
		for j := range frame {
			frame[j] = 0
		}
		end := min((i+1)*vadFrame, len(pcm))
		for k, s := range pcm[i*vadFrame : end] {
			if s > 1 {
				s = 1
			}
			if s < -1 {
				s = -1
			}
			x := int16(s * 32767)
			frame[k*2] = byte(x)
			frame[k*2+1] = byte(x >> 8)
		}

		active, err := v.vad.Process(vadRate, frame)
		if err != nil {
			return nil, fmt.Errorf("vad process: %w", err)
		}
		flags[i] = active
	}
	return flags, nil
}

// mergeFrames turns per-frame speech flags into alternating spans that
// cover [0, total).
func mergeFrames(flags []bool, total int, minSilence, minSpeech time.Duration) []Span {
	if total == 0 {
		return nil
	}

	gap := int(minSilence / vadFrameDur)
	short := int((minSpeech + vadFrameDur - 1) / vadFrameDur)

	voiced := append([]bool(nil), flags...)

	// Bridge short pauses between speech frames.
	last := -1
	for i, f := range voiced {
		if !f {
			continue
		}
		if last >= 0 && i-last-1 > 0 && i-last-1 < gap {
			for j := last + 1; j < i; j++ {
				voiced[j] = true
			}
		}
		last = i
	}

	// Drop speech runs too short to hold a word.
	for i := 0; i < len(voiced); {
		if !voiced[i] {
			i++
			continue
		}
		j := i
		for j < len(voiced) && voiced[j] {
			j++
		}
		if j-i < short {
			for k := i; k < j; k++ {
				voiced[k] = false
			}
		}
		i = j
	}

	var spans []Span
	for i := 0; i < len(voiced); {
		j := i
		for j < len(voiced) && voiced[j] == voiced[i] {
			j++
		}
		spans = append(spans, Span{
			Start: i * vadFrame,
			End:   min(j*vadFrame, total),
			Voice: voiced[i],
		})
		i = j
	}
	return spans
}
