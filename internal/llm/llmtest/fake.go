// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"aura/internal/llm"
)

// Fake answers every request by calling Reply. Fragments are streamed in
// order; a non-nil error is sent after them as the terminal fragment.
type Fake struct {
	Reply func(req llm.Request) ([]string, error)

	// Gate, when set, is received from before the reply starts.
	Gate chan struct{}

	mu    sync.Mutex
	calls []llm.Request
}

func (f *Fake) Calls() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.calls...)
}

// CallsWithSystem counts calls whose system prompt contains marker.
func (f *Fake) CallsWithSystem(marker string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.Contains(c.System, marker) {
			n++
		}
	}
	return n
}

func (f *Fake) Stream(ctx context.Context, req llm.Request) <-chan llm.Fragment {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	ch := make(chan llm.Fragment)
	go func() {
		defer close(ch)
		if f.Gate != nil {
			select {
			case <-f.Gate:
			case <-ctx.Done():
				return
			}
		}
		var (
			parts []string
			err   error
		)
		if f.Reply != nil {
			parts, err = f.Reply(req)
		}
		for _, p := range parts {
			select {
			case ch <- llm.Fragment{Text: p}:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			select {
			case ch <- llm.Fragment{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}

func (f *Fake) Complete(ctx context.Context, req llm.Request) (string, error) {
	out, err := llm.Collect(f.Stream(ctx, req))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", llm.ErrEmpty
	}
	return out, nil
}
