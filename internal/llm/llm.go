// Package llm wraps the chat models used for summaries, titles and Q&A.
package llm

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnavailable = errors.New("language model unavailable")
	ErrEmpty       = errors.New("empty model output")
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type Request struct {
	System      string
	History     []Message
	User        string
	Temperature float64
}

// Fragment is one piece of a streamed reply. A fragment with Err set is
// always the last one on the channel.
type Fragment struct {
	Text string
	Err  error
}

type Client interface {
	// Stream sends the reply in fragments. The channel is closed when the
	// reply ends; failures arrive as a final Fragment with Err set.
	Stream(ctx context.Context, req Request) <-chan Fragment
	Complete(ctx context.Context, req Request) (string, error)
}

// Collect drains a stream into one string.
func Collect(ch <-chan Fragment) (string, error) {
	var b strings.Builder
	for f := range ch {
		if f.Err != nil {
			return b.String(), f.Err
		}
		b.WriteString(f.Text)
	}
	return b.String(), nil
}

// complete implements Complete on top of Stream for backends that only stream.
func complete(ctx context.Context, c Client, req Request) (string, error) {
	out, err := Collect(c.Stream(ctx, req))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmpty
	}
	return out, nil
}

// send delivers f unless ctx is done. It reports whether f was delivered.
func send(ctx context.Context, ch chan<- Fragment, f Fragment) bool {
	select {
	case ch <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
