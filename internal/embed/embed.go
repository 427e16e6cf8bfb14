// Package embed turns transcript text into fixed-length vectors.
package embed

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
)

var ErrCountMismatch = errors.New("embedding count does not match input")

// Provider embeds a batch of texts. Dimension is fixed once the provider
// is constructed.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Lazy builds the underlying provider on first use and shares it across
// sessions. A failed build is retried on the next call.
type Lazy struct {
	mu   sync.Mutex
	p    Provider
	dim  int
	load func() (Provider, error)
}

// NewLazy wraps load. dim is reported by Dimension until the provider is built.
func NewLazy(dim int, load func() (Provider, error)) *Lazy {
	return &Lazy{dim: dim, load: load}
}

func (l *Lazy) get() (Provider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.p != nil {
		return l.p, nil
	}

	p, err := l.load()
	if err != nil {
		return nil, fmt.Errorf("load embedding model: %w", err)
	}
	log.Info("Embedding model loaded", "dim", p.Dimension())
	l.p = p
	return p, nil
}

func (l *Lazy) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p, err := l.get()
	if err != nil {
		return nil, err
	}
	return p.Embed(ctx, texts)
}

func (l *Lazy) Dimension() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.p != nil {
		return l.p.Dimension()
	}
	return l.dim
}

// One embeds a single text.
func One(ctx context.Context, p Provider, text string) ([]float32, error) {
	vs, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vs) != 1 {
		return nil, fmt.Errorf("%w: got %d, want 1", ErrCountMismatch, len(vs))
	}
	return vs[0], nil
}
