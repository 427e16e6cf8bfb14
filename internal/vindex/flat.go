// Package vindex is an append-only exact nearest-neighbour index.
package vindex

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrEmptyVector = errors.New("empty vector")

type Neighbor struct {
	Pos      int
	Distance float32 // squared L2
}

// Flat stores vectors in insertion order and searches them by brute force.
// The dimension is fixed by the first Add.
type Flat struct {
	mu   sync.RWMutex
	dim  int
	data []float32
}

func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

func (f *Flat) Dim() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dim
}

func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Add appends vec and returns its position.
func (f *Flat) Add(vec []float32) (int, error) {
	if len(vec) == 0 {
		return 0, ErrEmptyVector
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dim == 0 {
		f.dim = len(vec)
	}
	if len(vec) != f.dim {
		return 0, fmt.Errorf("dimension mismatch: got %d, want %d", len(vec), f.dim)
	}

	pos := len(f.data) / f.dim
	f.data = append(f.data, vec...)
	return pos, nil
}

// Search returns up to k neighbours of q ordered by ascending distance.
// Ties keep insertion order. Positions for which skip returns true are ignored.
func (f *Flat) Search(q []float32, k int, skip func(pos int) bool) ([]Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.dim == 0 || len(f.data) == 0 {
		return nil, nil
	}
	if len(q) != f.dim {
		return nil, fmt.Errorf("dimension mismatch: got %d, want %d", len(q), f.dim)
	}

	n := len(f.data) / f.dim
	out := make([]Neighbor, 0, n)
	for pos := 0; pos < n; pos++ {
		if skip != nil && skip(pos) {
			continue
		}
		row := f.data[pos*f.dim : (pos+1)*f.dim]
		out = append(out, Neighbor{Pos: pos, Distance: l2(q, row)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance < out[j].Distance
	})

	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func l2(a, b []float32) float32 {
	var s float32
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
