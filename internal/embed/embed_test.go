package embed

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestHashingDeterministic(t *testing.T) {
	h := NewHashing(64)
	a, err := One(context.Background(), h, "Alice: let's discuss budget.")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := One(context.Background(), h, "Alice: let's discuss budget.")
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vector differs at %d: %v vs %v", i, a[i], b[i])
		}
	}

	var norm float64
	for _, x := range a {
		norm += float64(x * x)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("norm = %v, want 1", norm)
	}
}

func TestHashingSimilarity(t *testing.T) {
	h := NewHashing(256)
	vs, _ := h.Embed(context.Background(), []string{
		"budget review for the quarter",
		"the quarter budget review",
		"lunch menu options",
	})
	d := func(a, b []float32) float32 {
		var s float32
		for i := range a {
			s += (a[i] - b[i]) * (a[i] - b[i])
		}
		return s
	}
	if d(vs[0], vs[1]) >= d(vs[0], vs[2]) {
		t.Errorf("related texts not closer: %v >= %v", d(vs[0], vs[1]), d(vs[0], vs[2]))
	}
}

func TestHashingEmptyText(t *testing.T) {
	v, err := One(context.Background(), NewHashing(8), "the and of")
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range v {
		if x != 0 {
			t.Fatalf("stopword-only text gave non-zero vector %v", v)
		}
	}
}

type flakyLoader struct {
	mu    sync.Mutex
	calls int
}

func (f *flakyLoader) load() (Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == 1 {
		return nil, errors.New("model missing")
	}
	return NewHashing(16), nil
}

func TestLazyRetriesAndLoadsOnce(t *testing.T) {
	fl := &flakyLoader{}
	l := NewLazy(16, fl.load)

	if l.Dimension() != 16 {
		t.Errorf("Dimension() before load = %d, want 16", l.Dimension())
	}
	if _, err := l.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("first Embed() error = nil, want load failure")
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Embed(context.Background(), []string{"x"}); err != nil {
				t.Errorf("Embed() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if fl.calls != 2 {
		t.Errorf("load calls = %d, want 2", fl.calls)
	}
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		var req ollamaEmbedRequest
		json.NewDecoder(r.Body).Decode(&req)
		out := ollamaEmbedResponse{}
		for i := range req.Input {
			out.Embeddings = append(out.Embeddings, []float32{float32(i), 1})
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	o := NewOllama(srv.URL+"/", "nomic-embed-text", 2, time.Second)
	vs, err := o.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vs) != 2 || vs[1][0] != 1 {
		t.Errorf("Embed() = %v", vs)
	}
}

func TestOllamaEmbedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "missing", 2, time.Second)
	if _, err := o.Embed(context.Background(), []string{"a"}); err == nil {
		t.Error("Embed() error = nil, want status error")
	}
}
