package meeting

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func activeSession(t *testing.T, id string) *Session {
	t.Helper()
	s := New(id, time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC))
	if _, err := s.Activate(); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	return s
}

func TestNewSessionDefaults(t *testing.T) {
	s := New("abc", time.Date(2025, 1, 2, 9, 30, 5, 0, time.UTC))
	if s.Title() != "Meeting - 09:30:05" {
		t.Errorf("Title() = %q, want %q", s.Title(), "Meeting - 09:30:05")
	}
	if s.Status() != StatusStopped {
		t.Errorf("Status() = %q, want stopped", s.Status())
	}
	if s.IndexLen() != 0 || len(s.Chunks()) != 0 {
		t.Errorf("new session has %d vectors / %d chunks, want 0/0", s.IndexLen(), len(s.Chunks()))
	}
	if s.HasDynamicTitle() {
		t.Error("HasDynamicTitle() = true on new session")
	}
}

func TestAppendKeepsIndexAligned(t *testing.T) {
	s := activeSession(t, "a")
	texts := []string{"one ", "two ", "three "}
	for i, txt := range texts {
		pos, err := s.AppendChunk(txt, []float32{float32(i), 1}, time.Now())
		if err != nil {
			t.Fatalf("AppendChunk() error = %v", err)
		}
		if pos != i {
			t.Errorf("AppendChunk() pos = %d, want %d", pos, i)
		}
		if s.IndexLen() != len(s.Chunks()) {
			t.Fatalf("IndexLen() = %d, chunks = %d", s.IndexLen(), len(s.Chunks()))
		}
	}

	// A vector of the wrong dimension changes nothing.
	if _, err := s.AppendChunk("bad ", []float32{1, 2, 3}, time.Now()); err == nil {
		t.Error("AppendChunk(dim 3) error = nil, want error")
	}
	if s.IndexLen() != 3 || len(s.Chunks()) != 3 {
		t.Errorf("after rejected append: index %d, chunks %d, want 3/3", s.IndexLen(), len(s.Chunks()))
	}
	if got := s.Transcript(); got != "one two three " {
		t.Errorf("Transcript() = %q, want %q", got, "one two three ")
	}
	if got := s.Pending().Len(); got != 3 {
		t.Errorf("Pending().Len() = %d, want 3", got)
	}
}

func TestTranscriptIsConcatenation(t *testing.T) {
	s := activeSession(t, "a")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AppendChunk("x ", []float32{1}, time.Now())
		}()
	}
	wg.Wait()

	var b strings.Builder
	for _, c := range s.Chunks() {
		b.WriteString(c.Text)
	}
	if s.Transcript() != b.String() {
		t.Errorf("Transcript() = %q, want concatenation %q", s.Transcript(), b.String())
	}
	if s.IndexLen() != 20 {
		t.Errorf("IndexLen() = %d, want 20", s.IndexLen())
	}
}

func TestAppendRejectedWhenStopped(t *testing.T) {
	s := New("a", time.Now())
	if _, err := s.AppendChunk("x", []float32{1}, time.Now()); !errors.Is(err, ErrNotIngesting) {
		t.Errorf("AppendChunk() on stopped = %v, want ErrNotIngesting", err)
	}
}

func TestAppendAcceptedWhileStopping(t *testing.T) {
	s := activeSession(t, "a")
	if !s.BeginStop() {
		t.Fatal("BeginStop() = false")
	}
	if _, err := s.AppendChunk("tail ", []float32{1}, time.Now()); err != nil {
		t.Errorf("AppendChunk() while stopping error = %v", err)
	}
	s.Finish()
	if s.Status() != StatusStopped {
		t.Errorf("Status() = %q, want stopped", s.Status())
	}
	if !s.Pending().Closed() {
		t.Error("pending queue not closed after Finish")
	}
}

func TestAppendBlankNotSearchable(t *testing.T) {
	s := activeSession(t, "a")
	s.AppendChunk("alpha ", []float32{1, 0}, time.Now())
	if _, err := s.AppendBlank("lost ", 0, time.Now()); err != nil {
		t.Fatalf("AppendBlank() error = %v", err)
	}
	if s.IndexLen() != 2 || len(s.Chunks()) != 2 {
		t.Fatalf("index %d, chunks %d, want 2/2", s.IndexLen(), len(s.Chunks()))
	}
	hits, err := s.Search([]float32{0, 0}, 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Text != "alpha " {
		t.Errorf("Search() = %+v, want only alpha", hits)
	}
}

func TestBlankDimensionYieldsToFirstVector(t *testing.T) {
	s := activeSession(t, "a")
	if _, err := s.AppendBlank("first. ", 384, time.Now()); err != nil {
		t.Fatalf("AppendBlank() error = %v", err)
	}
	vec := make([]float32, 768)
	vec[0] = 1
	pos, err := s.AppendChunk("second. ", vec, time.Now())
	if err != nil {
		t.Fatalf("AppendChunk() after blank error = %v", err)
	}
	if pos != 1 {
		t.Errorf("AppendChunk() pos = %d, want 1", pos)
	}
	if s.Transcript() != "first. second. " {
		t.Errorf("Transcript() = %q", s.Transcript())
	}
	if s.IndexLen() != 2 || s.IndexDim() != 768 {
		t.Errorf("IndexLen() = %d, IndexDim() = %d, want 2 and 768", s.IndexLen(), s.IndexDim())
	}
	hits, err := s.Search(vec, 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Pos != 1 {
		t.Errorf("Search() = %+v, want only position 1", hits)
	}

	// Once a real vector fixed the size, a mismatch is an error.
	if _, err := s.AppendChunk("third. ", []float32{1, 2, 3}, time.Now()); err == nil {
		t.Error("AppendChunk() with wrong dimension error = nil")
	}
	if len(s.Chunks()) != 2 {
		t.Errorf("Chunks() len = %d, want 2 after rejected append", len(s.Chunks()))
	}
}

func TestClaimTitleOnce(t *testing.T) {
	s := New("a", time.Now())
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.ClaimTitle() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("ClaimTitle() won %d times, want 1", wins)
	}
}

func TestTransitions(t *testing.T) {
	s := New("a", time.Now())
	if s.BeginStop() {
		t.Error("BeginStop() on stopped = true")
	}
	if _, err := s.Activate(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Activate(); !errors.Is(err, ErrBadTransition) {
		t.Errorf("second Activate() = %v, want ErrBadTransition", err)
	}
	s.BeginStop()
	if _, err := s.Activate(); !errors.Is(err, ErrBadTransition) {
		t.Errorf("Activate() while stopping = %v, want ErrBadTransition", err)
	}
	s.Finish()
	if _, err := s.Activate(); err != nil {
		t.Errorf("Activate() after Finish error = %v", err)
	}
}

func TestResumeKeepsChunksInProcess(t *testing.T) {
	s := activeSession(t, "a")
	s.AppendChunk("one ", []float32{1}, time.Now())
	s.BeginStop()
	s.Finish()
	s.Activate()
	s.AppendChunk("two ", []float32{2}, time.Now())
	if s.IndexLen() != 2 || s.Transcript() != "one two " {
		t.Errorf("resumed: index %d transcript %q, want 2 / %q", s.IndexLen(), s.Transcript(), "one two ")
	}
}

func TestFromRecordRehydrates(t *testing.T) {
	s := FromRecord(Record{ID: "r1", Title: "Budget", Transcript: "old text ", Summary: "**## Budget ##**"})
	if s.Status() != StatusStopped {
		t.Errorf("Status() = %q, want stopped", s.Status())
	}
	if s.IndexLen() != 0 {
		t.Errorf("IndexLen() = %d, want 0", s.IndexLen())
	}
	if !s.HasDynamicTitle() {
		t.Error("HasDynamicTitle() = false for record with summary")
	}

	s.Activate()
	s.AppendChunk("new ", []float32{1}, time.Now())
	if s.Transcript() != "old text new " {
		t.Errorf("Transcript() = %q, want %q", s.Transcript(), "old text new ")
	}
	if s.Prior() != "old text " {
		t.Errorf("Prior() = %q, want %q", s.Prior(), "old text ")
	}

	hits, err := s.Search([]float32{1}, 5, map[int]bool{0: true})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("Search() = %v, want no historical hits", hits)
	}

	r := s.Record()
	if r.ID != "r1" || r.Title != "Budget" || r.Transcript != "old text new " {
		t.Errorf("Record() = %+v", r)
	}
}
