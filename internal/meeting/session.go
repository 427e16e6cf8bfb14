package meeting

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"aura/internal/vindex"
)

type Status string

const (
	StatusStopped  Status = "stopped"
	StatusActive   Status = "active"
	StatusStopping Status = "stopping"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrBadTransition  = errors.New("invalid status transition")
	ErrNotIngesting   = errors.New("session is not accepting chunks")
	ErrDuplicateID    = errors.New("duplicate session id")
	defaultTitleStamp = "15:04:05"
)

type Chunk struct {
	Text string
	At   time.Time
}

type Hit struct {
	Pos      int
	Text     string
	Distance float32
}

// Session holds one meeting. Every field is guarded by mu and reachable only
// through methods, so chunk list, index and transcript stay aligned.
type Session struct {
	mu sync.RWMutex

	id           string
	title        string
	dynamicTitle bool
	createdAt    time.Time

	// prior is transcript text carried over from disk or an earlier run.
	prior      string
	chunks     []Chunk
	transcript strings.Builder
	index      *vindex.Flat
	blank      map[int]bool

	summary string
	status  Status
	pending *Pending
}

func DefaultTitle(t time.Time) string {
	return "Meeting - " + t.Format(defaultTitleStamp)
}

func New(id string, now time.Time) *Session {
	s := &Session{
		id:        id,
		title:     DefaultTitle(now),
		createdAt: now,
		status:    StatusStopped,
	}
	s.resetIndexLocked()
	return s
}

func FromRecord(r Record) *Session {
	s := &Session{
		id:     r.ID,
		title:  r.Title,
		prior:  r.Transcript,
		status: StatusStopped,
		// A persisted summary means the title was already settled.
		summary:      r.Summary,
		dynamicTitle: r.Summary != "",
	}
	if s.title == "" {
		s.title = DefaultTitle(time.Now())
	}
	s.transcript.WriteString(r.Transcript)
	s.resetIndexLocked()
	return s
}

func (s *Session) resetIndexLocked() {
	s.chunks = nil
	s.index = vindex.NewFlat(0)
	s.blank = make(map[int]bool)
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Prior returns transcript text that predates the current chunk list.
func (s *Session) Prior() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prior
}

func (s *Session) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title
}

func (s *Session) SetTitle(t string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = t
}

func (s *Session) HasDynamicTitle() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dynamicTitle
}

// ClaimTitle flips the dynamic-title flag. Only the first caller gets true.
func (s *Session) ClaimTitle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dynamicTitle {
		return false
	}
	s.dynamicTitle = true
	return true
}

func (s *Session) Summary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

func (s *Session) SetSummary(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = text
}

func (s *Session) Transcript() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcript.String()
}

// Chunks returns a copy of the chunks appended since the session was
// created or loaded.
func (s *Session) Chunks() []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Chunk(nil), s.chunks...)
}

func (s *Session) IndexLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len()
}

func (s *Session) IndexDim() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Dim()
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) Pending() *Pending {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// AppendChunk embeds text at the next position: index, chunk list,
// transcript and pending queue change together or not at all.
func (s *Session) AppendChunk(text string, vec []float32, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(text, vec, at, false)
}

// AppendBlank stores text whose embedding failed. A zero vector keeps the
// index aligned and the position is never returned by Search.
func (s *Session) AppendBlank(text string, dim int, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.index.Dim(); d > 0 {
		dim = d
	}
	if dim <= 0 {
		dim = 1
	}
	return s.appendLocked(text, make([]float32, dim), at, true)
}

func (s *Session) appendLocked(text string, vec []float32, at time.Time, blank bool) (int, error) {
	if s.status == StatusStopped || s.pending == nil {
		return 0, ErrNotIngesting
	}

	if !blank && len(s.blank) == len(s.chunks) && s.index.Dim() != len(vec) {
		s.redimensionLocked(len(vec))
	}

	pos, err := s.index.Add(vec)
	if err != nil {
		return 0, fmt.Errorf("index add: %w", err)
	}
	if pos != len(s.chunks) {
		panic(fmt.Sprintf("meeting: index position %d out of step with %d chunks", pos, len(s.chunks)))
	}

	if blank {
		s.blank[pos] = true
	}
	s.chunks = append(s.chunks, Chunk{Text: text, At: at})
	s.transcript.WriteString(text)
	s.pending.Push(Item{Pos: pos, Text: text})
	return pos, nil
}

// redimensionLocked rebuilds an index holding only blank vectors at dim.
// The dimension guessed for a blank must not reject the first real vector.
func (s *Session) redimensionLocked(dim int) {
	idx := vindex.NewFlat(0)
	zero := make([]float32, dim)
	for range s.chunks {
		if _, err := idx.Add(zero); err != nil {
			return
		}
	}
	s.index = idx
}

// Search returns the k chunks nearest to vec, skipping positions in exclude.
func (s *Session) Search(vec []float32, k int, exclude map[int]bool) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, err := s.index.Search(vec, k, func(pos int) bool {
		return exclude[pos] || s.blank[pos]
	})
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(ns))
	for _, n := range ns {
		hits = append(hits, Hit{Pos: n.Pos, Text: s.chunks[n.Pos].Text, Distance: n.Distance})
	}
	return hits, nil
}

// Activate moves a stopped session to active with a fresh pending queue.
// Chunks and index survive a stop/resume within one process; a session
// loaded from disk resumes with its transcript as prior text and an empty
// index.
func (s *Session) Activate() (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusStopped {
		return nil, fmt.Errorf("%w: %s -> %s", ErrBadTransition, s.status, StatusActive)
	}

	s.pending = NewPending()
	s.status = StatusActive
	return s.pending, nil
}

// BeginStop moves an active session to stopping. It reports whether the
// transition happened.
func (s *Session) BeginStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive {
		return false
	}
	s.status = StatusStopping
	return true
}

// Finish marks the session stopped and closes its pending queue.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Close()
	}
	s.status = StatusStopped
}

func (s *Session) Record() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Record{
		ID:         s.id,
		Title:      s.title,
		Transcript: s.transcript.String(),
		Summary:    s.summary,
	}
}
