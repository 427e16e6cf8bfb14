package meeting

import (
	"fmt"
	"sync"
)

// Record is the persisted form of a session. Vector index and audio state
// are never saved.
type Record struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Transcript string `json:"transcript"`
	Summary    string `json:"summary"`
}

// Store is the registry of sessions, kept in creation order.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

func (st *Store) Add(s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[s.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, s.ID())
	}
	st.sessions[s.ID()] = s
	st.order = append(st.order, s.ID())
	return nil
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(st.sessions, id)
	for i, v := range st.order {
		if v == id {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
	return nil
}

func (st *Store) List() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Session, 0, len(st.order))
	for _, id := range st.order {
		out = append(out, st.sessions[id])
	}
	return out
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.order)
}

// CountActive counts sessions that are active or still stopping.
func (st *Store) CountActive() int {
	n := 0
	for _, s := range st.List() {
		if s.Status() != StatusStopped {
			n++
		}
	}
	return n
}

func (st *Store) Records() []Record {
	list := st.List()
	out := make([]Record, 0, len(list))
	for _, s := range list {
		out = append(out, s.Record())
	}
	return out
}

// Restore adds stopped sessions built from recs. Records whose id is
// already present are skipped and counted in the returned error.
func (st *Store) Restore(recs []Record) error {
	var dup int
	for _, r := range recs {
		if r.ID == "" {
			continue
		}
		if err := st.Add(FromRecord(r)); err != nil {
			dup++
		}
	}
	if dup > 0 {
		return fmt.Errorf("%w: %d records skipped", ErrDuplicateID, dup)
	}
	return nil
}
