package ui

import (
	log "log/slog"
	"sync"

	"aura/pkg/protocol"
)

// LogHandler writes events to the structured log. Volume and summary
// fragments go to debug since they arrive many times a second.
type LogHandler struct {
	Logger *log.Logger
}

func (h LogHandler) Handle(e protocol.Event) {
	l := h.Logger
	if l == nil {
		l = log.Default()
	}
	switch e.Kind {
	case protocol.KindVolume, protocol.KindSummaryChunk, protocol.KindSummaryClear:
		l.Debug("UI event", "kind", e.Kind, "session", e.Session, "text", e.Text, "level", e.Level)
	case protocol.KindTranscript:
		l.Info("Transcript", "session", e.Session, "text", e.Text)
	case protocol.KindTitle:
		l.Info("Title changed", "session", e.Session, "title", e.Text)
	case protocol.KindStatus:
		l.Info("Status changed", "session", e.Session, "status", e.Text)
	case protocol.KindNotice:
		if e.Text != "" {
			l.Info("Notice", "session", e.Session, "text", e.Text)
		}
	}
}

// Recorder keeps every event it handles.
type Recorder struct {
	mu     sync.Mutex
	events []protocol.Event
}

func (r *Recorder) Handle(e protocol.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []protocol.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Event(nil), r.events...)
}

// For returns the events of one session, optionally filtered by kind.
func (r *Recorder) For(session string, kinds ...protocol.Kind) []protocol.Event {
	var out []protocol.Event
	for _, e := range r.Events() {
		if e.Session != session {
			continue
		}
		if len(kinds) > 0 && !hasKind(kinds, e.Kind) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func hasKind(kinds []protocol.Kind, k protocol.Kind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}
