package ui

import (
	"strings"
	"sync"

	"aura/pkg/protocol"
)

// Panel is what a viewer shows for one session.
type Panel struct {
	Session    string
	Title      string
	Status     string
	Transcript string
	Summary    string
	Level      float64
	Notice     string
	// Clears counts summary redraws.
	Clears int
}

// Panels rebuilds per-session view state from events. A clear wipes the
// summary so each cycle redraws it from scratch.
type Panels struct {
	mu     sync.RWMutex
	panels map[string]*panelState
	order  []string
}

type panelState struct {
	Panel
	transcript strings.Builder
	summary    strings.Builder
}

func NewPanels() *Panels {
	return &Panels{panels: make(map[string]*panelState)}
}

func (p *Panels) Handle(e protocol.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ps, ok := p.panels[e.Session]
	if !ok {
		ps = &panelState{Panel: Panel{Session: e.Session}}
		p.panels[e.Session] = ps
		p.order = append(p.order, e.Session)
	}

	switch e.Kind {
	case protocol.KindTranscript:
		ps.transcript.WriteString(e.Text)
	case protocol.KindVolume:
		ps.Level = e.Level
	case protocol.KindSummaryClear:
		ps.summary.Reset()
		ps.Clears++
	case protocol.KindSummaryChunk:
		ps.summary.WriteString(e.Text)
	case protocol.KindTitle:
		ps.Title = e.Text
	case protocol.KindStatus:
		ps.Status = e.Text
	case protocol.KindNotice:
		ps.Notice = e.Text
	}
}

func (p *Panels) Get(session string) (Panel, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ps, ok := p.panels[session]
	if !ok {
		return Panel{}, false
	}
	return ps.snapshot(), true
}

func (p *Panels) List() []Panel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Panel, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.panels[id].snapshot())
	}
	return out
}

func (ps *panelState) snapshot() Panel {
	out := ps.Panel
	out.Transcript = ps.transcript.String()
	out.Summary = ps.summary.String()
	return out
}
