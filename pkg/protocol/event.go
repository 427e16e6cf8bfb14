package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindTranscript   Kind = "transcript"
	KindVolume       Kind = "volume"
	KindSummaryClear Kind = "summary_clear"
	KindSummaryChunk Kind = "summary_chunk"
	KindTitle        Kind = "title"
	KindStatus       Kind = "status"
	KindNotice       Kind = "notice"
)

var kinds = map[Kind]struct{}{
	KindTranscript: {}, KindVolume: {}, KindSummaryClear: {}, KindSummaryChunk: {},
	KindTitle: {}, KindStatus: {}, KindNotice: {},
}

// Event is one UI update for a session, as sent over the bus.
type Event struct {
	From    string    `json:"from,omitempty"`
	Kind    Kind      `json:"kind"`
	Session string    `json:"session"`
	Text    string    `json:"text,omitempty"`
	Level   float64   `json:"level,omitempty"`
	At      time.Time `json:"at"`
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func ParseEvent(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, fmt.Errorf("parse event: %w", err)
	}
	if _, ok := kinds[e.Kind]; !ok {
		return Event{}, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.Session == "" {
		return Event{}, errors.New("event without session")
	}
	return e, nil
}
