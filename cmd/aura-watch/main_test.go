package main

import (
	"bytes"
	"strings"
	"testing"

	"aura/internal/render"
	"aura/pkg/protocol"
)

func TestViewerRendersCompleteLines(t *testing.T) {
	var out bytes.Buffer
	v := newViewer(&out, render.Plain, "")

	send := func(k protocol.Kind, text string) {
		v.Handle(protocol.Event{Kind: k, Session: "s1", Text: text})
	}
	send(protocol.KindTitle, "Standup")
	send(protocol.KindSummaryClear, "")
	send(protocol.KindSummaryChunk, "**## Plan ##**\n• Ship")
	send(protocol.KindSummaryChunk, " it\n+ Friday")
	send(protocol.KindStatus, "stopped")

	got := out.String()
	for _, want := range []string{"===== notes: Standup =====", "Plan\n====", "• Ship it", "    - Friday", "* Standup: stopped"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestViewerFiltersSession(t *testing.T) {
	var out bytes.Buffer
	v := newViewer(&out, render.Plain, "s2")
	v.Handle(protocol.Event{Kind: protocol.KindTranscript, Session: "s1", Text: "hidden"})
	if out.Len() != 0 {
		t.Errorf("output = %q, want nothing", out.String())
	}
}
