package ui

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"aura/pkg/protocol"
)

func TestDispatcherDeliversInOrder(t *testing.T) {
	rec := &Recorder{}
	d := NewDispatcher(4, rec)
	go d.Run()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			d.OnTranscriptChunk("s1", fmt.Sprint(i))
		}
	}()
	wg.Wait()

	if err := d.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	evs := rec.For("s1", protocol.KindTranscript)
	if len(evs) != 100 {
		t.Fatalf("delivered %d events, want 100", len(evs))
	}
	for i, e := range evs {
		if e.Text != fmt.Sprint(i) {
			t.Fatalf("event %d = %q, out of order", i, e.Text)
		}
	}
}

func TestDispatcherDropsVolumeWhenFull(t *testing.T) {
	gate := make(chan struct{})
	rec := &Recorder{}
	d := NewDispatcher(2, HandlerFunc(func(protocol.Event) { <-gate }), rec)
	go d.Run()

	d.OnStatusChanged("s1", "active")
	time.Sleep(10 * time.Millisecond)
	for i := 0; i < 10; i++ {
		d.OnVolume("s1", float64(i))
	}
	if d.Dropped() < 8 {
		t.Errorf("Dropped() = %d, want at least 8", d.Dropped())
	}
	close(gate)
	d.Close(context.Background())

	if got := rec.For("s1", protocol.KindStatus); len(got) != 1 {
		t.Errorf("status events = %d, want 1", len(got))
	}
}

func TestDispatcherIgnoresAfterClose(t *testing.T) {
	rec := &Recorder{}
	d := NewDispatcher(1, rec)
	go d.Run()
	d.Close(context.Background())
	d.OnTitleChanged("s1", "late")
	d.OnVolume("s1", 1)
	if n := len(rec.Events()); n != 0 {
		t.Errorf("events after close = %d, want 0", n)
	}
}

func TestPanelsRedraw(t *testing.T) {
	p := NewPanels()
	send := func(k protocol.Kind, text string) {
		p.Handle(protocol.Event{Kind: k, Session: "s1", Text: text})
	}

	send(protocol.KindStatus, "active")
	send(protocol.KindTranscript, "hello ")
	send(protocol.KindTranscript, "world ")
	send(protocol.KindSummaryClear, "")
	send(protocol.KindSummaryChunk, "**## A ##**\n")
	send(protocol.KindSummaryChunk, "• one")
	send(protocol.KindSummaryClear, "")
	send(protocol.KindSummaryChunk, "**## B ##**\n")
	send(protocol.KindTitle, "Budget Talk")
	p.Handle(protocol.Event{Kind: protocol.KindVolume, Session: "s1", Level: 2.5})

	got, ok := p.Get("s1")
	if !ok {
		t.Fatal("Get(s1) not found")
	}
	want := Panel{
		Session:    "s1",
		Title:      "Budget Talk",
		Status:     "active",
		Transcript: "hello world ",
		Summary:    "**## B ##**\n",
		Level:      2.5,
		Clears:     2,
	}
	if got != want {
		t.Errorf("Get(s1) = %+v, want %+v", got, want)
	}

	if _, ok := p.Get("missing"); ok {
		t.Error("Get(missing) ok = true")
	}
	if len(p.List()) != 1 {
		t.Errorf("List() len = %d, want 1", len(p.List()))
	}
}
