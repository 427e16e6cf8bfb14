package protocol

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
)

func TestParseEvent(t *testing.T) {
	e := Event{Kind: KindTitle, Session: "s1", Text: "Budget Review", At: time.Unix(10, 0).UTC()}
	b, err := e.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseEvent(b)
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if got.Kind != KindTitle || got.Session != "s1" || got.Text != "Budget Review" {
		t.Errorf("ParseEvent() = %+v", got)
	}

	bad := []string{
		`not json`,
		`{"kind":"dance","session":"s1"}`,
		`{"kind":"title"}`,
	}
	for _, s := range bad {
		if _, err := ParseEvent([]byte(s)); err == nil {
			t.Errorf("ParseEvent(%s) error = nil", s)
		}
	}
}

// hub echoes every frame to all connected clients and can drop them.
type hub struct {
	mu    sync.Mutex
	conns []*ws.Conn
}

func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	up := ws.Upgrader{}
	c, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.conns = append(h.conns, c)
	h.mu.Unlock()
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		h.broadcast(msg)
	}
}

func (h *hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.conns {
		c.WriteMessage(ws.TextMessage, msg)
	}
}

func (h *hub) dropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.conns {
		c.Close()
	}
	h.conns = nil
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func TestListenReconnects(t *testing.T) {
	h := &hub{}
	srv := httptest.NewServer(h)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	sub, err := NewWebSocket(url, 10*time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("NewWebSocket() error = %v", err)
	}

	got := make(chan Event, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Listen(ctx, func(e Event) { got <- e })

	waitFor(t, func() bool { return h.count() == 1 })
	h.broadcast([]byte(`{"kind":"status","session":"s1","text":"active"}`))
	if e := <-got; e.Text != "active" {
		t.Errorf("first event = %+v", e)
	}

	h.dropAll()
	waitFor(t, func() bool { return h.count() == 1 })
	h.broadcast([]byte(`garbage`))
	h.broadcast([]byte(`{"kind":"status","session":"s1","text":"stopped"}`))

	select {
	case e := <-got:
		if e.Text != "stopped" {
			t.Errorf("event after reconnect = %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event after reconnect")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
