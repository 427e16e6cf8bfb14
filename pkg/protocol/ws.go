package protocol

import (
	"context"
	log "log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

// WebSocket is a bus connection that can be re-dialled after the hub drops it.
type WebSocket struct {
	mu      sync.Mutex
	conn    *ws.Conn
	url     string
	reconn  time.Duration
	timeout time.Duration
}

func NewWebSocket(url string, reconn, timeout time.Duration) (*WebSocket, error) {
	log.Debug("Dialing bus", "url", url)

	if reconn <= 0 {
		reconn = time.Second
	}
	web := &WebSocket{
		url:     url,
		reconn:  reconn,
		timeout: timeout,
	}

	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	web.conn = conn

	return web, nil
}

func (web *WebSocket) URL() string { return web.url }

func (web *WebSocket) current() *ws.Conn {
	web.mu.Lock()
	defer web.mu.Unlock()
	return web.conn
}

func (web *WebSocket) Write(payload []byte) error {
	web.mu.Lock()
	defer web.mu.Unlock()
	if web.timeout > 0 {
		_ = web.conn.SetWriteDeadline(time.Now().Add(web.timeout))
	}
	return web.conn.WriteMessage(ws.TextMessage, payload)
}

type IncomeKind uint

const (
	ConnClosed IncomeKind = iota
	ReadFailure
	ReadOK
)

type Income struct {
	Kind IncomeKind
	Msg  []byte
	Err  error
}

func (web *WebSocket) Read() Income {
	_, msg, err := web.current().ReadMessage()
	if err != nil {
		if WsIsClosed(err) {
			return Income{Kind: ConnClosed, Err: err}
		}
		return Income{Kind: ReadFailure, Err: err}
	}
	return Income{Kind: ReadOK, Msg: msg}
}

// TryReconn dials until it succeeds or ctx ends.
func (web *WebSocket) TryReconn(ctx context.Context) error {
	for {
		conn, _, err := ws.DefaultDialer.DialContext(ctx, web.url, nil)
		if err == nil {
			web.mu.Lock()
			old := web.conn
			web.conn = conn
			web.mu.Unlock()
			if old != nil {
				old.Close()
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(web.reconn):
		}
	}
}

func (web *WebSocket) Close() error {
	web.mu.Lock()
	defer web.mu.Unlock()
	_ = web.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return web.conn.Close()
}

func WsIsClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}

// Listen passes every bus event to handle until ctx ends, re-dialling
// whenever the connection drops. Malformed frames are logged and skipped.
func (web *WebSocket) Listen(ctx context.Context, handle func(Event)) error {
	go func() {
		<-ctx.Done()
		web.current().Close()
	}()

	for {
		in := web.Read()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch in.Kind {
		case ConnClosed, ReadFailure:
			log.Warn("Bus connection lost, reconnecting", "url", web.url, "err", in.Err)
			if err := web.TryReconn(ctx); err != nil {
				return err
			}
			log.Info("Reconnected to bus", "url", web.url)

		case ReadOK:
			ev, err := ParseEvent(in.Msg)
			if err != nil {
				log.Debug("Skipping bus frame", "err", err)
				continue
			}
			handle(ev)
		}
	}
}
