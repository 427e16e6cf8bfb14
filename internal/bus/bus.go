// Package bus publishes session events to the websocket hub so that
// viewers outside the daemon can follow them.
package bus

import (
	"context"
	log "log/slog"
	"sync"
	"time"

	"aura/pkg/protocol"
)

// Publisher is a ui.Handler that forwards every event to the hub. While the
// hub is unreachable events are dropped and a reconnect runs in the
// background.
type Publisher struct {
	web  *protocol.WebSocket
	from string
	log  *log.Logger

	mu     sync.Mutex
	down   bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func Dial(url, from string, reconn, timeout time.Duration) (*Publisher, error) {
	web, err := protocol.NewWebSocket(url, reconn, timeout)
	if err != nil {
		return nil, err
	}
	log.Info("Connected to bus", "url", url)
	return newPublisher(web, from), nil
}

func newPublisher(web *protocol.WebSocket, from string) *Publisher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Publisher{
		web:    web,
		from:   from,
		log:    log.With("component", "bus", "url", web.URL()),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (p *Publisher) Handle(e protocol.Event) {
	p.mu.Lock()
	down := p.down
	p.mu.Unlock()
	if down {
		return
	}

	e.From = p.from
	b, err := e.Marshal()
	if err != nil {
		p.log.Error("Failed to encode event", "kind", e.Kind, "err", err)
		return
	}
	if err := p.web.Write(b); err != nil {
		p.log.Warn("Bus write failed, reconnecting", "err", err)
		p.reconnect()
	}
}

func (p *Publisher) reconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down || p.ctx.Err() != nil {
		return
	}
	p.down = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.web.TryReconn(p.ctx); err != nil {
			return
		}
		p.log.Info("Reconnected to bus")
		p.mu.Lock()
		p.down = false
		p.mu.Unlock()
	}()
}

func (p *Publisher) Close() error {
	p.cancel()
	p.wg.Wait()
	return p.web.Close()
}
