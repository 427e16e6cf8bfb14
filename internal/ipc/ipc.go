// Package ipc is the daemon's control channel: one JSON request and one
// JSON reply per unix socket connection.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"sync"
	"time"
)

const DefaultSocketPath = "/tmp/aura.sock"

const (
	CmdNew     = "new"
	CmdToggle  = "toggle"
	CmdStart   = "start"
	CmdStop    = "stop"
	CmdDelete  = "delete"
	CmdAsk     = "ask"
	CmdExport  = "export"
	CmdImport  = "import"
	CmdList    = "list"
	CmdShow    = "show"
	CmdSave    = "save"
	CmdDevices = "devices"
)

type Request struct {
	Cmd  string `json:"cmd"`
	ID   string `json:"id,omitempty"`
	Text string `json:"text,omitempty"`
	Path string `json:"path,omitempty"`
}

type SessionInfo struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

type Reply struct {
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Text     string        `json:"text,omitempty"`
	Sessions []SessionInfo `json:"sessions,omitempty"`
}

func Fail(err error) Reply {
	return Reply{Error: err.Error()}
}

type Handler func(ctx context.Context, req Request) Reply

type Server struct {
	path    string
	ln      net.Listener
	handler Handler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StartServer listens on path, replacing a stale socket, and serves
// requests on background goroutines until Close.
func StartServer(path string, handler Handler) (*Server, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{path: path, ln: ln, handler: handler, ctx: ctx, cancel: cancel}

	s.wg.Add(1)
	go s.accept()
	return s, nil
}

func (s *Server) Path() string { return s.path }

func (s *Server) accept() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("IPC accept failed", "err", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		log.Warn("Bad IPC request", "err", err)
		json.NewEncoder(conn).Encode(Fail(fmt.Errorf("decode request: %w", err)))
		return
	}

	log.Debug("IPC request", "cmd", req.Cmd, "id", req.ID)
	reply := s.handler(s.ctx, req)
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		log.Warn("IPC reply failed", "cmd", req.Cmd, "err", err)
	}
}

// Close stops accepting, cancels in-flight handlers and removes the socket.
func (s *Server) Close() error {
	s.cancel()
	err := s.ln.Close()
	s.wg.Wait()
	os.Remove(s.path)
	return err
}

// Send delivers req to the daemon at path and waits for the reply.
func Send(ctx context.Context, path string, req Request) (Reply, error) {
	if path == "" {
		path = DefaultSocketPath
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Reply{}, fmt.Errorf("connect to daemon: %w", err)
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	} else {
		conn.SetDeadline(time.Now().Add(5 * time.Minute))
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Reply{}, fmt.Errorf("send request: %w", err)
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	if !reply.OK && reply.Error != "" {
		return reply, errors.New(reply.Error)
	}
	return reply, nil
}
