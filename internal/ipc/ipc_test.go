package ipc

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aura.sock")
	srv, err := StartServer(path, func(ctx context.Context, req Request) Reply {
		switch req.Cmd {
		case CmdList:
			return Reply{OK: true, Sessions: []SessionInfo{{ID: "a", Title: "Standup", Status: "active", Chunks: 3}}}
		case CmdAsk:
			return Reply{OK: true, Text: "answer to " + req.Text}
		default:
			return Fail(errors.New("unknown command " + req.Cmd))
		}
	})
	if err != nil {
		t.Fatalf("StartServer() error = %v", err)
	}
	defer srv.Close()

	ctx := context.Background()

	r, err := Send(ctx, path, Request{Cmd: CmdList})
	if err != nil {
		t.Fatalf("Send(list) error = %v", err)
	}
	if len(r.Sessions) != 1 || r.Sessions[0].Title != "Standup" || r.Sessions[0].Chunks != 3 {
		t.Errorf("Send(list) = %+v", r)
	}

	r, err = Send(ctx, path, Request{Cmd: CmdAsk, ID: "a", Text: "budget?"})
	if err != nil || r.Text != "answer to budget?" {
		t.Errorf("Send(ask) = %+v, %v", r, err)
	}

	if _, err := Send(ctx, path, Request{Cmd: "dance"}); err == nil || err.Error() != "unknown command dance" {
		t.Errorf("Send(dance) error = %v", err)
	}
}

func TestSendWithoutDaemon(t *testing.T) {
	_, err := Send(context.Background(), filepath.Join(t.TempDir(), "none.sock"), Request{Cmd: CmdList})
	if err == nil {
		t.Error("Send() error = nil without a server")
	}
}
