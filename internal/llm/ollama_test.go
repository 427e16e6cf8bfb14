package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func ollamaServer(t *testing.T, lines []string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !req.Stream {
			t.Error("request Stream = false, want true")
		}
		if len(req.Messages) == 0 || req.Messages[0].Role != "system" {
			t.Errorf("first message = %+v, want system", req.Messages)
		}
		w.WriteHeader(status)
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	}))
}

func TestOllamaStream(t *testing.T) {
	srv := ollamaServer(t, []string{
		`{"message":{"role":"assistant","content":"**## Budget ##**\n"},"done":false}`,
		`{"message":{"role":"assistant","content":"• ok"},"done":false}`,
		`{"message":{"role":"assistant","content":""},"done":true}`,
	}, http.StatusOK)
	defer srv.Close()

	c := NewOllama(srv.URL, "llama3.1", nil)
	out, err := Collect(c.Stream(context.Background(), Request{System: "s", User: "u", Temperature: 0.6}))
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if out != "**## Budget ##**\n• ok" {
		t.Errorf("Stream() = %q", out)
	}
}

func TestOllamaStreamTruncated(t *testing.T) {
	srv := ollamaServer(t, []string{
		`{"message":{"role":"assistant","content":"partial"},"done":false}`,
	}, http.StatusOK)
	defer srv.Close()

	c := NewOllama(srv.URL, "llama3.1", nil)
	out, err := Collect(c.Stream(context.Background(), Request{System: "s", User: "u"}))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Stream() error = %v, want ErrUnavailable", err)
	}
	if out != "partial" {
		t.Errorf("Stream() text before error = %q, want partial", out)
	}
}

func TestOllamaStatusError(t *testing.T) {
	srv := ollamaServer(t, []string{`{"error":"model not found"}`}, http.StatusNotFound)
	defer srv.Close()

	c := NewOllama(srv.URL, "missing", nil)
	if _, err := c.Complete(context.Background(), Request{System: "s", User: "u"}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Complete() error = %v, want ErrUnavailable", err)
	}
}

func TestOllamaUnreachable(t *testing.T) {
	c := NewOllama("http://127.0.0.1:1", "m", nil)
	_, err := Collect(c.Stream(context.Background(), Request{System: "s", User: "u"}))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Stream() error = %v, want ErrUnavailable", err)
	}
}

func TestCompleteEmpty(t *testing.T) {
	srv := ollamaServer(t, []string{`{"message":{"content":"  "},"done":true}`}, http.StatusOK)
	defer srv.Close()

	c := NewOllama(srv.URL, "m", nil)
	if _, err := c.Complete(context.Background(), Request{System: "s", User: "u"}); !errors.Is(err, ErrEmpty) {
		t.Errorf("Complete() error = %v, want ErrEmpty", err)
	}
}
