package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Ollama talks to a local Ollama server over its NDJSON /api/chat stream.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama builds a client. The HTTP client must not carry a global
// timeout since summaries stream for a long time; cancellation goes
// through the request context.
func NewOllama(baseURL, model string, client *http.Client) *Ollama {
	if client == nil {
		client = &http.Client{}
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  client,
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

func (o *Ollama) body(req Request) ([]byte, error) {
	msgs := make([]ollamaMessage, 0, len(req.History)+2)
	if req.System != "" {
		msgs = append(msgs, ollamaMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.History {
		msgs = append(msgs, ollamaMessage{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, ollamaMessage{Role: RoleUser, Content: req.User})

	r := ollamaChatRequest{Model: o.model, Messages: msgs, Stream: true}
	if req.Temperature > 0 {
		r.Options = map[string]any{"temperature": req.Temperature}
	}
	return json.Marshal(r)
}

func (o *Ollama) Stream(ctx context.Context, req Request) <-chan Fragment {
	ch := make(chan Fragment)

	go func() {
		defer close(ch)
		if err := o.stream(ctx, req, ch); err != nil {
			send(ctx, ch, Fragment{Err: err})
		}
	}()

	return ch
}

func (o *Ollama) stream(ctx context.Context, req Request, ch chan<- Fragment) error {
	body, err := o.body(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: ollama returned %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("decode stream line: %w", err)
		}
		if chunk.Error != "" {
			return fmt.Errorf("%w: %s", ErrUnavailable, chunk.Error)
		}
		if chunk.Message.Content != "" {
			if !send(ctx, ch, Fragment{Text: chunk.Message.Content}) {
				return nil
			}
		}
		if chunk.Done {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: read stream: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: stream ended without done", ErrUnavailable)
}

func (o *Ollama) Complete(ctx context.Context, req Request) (string, error) {
	return complete(ctx, o, req)
}
