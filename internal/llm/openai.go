package llm

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(client openai.Client, model string) *OpenAI {
	if model == "" {
		model = string(openai.ChatModelGPT5Nano)
	}
	return &OpenAI{client: client, model: model}
}

func (o *OpenAI) params(req Request) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, m := range req.History {
		switch m.Role {
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(req.User))

	p := openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    openai.ChatModel(o.model),
	}
	// gpt-5 and o-series reasoning models reject a custom temperature.
	if req.Temperature > 0 && !strings.HasPrefix(o.model, "gpt-5") && !strings.HasPrefix(o.model, "o") {
		p.Temperature = openai.Float(req.Temperature)
	}
	return p
}

func (o *OpenAI) Stream(ctx context.Context, req Request) <-chan Fragment {
	ch := make(chan Fragment)

	go func() {
		defer close(ch)

		stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(req))
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			text := chunk.Choices[0].Delta.Content
			if text == "" {
				continue
			}
			if !send(ctx, ch, Fragment{Text: text}) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			log.Debug("Chat stream failed", "model", o.model, "err", err)
			send(ctx, ch, Fragment{Err: fmt.Errorf("%w: chat stream: %v", ErrUnavailable, err)})
		}
	}()

	return ch
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.params(req))
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", ErrEmpty
	}

	log.Debug("Completed", "model", o.model, "chars", len(content))
	return content, nil
}
