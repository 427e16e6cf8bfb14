package summarize

import (
	"context"
	"fmt"
	"strings"

	"aura/internal/llm"
)

const EmptySummaryReply = "I can't answer yet, the summary is still empty."

// Answerer answers questions from a summary snapshot only.
type Answerer struct {
	client      llm.Client
	temperature float64
}

func NewAnswerer(client llm.Client, temperature float64) *Answerer {
	return &Answerer{client: client, temperature: temperature}
}

func (a *Answerer) Answer(ctx context.Context, summary, question string) (string, error) {
	if strings.TrimSpace(summary) == "" {
		return EmptySummaryReply, nil
	}
	out, err := a.client.Complete(ctx, llm.Request{
		System:      answerSystem,
		User:        answerPrompt(summary, question),
		Temperature: a.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	return strings.TrimSpace(out), nil
}
