package summarize

import (
	"context"
	log "log/slog"
	"strings"
	"unicode/utf8"

	"aura/internal/llm"
)

const MaxTitleRunes = 80

// Titler names a session from its first summary.
type Titler struct {
	client      llm.Client
	temperature float64
}

func NewTitler(client llm.Client, temperature float64) *Titler {
	return &Titler{client: client, temperature: temperature}
}

// Generate asks for a 3-5 word title. It reports false when the model
// fails or the answer is not usable as a title.
func (t *Titler) Generate(ctx context.Context, summary string) (string, bool) {
	out, err := t.client.Complete(ctx, llm.Request{
		System:      titleSystem,
		User:        titlePrompt(summary),
		Temperature: t.temperature,
	})
	if err != nil {
		log.Warn("Title generation failed", "err", err)
		return "", false
	}
	title := CleanTitle(out)
	if title == "" {
		return "", false
	}
	return title, true
}

// CleanTitle keeps the first line of out without wrapping quotes. It
// returns "" when nothing usable remains or the line is too long.
func CleanTitle(out string) string {
	s := strings.TrimSpace(out)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'“”*#")
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > MaxTitleRunes {
		return ""
	}
	return s
}
