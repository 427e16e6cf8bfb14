// Package summarize keeps a session's notes up to date from its transcript
// and answers questions about them.
package summarize

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sort"
	"strings"
	"time"

	"aura/internal/embed"
	"aura/internal/llm"
	"aura/internal/meeting"
	"aura/internal/ui"
)

const thinkingNotice = "Thinking..."

type Config struct {
	Interval    time.Duration
	TopK        int
	Poll        time.Duration
	Temperature float64
}

func (c *Config) setDefaults() {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.Poll <= 0 {
		c.Poll = time.Second
	}
}

// Summarizer runs the batch -> retrieve -> stream cycle for one session.
type Summarizer struct {
	sess   *meeting.Session
	client llm.Client
	emb    embed.Provider
	sink   ui.Sink
	titler *Titler
	cfg    Config
	log    *log.Logger
	now    func() time.Time
}

func New(sess *meeting.Session, client llm.Client, emb embed.Provider, sink ui.Sink, titler *Titler, cfg Config, logger *log.Logger) *Summarizer {
	cfg.setDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &Summarizer{
		sess:   sess,
		client: client,
		emb:    emb,
		sink:   sink,
		titler: titler,
		cfg:    cfg,
		log:    logger.With("component", "summarizer", "session", sess.ID()),
		now:    time.Now,
	}
}

// Run consumes the pending queue until it is closed, then flushes what is
// left in one final cycle. It returns early only if ctx ends.
func (s *Summarizer) Run(ctx context.Context, pending *meeting.Pending) error {
	tick := time.NewTicker(s.cfg.Poll)
	defer tick.Stop()

	var batch []meeting.Item
	last := s.now()

	for {
		select {
		case <-pending.Ready():
		case <-pending.Done():
		case <-tick.C:
		case <-ctx.Done():
			return ctx.Err()
		}

		// Push is refused once closed, so this drain is the last one.
		closed := pending.Closed()
		batch = append(batch, pending.Drain()...)

		if len(batch) > 0 && (closed || s.now().Sub(last) >= s.cfg.Interval) {
			s.Cycle(ctx, batch)
			batch = nil
			last = s.now()
		}

		if closed {
			s.log.Info("Summarizer finished")
			return nil
		}
	}
}

// Cycle merges one batch into the session summary. It reports whether the
// summary was replaced.
func (s *Summarizer) Cycle(ctx context.Context, batch []meeting.Item) bool {
	id := s.sess.ID()

	var nb strings.Builder
	exclude := make(map[int]bool, len(batch))
	for _, it := range batch {
		nb.WriteString(it.Text)
		exclude[it.Pos] = true
	}
	newText := nb.String()
	if strings.TrimSpace(newText) == "" {
		return false
	}

	s.sink.OnNotice(id, thinkingNotice)
	defer s.sink.OnNotice(id, "")

	hits := s.retrieve(ctx, newText, exclude)
	previous := s.sess.Summary()

	req := llm.Request{
		System:      notesSystem,
		User:        notesPrompt(previous, hits, newText),
		Temperature: s.cfg.Temperature,
	}

	s.sink.OnSummaryClear(id)
	full, emitted, err := s.stream(ctx, req)
	if err == nil && strings.TrimSpace(full) == "" {
		err = llm.ErrEmpty
	}
	if err != nil {
		s.log.Error("Summary update failed", "err", err, "batch", len(batch))
		if emitted {
			s.sink.OnSummaryClear(id)
		}
		s.sink.OnSummaryChunk(id, fmt.Sprintf("[Summary update failed: %v]\n", err))
		if previous != "" {
			s.sink.OnSummaryChunk(id, previous)
		}
		return false
	}

	s.sess.SetSummary(full)
	s.log.Debug("Summary updated", "batch", len(batch), "context", len(hits), "chars", len(full))

	if s.titler != nil && s.sess.ClaimTitle() {
		if title, ok := s.titler.Generate(ctx, full); ok {
			s.sess.SetTitle(title)
			s.sink.OnTitleChanged(id, title)
			s.log.Info("Session titled", "title", title)
		}
	}
	return true
}

// retrieve finds earlier chunks close to text, oldest first. Failures
// leave the prompt without context.
func (s *Summarizer) retrieve(ctx context.Context, text string, exclude map[int]bool) []meeting.Hit {
	if s.emb == nil {
		return nil
	}
	vec, err := embed.One(ctx, s.emb, text)
	if err != nil {
		s.log.Warn("Embedding batch failed, summarizing without context", "err", err)
		return nil
	}
	hits, err := s.sess.Search(vec, s.cfg.TopK, exclude)
	if err != nil {
		s.log.Warn("Context search failed", "err", err)
		return nil
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Pos < hits[j].Pos })
	return hits
}

// stream forwards complete lines to the sink as they arrive and the
// trailing partial line at the end.
func (s *Summarizer) stream(ctx context.Context, req llm.Request) (full string, emitted bool, err error) {
	id := s.sess.ID()
	var all, line strings.Builder

	for f := range s.client.Stream(ctx, req) {
		if f.Err != nil {
			err = f.Err
			continue
		}
		all.WriteString(f.Text)
		line.WriteString(f.Text)

		buf := line.String()
		if i := strings.LastIndexByte(buf, '\n'); i >= 0 {
			s.sink.OnSummaryChunk(id, buf[:i+1])
			emitted = true
			line.Reset()
			line.WriteString(buf[i+1:])
		}
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		if !errors.Is(err, llm.ErrUnavailable) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", llm.ErrUnavailable, err)
		}
		return all.String(), emitted, err
	}

	if line.Len() > 0 {
		s.sink.OnSummaryChunk(id, line.String())
		emitted = true
	}
	return all.String(), emitted, nil
}
