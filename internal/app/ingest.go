package app

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"aura/internal/embed"
	"aura/internal/meeting"
)

// ingest receives the worker's output for one session.
type ingest struct {
	c    *Controller
	sess *meeting.Session
	log  *log.Logger
}

// OnChunk embeds text and appends it. When embedding fails the text is
// still kept, under a blank vector that retrieval never returns.
func (in *ingest) OnChunk(text string, at time.Time) {
	id := in.sess.ID()

	ctx, cancel := context.WithTimeout(in.c.ctx, in.c.opt.EmbedTimeout)
	defer cancel()

	var (
		pos int
		err error
	)
	vec, eerr := in.embed(ctx, text)
	if eerr != nil {
		in.log.Warn("Embedding failed, storing chunk without vector", "err", eerr)
		pos, err = in.sess.AppendBlank(text, in.dimension(), at)
	} else if pos, err = in.sess.AppendChunk(text, vec, at); err != nil && !errors.Is(err, meeting.ErrNotIngesting) {
		in.log.Warn("Vector rejected, storing chunk without vector", "err", err)
		pos, err = in.sess.AppendBlank(text, len(vec), at)
	}
	if err != nil {
		in.log.Warn("Chunk dropped", "err", err, "text", text)
		return
	}

	in.log.Debug("Chunk stored", "pos", pos, "chars", len(text))
	in.c.deps.Sink.OnTranscriptChunk(id, text)
}

func (in *ingest) embed(ctx context.Context, text string) ([]float32, error) {
	if in.c.deps.Embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	return embed.One(ctx, in.c.deps.Embedder, text)
}

func (in *ingest) dimension() int {
	if in.c.deps.Embedder == nil {
		return 0
	}
	return in.c.deps.Embedder.Dimension()
}

func (in *ingest) OnVolume(level float64) {
	in.c.deps.Sink.OnVolume(in.sess.ID(), level)
}

func (in *ingest) OnError(err error) {
	in.log.Error("Transcription pass failed", "err", err)
	in.c.deps.Sink.OnTranscriptChunk(in.sess.ID(), fmt.Sprintf("\n[Transcription error: %v]\n", err))
}
