// Package app owns the meeting sessions: it starts and stops their capture,
// transcription and summarizer goroutines and keeps them on disk.
package app

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"aura/internal/audio"
	"aura/internal/embed"
	"aura/internal/llm"
	"aura/internal/meeting"
	"aura/internal/notify"
	"aura/internal/storage"
	"aura/internal/summarize"
	"aura/internal/transcribe"
	"aura/internal/ui"
)

var (
	ErrTooManyActive = errors.New("too many active sessions")
	ErrNoDevices     = errors.New("device listing unavailable")
)

type Opener interface {
	OpenSource(ctx context.Context, selector string) (audio.Source, error)
}

type DeviceLister interface {
	Devices() ([]audio.DeviceInfo, error)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Engine   transcribe.Engine
	LLM      llm.Client
	Embedder embed.Provider
	Sink     ui.Sink
	Storage  storage.Backend
	Opener   Opener
	Devices  DeviceLister
	Notifier notify.Notifier
	Logger   *log.Logger
}

type Options struct {
	// Device is the capture selector passed to Opener.
	Device       string
	MaxActive    int
	BlockFrames  int
	Temperature  float64
	EmbedTimeout time.Duration
	Transcribe   transcribe.Config
	Summarize    summarize.Config
}

type Controller struct {
	deps     Deps
	opt      Options
	log      *log.Logger
	store    *meeting.Store
	titler   *summarize.Titler
	answerer *summarize.Answerer

	mu   sync.Mutex
	runs map[string]*run
	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// run is the goroutine set behind one active session.
type run struct {
	src    audio.Source
	worker *transcribe.Worker
	summ   *summarize.Summarizer
	done   chan struct{}
}

func New(deps Deps, opt Options) *Controller {
	if opt.MaxActive <= 0 {
		opt.MaxActive = 1
	}
	if opt.EmbedTimeout <= 0 {
		opt.EmbedTimeout = 30 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Multi{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		deps:     deps,
		opt:      opt,
		log:      deps.Logger.With("component", "controller"),
		store:    meeting.NewStore(),
		titler:   summarize.NewTitler(deps.LLM, opt.Temperature),
		answerer: summarize.NewAnswerer(deps.LLM, opt.Temperature),
		runs:     make(map[string]*run),
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}
}

func (c *Controller) Store() *meeting.Store { return c.store }

func (c *Controller) Get(id string) (*meeting.Session, error) {
	return c.store.Get(id)
}

func (c *Controller) List() []*meeting.Session {
	return c.store.List()
}

// Create adds a stopped session with a default title.
func (c *Controller) Create() *meeting.Session {
	sess := meeting.New(uuid.NewString(), c.now())
	if err := c.store.Add(sess); err != nil {
		c.log.Error("Failed to add session", "session", sess.ID(), "err", err)
	}
	c.log.Info("Session created", "session", sess.ID(), "title", sess.Title())
	c.deps.Sink.OnTitleChanged(sess.ID(), sess.Title())
	c.deps.Sink.OnStatusChanged(sess.ID(), string(sess.Status()))
	return sess
}

// NewSession creates a session and starts capturing into it.
func (c *Controller) NewSession(ctx context.Context) (*meeting.Session, error) {
	sess := c.Create()
	if err := c.Start(ctx, sess.ID()); err != nil {
		return sess, err
	}
	return sess, nil
}

// Start begins or resumes live capture for id.
func (c *Controller) Start(ctx context.Context, id string) error {
	sess, err := c.store.Get(id)
	if err != nil {
		return err
	}
	return c.start(ctx, sess, func(ctx context.Context) (audio.Source, error) {
		if c.deps.Opener == nil {
			return nil, &audio.DeviceError{Device: c.opt.Device, Err: audio.ErrNoDevice}
		}
		return c.deps.Opener.OpenSource(ctx, c.opt.Device)
	})
}

// Import creates a session fed from an audio file. The session stops by
// itself once the file has been transcribed and summarized.
func (c *Controller) Import(ctx context.Context, path string) (*meeting.Session, error) {
	sess := c.Create()
	err := c.start(ctx, sess, func(ctx context.Context) (audio.Source, error) {
		fs, err := audio.OpenFile(ctx, path, c.opt.BlockFrames)
		if err != nil {
			return nil, err
		}
		return fs, nil
	})
	if err != nil {
		if derr := c.store.Delete(sess.ID()); derr != nil {
			c.log.Warn("Failed to drop import session", "session", sess.ID(), "err", derr)
		}
		c.deps.Sink.OnStatusChanged(sess.ID(), "deleted")
		return nil, err
	}
	return sess, nil
}

func (c *Controller) start(ctx context.Context, sess *meeting.Session, open func(context.Context) (audio.Source, error)) error {
	id := sess.ID()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, running := c.runs[id]; running || sess.Status() != meeting.StatusStopped {
		return fmt.Errorf("%w: session %s is %s", meeting.ErrBadTransition, id, sess.Status())
	}
	if n := c.store.CountActive(); n >= c.opt.MaxActive {
		return fmt.Errorf("%w: %d of %d running", ErrTooManyActive, n, c.opt.MaxActive)
	}

	src, err := open(ctx)
	if err != nil {
		var de *audio.DeviceError
		if errors.As(err, &de) {
			c.deviceFailed(sess, de)
		}
		return fmt.Errorf("open source: %w", err)
	}

	pending, err := sess.Activate()
	if err != nil {
		src.Close()
		return err
	}

	logger := c.deps.Logger.With("session", id)
	sink := &ingest{c: c, sess: sess, log: logger.With("component", "ingest")}
	r := &run{
		src:    src,
		worker: transcribe.NewWorker(src, c.deps.Engine, sink, c.opt.Transcribe, logger),
		summ:   summarize.New(sess, c.deps.LLM, c.deps.Embedder, c.deps.Sink, c.titler, c.opt.Summarize, logger),
		done:   make(chan struct{}),
	}
	c.runs[id] = r

	c.wg.Add(1)
	go c.supervise(sess, r, pending)

	c.log.Info("Session started", "session", id, "title", sess.Title(), "resumed", sess.Transcript() != "")
	c.deps.Sink.OnStatusChanged(id, string(meeting.StatusActive))
	c.notify(notify.Started, sess.Title(), "Meeting capture started")
	return nil
}

// supervise runs the stop sequence once the worker returns: close the
// source, close pending, let the summarizer flush, then mark stopped.
func (c *Controller) supervise(sess *meeting.Session, r *run, pending *meeting.Pending) {
	defer c.wg.Done()
	id := sess.ID()

	sumDone := make(chan error, 1)
	go func() { sumDone <- r.summ.Run(c.ctx, pending) }()

	werr := r.worker.Run(c.ctx)
	var de *audio.DeviceError
	switch {
	case errors.As(werr, &de):
		c.deviceFailed(sess, de)
	case werr != nil && !errors.Is(werr, context.Canceled):
		c.log.Error("Transcription stopped", "session", id, "err", werr)
	}

	if sess.BeginStop() {
		c.deps.Sink.OnStatusChanged(id, string(meeting.StatusStopping))
	}
	if err := r.src.Close(); err != nil {
		c.log.Warn("Failed to close source", "session", id, "err", err)
	}
	pending.Close()

	if err := <-sumDone; err != nil && !errors.Is(err, context.Canceled) {
		c.log.Error("Summarizer stopped", "session", id, "err", err)
	}

	c.mu.Lock()
	delete(c.runs, id)
	sess.Finish()
	c.mu.Unlock()

	c.log.Info("Session stopped", "session", id, "chunks", len(sess.Chunks()))
	c.deps.Sink.OnStatusChanged(id, string(meeting.StatusStopped))
	c.notify(notify.Stopped, sess.Title(), "Meeting capture stopped")
	close(r.done)
}

// Stop asks an active session to stop and returns without waiting for the
// final summary. Stopping a session that is already stopping is a no-op.
func (c *Controller) Stop(id string) error {
	sess, err := c.store.Get(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	r := c.runs[id]
	c.mu.Unlock()

	if !sess.BeginStop() {
		if sess.Status() == meeting.StatusStopping {
			return nil
		}
		return fmt.Errorf("%w: session %s is %s", meeting.ErrBadTransition, id, sess.Status())
	}
	c.log.Info("Stopping session", "session", id)
	c.deps.Sink.OnStatusChanged(id, string(meeting.StatusStopping))

	if r != nil {
		r.worker.Stop()
		if err := r.src.Close(); err != nil {
			c.log.Warn("Failed to close source", "session", id, "err", err)
		}
	}
	return nil
}

// Wait blocks until id has fully stopped or ctx ends.
func (c *Controller) Wait(ctx context.Context, id string) error {
	c.mu.Lock()
	r := c.runs[id]
	c.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Toggle stops id when it runs and starts it otherwise. With no id it
// stops every running session, or starts a new one when none runs.
func (c *Controller) Toggle(ctx context.Context, id string) (*meeting.Session, error) {
	if id == "" {
		var stopped *meeting.Session
		for _, s := range c.store.List() {
			if s.Status() == meeting.StatusActive {
				if err := c.Stop(s.ID()); err != nil {
					return s, err
				}
				stopped = s
			}
		}
		if stopped != nil {
			return stopped, nil
		}
		return c.NewSession(ctx)
	}

	sess, err := c.store.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.Status() == meeting.StatusStopped {
		return sess, c.Start(ctx, id)
	}
	return sess, c.Stop(id)
}

// Delete stops id if needed, waits for it and forgets it.
func (c *Controller) Delete(ctx context.Context, id string) error {
	sess, err := c.store.Get(id)
	if err != nil {
		return err
	}
	if sess.Status() == meeting.StatusActive {
		if err := c.Stop(id); err != nil {
			return err
		}
	}
	if err := c.Wait(ctx, id); err != nil {
		return fmt.Errorf("wait for %s: %w", id, err)
	}
	if err := c.store.Delete(id); err != nil {
		return err
	}
	c.log.Info("Session deleted", "session", id, "title", sess.Title())
	c.deps.Sink.OnStatusChanged(id, "deleted")
	return nil
}

// Ask answers question from the current summary of id and shows the
// exchange under the summary.
func (c *Controller) Ask(ctx context.Context, id, question string) (string, error) {
	sess, err := c.store.Get(id)
	if err != nil {
		return "", err
	}
	answer, err := c.answerer.Answer(ctx, sess.Summary(), question)
	if err != nil {
		c.log.Error("Q&A failed", "session", id, "err", err)
		return "", err
	}
	c.deps.Sink.OnSummaryChunk(id, "\n\nQ: "+question+"\nA: "+answer+"\n")
	return answer, nil
}

func (c *Controller) Devices() ([]audio.DeviceInfo, error) {
	if c.deps.Devices == nil {
		return nil, ErrNoDevices
	}
	return c.deps.Devices.Devices()
}

func (c *Controller) deviceFailed(sess *meeting.Session, de *audio.DeviceError) {
	c.log.Error("Audio device failed", "session", sess.ID(), "device", de.Device, "err", de.Err)
	c.deps.Sink.OnNotice(sess.ID(), "Audio device error: "+de.Error())
	c.notify(notify.DeviceFailed, "Audio device error", de.Error())
}

func (c *Controller) notify(ev notify.Event, title, body string) {
	if err := c.deps.Notifier.Notify(c.ctx, ev, title, body); err != nil {
		c.log.Warn("Notification failed", "event", ev, "err", err)
	}
}

// Close stops every session, waits for their final summaries until ctx
// ends, then saves.
func (c *Controller) Close(ctx context.Context) error {
	c.stopAutosave()

	for _, s := range c.store.List() {
		if s.Status() == meeting.StatusActive {
			c.Stop(s.ID())
		}
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.log.Warn("Shutdown deadline reached, abandoning summaries")
		c.cancel()
		<-done
	}
	c.cancel()

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return c.Save(saveCtx)
}
