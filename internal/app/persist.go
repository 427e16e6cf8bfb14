package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"

	"aura/internal/meeting"
)

// Load restores stored sessions as stopped sessions.
func (c *Controller) Load(ctx context.Context) error {
	if c.deps.Storage == nil {
		return nil
	}
	recs, err := c.deps.Storage.Load(ctx)
	if err != nil {
		return err
	}
	if err := c.store.Restore(recs); err != nil {
		if !errors.Is(err, meeting.ErrDuplicateID) {
			return err
		}
		c.log.Warn("Some stored sessions were skipped", "err", err)
	}
	for _, s := range c.store.List() {
		c.deps.Sink.OnTitleChanged(s.ID(), s.Title())
		c.deps.Sink.OnStatusChanged(s.ID(), string(s.Status()))
	}
	c.log.Info("Sessions loaded", "count", c.store.Len())
	return nil
}

func (c *Controller) Save(ctx context.Context) error {
	if c.deps.Storage == nil {
		return nil
	}
	if err := c.deps.Storage.Save(ctx, c.store.Records()); err != nil {
		return fmt.Errorf("save sessions: %w", err)
	}
	return nil
}

// StartAutosave saves on the given cron schedule until Close. An empty
// spec disables it.
func (c *Controller) StartAutosave(spec string) error {
	if spec == "" || c.deps.Storage == nil {
		return nil
	}

	cr := cron.New()
	_, err := cr.AddFunc(spec, func() {
		if err := c.Save(c.ctx); err != nil {
			c.log.Warn("Autosave failed", "err", err)
			return
		}
		c.log.Debug("Autosaved", "sessions", c.store.Len())
	})
	if err != nil {
		return fmt.Errorf("autosave schedule %q: %w", spec, err)
	}

	c.mu.Lock()
	c.cron = cr
	c.mu.Unlock()
	cr.Start()
	c.log.Info("Autosave scheduled", "spec", spec)
	return nil
}

func (c *Controller) stopAutosave() {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()
	if cr != nil {
		<-cr.Stop().Done()
	}
}

// Export writes the title, summary and transcript of id as text. An empty
// path derives a file name from the title. The written path is returned.
func (c *Controller) Export(id, path string) (string, error) {
	sess, err := c.store.Get(id)
	if err != nil {
		return "", err
	}
	rec := sess.Record()
	if path == "" {
		path = fileName(rec.Title) + ".txt"
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(FormatExport(rec)), 0o644); err != nil {
		return "", fmt.Errorf("export %s: %w", id, err)
	}
	c.log.Info("Session exported", "session", id, "path", path)
	return path, nil
}

func FormatExport(r meeting.Record) string {
	var b strings.Builder
	b.WriteString("--- " + r.Title + " ---\n\n")
	b.WriteString("--- SUMMARY ---\n")
	b.WriteString(r.Summary)
	b.WriteString("\n\n--- FULL TRANSCRIPT ---\n")
	b.WriteString(r.Transcript)
	return b.String()
}

func fileName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		return "meeting"
	}
	return name
}
