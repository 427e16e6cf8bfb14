// Package notify tells the user about session events with sounds, desktop
// notifications and speech.
package notify

import (
	"context"
	"errors"
	log "log/slog"
)

type Event int

const (
	Started Event = iota
	Stopped
	DeviceFailed
)

func (e Event) String() string {
	switch e {
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	case DeviceFailed:
		return "device-failed"
	default:
		return "unknown"
	}
}

// Notifier reacts to one event. Implementations ignore events they do not
// care about.
type Notifier interface {
	Notify(ctx context.Context, ev Event, title, body string) error
}

type Func func(ctx context.Context, ev Event, title, body string) error

func (f Func) Notify(ctx context.Context, ev Event, title, body string) error {
	return f(ctx, ev, title, body)
}

// Multi calls every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event, title, body string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev, title, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async runs n on its own goroutine and logs failures, so callers on the
// session path never wait for a sound or a voice.
func Async(n Notifier) Notifier {
	return Func(func(ctx context.Context, ev Event, title, body string) error {
		go func() {
			if err := n.Notify(context.WithoutCancel(ctx), ev, title, body); err != nil {
				log.Warn("Notification failed", "event", ev, "err", err)
			}
		}()
		return nil
	})
}
