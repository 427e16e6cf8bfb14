package notify

import (
	"context"
	"fmt"
	"os/exec"
)

// Desktop shows device failures through notify-send.
type Desktop struct {
	AppName string
	// run is replaced in tests.
	run func(ctx context.Context, name string, args ...string) error
}

func NewDesktop(app string) *Desktop {
	return &Desktop{AppName: app, run: runCommand}
}

func (d *Desktop) Notify(ctx context.Context, ev Event, title, body string) error {
	if ev != DeviceFailed {
		return nil
	}
	args := []string{"--urgency=critical"}
	if d.AppName != "" {
		args = append(args, "--app-name="+d.AppName)
	}
	args = append(args, title, body)
	if err := d.run(ctx, "notify-send", args...); err != nil {
		return fmt.Errorf("notify-send: %w", err)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil && len(out) > 0 {
		return fmt.Errorf("%w: %s", err, out)
	}
	return err
}
