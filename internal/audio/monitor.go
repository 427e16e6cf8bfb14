package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// PulseSource is one line of `pactl list short sources`.
type PulseSource struct {
	ID         int
	Name       string
	Driver     string
	SampleSpec string
	State      string
}

func (s PulseSource) IsMonitor() bool {
	return strings.HasSuffix(s.Name, ".monitor")
}

// DefaultMonitor returns the monitor source of the default sink, which
// carries whatever the machine is playing.
func DefaultMonitor(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "pactl", "get-default-sink").Output()
	if err != nil {
		return "", fmt.Errorf("pactl get-default-sink: %w", err)
	}
	sink := strings.TrimSpace(string(out))
	if sink == "" {
		return "", errors.New("pactl: no default sink")
	}

	sources, err := ListSources(ctx)
	if err != nil {
		return "", err
	}
	want := sink + ".monitor"
	for _, s := range sources {
		if s.Name == want {
			return s.Name, nil
		}
	}
	return "", fmt.Errorf("no monitor source for sink %s", sink)
}

func ListSources(ctx context.Context) ([]PulseSource, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "short", "sources").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list short sources: %w", err)
	}
	return parseShortSources(string(out)), nil
}

func parseShortSources(text string) []PulseSource {
	var res []PulseSource
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			fields = strings.Fields(line)
		}
		if len(fields) < 2 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}
		s := PulseSource{ID: id, Name: strings.TrimSpace(fields[1])}
		if len(fields) > 2 {
			s.Driver = strings.TrimSpace(fields[2])
		}
		if len(fields) > 3 {
			s.SampleSpec = strings.TrimSpace(fields[3])
		}
		if len(fields) > 4 {
			s.State = strings.TrimSpace(fields[4])
		}
		res = append(res, s)
	}
	return res
}
