package audio

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
)

type HostConfig struct {
	BlockFrames int
	QueueBlocks int
	MaxChannels int
	// Stall is how long the device may go silent before it is reported dead.
	Stall time.Duration
}

// Host owns the PortAudio library lifetime and opens capture streams.
type Host struct {
	cfg HostConfig
}

func NewHost(cfg HostConfig) *Host {
	if cfg.BlockFrames <= 0 {
		cfg.BlockFrames = 8192
	}
	if cfg.QueueBlocks <= 0 {
		cfg.QueueBlocks = 256
	}
	if cfg.MaxChannels <= 0 {
		cfg.MaxChannels = 2
	}
	if cfg.Stall <= 0 {
		cfg.Stall = 5 * time.Second
	}
	return &Host{cfg: cfg}
}

func (h *Host) Init() error {
	return portaudio.Initialize()
}

func (h *Host) Close() {
	portaudio.Terminate()
}

type DeviceInfo struct {
	Index      int
	Name       string
	HostAPI    string
	Channels   int
	SampleRate float64
}

// Devices lists input-capable devices.
func (h *Host) Devices() ([]DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	var out []DeviceInfo
	for i, d := range devs {
		if d.MaxInputChannels <= 0 {
			continue
		}
		api := ""
		if d.HostApi != nil {
			api = d.HostApi.Name
		}
		out = append(out, DeviceInfo{
			Index:      i,
			Name:       d.Name,
			HostAPI:    api,
			Channels:   d.MaxInputChannels,
			SampleRate: d.DefaultSampleRate,
		})
	}
	return out, nil
}

// resolve maps a selector to a portaudio device. "monitor" routes the
// PulseAudio default sink's monitor through the pulse ALSA device.
func (h *Host) resolve(ctx context.Context, selector string) (*portaudio.DeviceInfo, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, ErrNoDevice
	}

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	if selector == "monitor" {
		mon, err := DefaultMonitor(ctx)
		if err != nil {
			return nil, err
		}
		os.Setenv("PULSE_SOURCE", mon)
		log.Debug("Routing pulse monitor", "source", mon)
		for _, name := range []string{"pulse", "default"} {
			if d := findInput(devs, name, false); d != nil {
				return d, nil
			}
		}
		return nil, fmt.Errorf("monitor %s: no pulse input device", mon)
	}

	if idx, err := strconv.Atoi(selector); err == nil {
		if idx < 0 || idx >= len(devs) {
			return nil, fmt.Errorf("device index %d out of range (%d devices)", idx, len(devs))
		}
		if devs[idx].MaxInputChannels <= 0 {
			return nil, fmt.Errorf("device %d (%s) has no inputs", idx, devs[idx].Name)
		}
		return devs[idx], nil
	}

	if d := findInput(devs, selector, false); d != nil {
		return d, nil
	}
	if d := findInput(devs, selector, true); d != nil {
		return d, nil
	}
	return nil, fmt.Errorf("device not found: %s", selector)
}

func findInput(devs []*portaudio.DeviceInfo, name string, partial bool) *portaudio.DeviceInfo {
	for _, d := range devs {
		if d.MaxInputChannels <= 0 {
			continue
		}
		if d.Name == name {
			return d
		}
		if partial && strings.Contains(strings.ToLower(d.Name), strings.ToLower(name)) {
			return d
		}
	}
	return nil
}

// Capture is a running PortAudio input stream at the device's native
// rate and channel count.
type Capture struct {
	*Feed

	device string
	stream *portaudio.Stream
	last   atomic.Int64
	stop   chan struct{}
	once   sync.Once
}

// Open starts capturing from selector. Every failure is a *DeviceError.
func (h *Host) Open(ctx context.Context, selector string) (*Capture, error) {
	dev, err := h.resolve(ctx, selector)
	if err != nil {
		return nil, &DeviceError{Device: selector, Err: err}
	}

	channels := min(dev.MaxInputChannels, h.cfg.MaxChannels)
	format := Format{Rate: int(dev.DefaultSampleRate), Channels: channels}

	c := &Capture{
		Feed:   NewFeed(format, h.cfg.QueueBlocks),
		device: dev.Name,
		stop:   make(chan struct{}),
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultHighInputLatency,
		},
		SampleRate:      dev.DefaultSampleRate,
		FramesPerBuffer: h.cfg.BlockFrames,
	}

	stream, err := portaudio.OpenStream(params, c.callback)
	if err != nil {
		return nil, &DeviceError{Device: dev.Name, Err: fmt.Errorf("open stream: %w", err)}
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, &DeviceError{Device: dev.Name, Err: fmt.Errorf("start stream: %w", err)}
	}
	c.stream = stream
	c.last.Store(time.Now().UnixNano())

	blockDur := time.Duration(h.cfg.BlockFrames) * time.Second / time.Duration(max(format.Rate, 1))
	go c.watch(h.cfg.Stall + blockDur)

	log.Info("Capture started", "device", dev.Name, "rate", format.Rate, "channels", format.Channels)
	return c, nil
}

// OpenSource is Open behind the Source interface.
func (h *Host) OpenSource(ctx context.Context, selector string) (Source, error) {
	c, err := h.Open(ctx, selector)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// callback runs on the driver thread: copy and hand off, nothing else.
func (c *Capture) callback(in []int16) {
	c.last.Store(time.Now().UnixNano())
	c.Push(in)
}

func (c *Capture) watch(limit time.Duration) {
	t := time.NewTicker(limit / 2)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			idle := time.Since(time.Unix(0, c.last.Load()))
			if idle > limit {
				c.Fail(&DeviceError{Device: c.device, Err: fmt.Errorf("%w for %s", ErrStalled, idle.Round(time.Millisecond))})
				return
			}
		}
	}
}

func (c *Capture) Device() string { return c.device }

// Close stops the stream and closes Blocks. Safe to call more than once.
func (c *Capture) Close() error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		if e := c.stream.Stop(); e != nil {
			log.Warn("Failed to stop stream", "device", c.device, "err", e)
		}
		err = c.stream.Close()
		if n := c.Dropped(); n > 0 {
			log.Warn("Capture dropped blocks", "device", c.device, "blocks", n)
		}
		c.Feed.Close()
	})
	return err
}
