package main

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"

	"aura/internal/render"
	"aura/internal/ui"
	"aura/pkg/protocol"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	url := cli.StringP("url", "u", "", "Url of hub (default $AURA_BUS_URL or ws://localhost:8092/ws)")
	session := cli.StringP("session", "s", "", "Only show this session")
	plain := cli.Bool("plain", false, "Disable colours")
	logLevel := cli.StringP("log", "l", "warn", "Log level")
	cli.Parse()

	level := log.LevelWarn
	level.UnmarshalText([]byte(*logLevel))
	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level})))

	godotenv.Load(*envFile)
	if *url == "" {
		*url = os.Getenv("AURA_BUS_URL")
	}
	if *url == "" {
		*url = "ws://localhost:8092/ws"
	}

	web, err := protocol.NewWebSocket(*url, time.Second, 5*time.Second)
	if err != nil {
		log.Error("Failed to connect to bus", "url", *url, "err", err)
		os.Exit(1)
	}

	style := render.ANSI
	if *plain {
		style = render.Plain
	}
	v := newViewer(os.Stdout, style, *session)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := web.Listen(ctx, v.Handle); err != nil && ctx.Err() == nil {
		log.Error("Bus listener stopped", "err", err)
		os.Exit(1)
	}
}

// viewer prints events as they arrive. Summary lines are rendered as soon
// as they are complete.
type viewer struct {
	out     io.Writer
	style   render.Style
	only    string
	panels  *ui.Panels
	partial map[string]string
}

func newViewer(out io.Writer, style render.Style, only string) *viewer {
	return &viewer{
		out:     out,
		style:   style,
		only:    only,
		panels:  ui.NewPanels(),
		partial: make(map[string]string),
	}
}

func (v *viewer) Handle(e protocol.Event) {
	if v.only != "" && e.Session != v.only {
		return
	}
	v.panels.Handle(e)
	p, _ := v.panels.Get(e.Session)
	name := p.Title
	if name == "" {
		name = e.Session
	}

	switch e.Kind {
	case protocol.KindTranscript:
		fmt.Fprintf(v.out, "[%s] %s\n", name, strings.TrimSpace(e.Text))
	case protocol.KindSummaryClear:
		v.partial[e.Session] = ""
		fmt.Fprintf(v.out, "\n===== notes: %s =====\n", name)
	case protocol.KindSummaryChunk:
		buf := v.partial[e.Session] + e.Text
		i := strings.LastIndexByte(buf, '\n')
		if i < 0 {
			v.partial[e.Session] = buf
			return
		}
		fmt.Fprintln(v.out, render.Format(buf[:i], v.style))
		v.partial[e.Session] = buf[i+1:]
	case protocol.KindTitle:
		fmt.Fprintf(v.out, "* %s is now titled %q\n", e.Session, e.Text)
	case protocol.KindStatus:
		if rest := v.partial[e.Session]; rest != "" && e.Text == "stopped" {
			fmt.Fprintln(v.out, render.Format(rest, v.style))
			v.partial[e.Session] = ""
		}
		fmt.Fprintf(v.out, "* %s: %s\n", name, e.Text)
	case protocol.KindNotice:
		if e.Text != "" {
			fmt.Fprintf(v.out, "! %s: %s\n", name, e.Text)
		}
	}
}
