package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aura/internal/app"
	"aura/internal/ipc"
	"aura/internal/meeting"
	"aura/internal/render"
	"aura/internal/ui"
)

// control maps IPC requests onto controller operations.
func control(ctl *app.Controller, panels *ui.Panels) ipc.Handler {
	return func(ctx context.Context, req ipc.Request) ipc.Reply {
		switch req.Cmd {
		case ipc.CmdNew:
			sess, err := ctl.NewSession(ctx)
			if err != nil {
				return ipc.Fail(err)
			}
			return ok(sess.ID(), sess)

		case ipc.CmdToggle:
			sess, err := ctl.Toggle(ctx, req.ID)
			if err != nil {
				return ipc.Fail(err)
			}
			return ok(fmt.Sprintf("%s is %s", sess.ID(), sess.Status()), sess)

		case ipc.CmdStart:
			if err := ctl.Start(ctx, req.ID); err != nil {
				return ipc.Fail(err)
			}
			return ipc.Reply{OK: true}

		case ipc.CmdStop:
			if err := ctl.Stop(req.ID); err != nil {
				return ipc.Fail(err)
			}
			return ipc.Reply{OK: true}

		case ipc.CmdDelete:
			if err := ctl.Delete(ctx, req.ID); err != nil {
				return ipc.Fail(err)
			}
			return ipc.Reply{OK: true}

		case ipc.CmdAsk:
			if strings.TrimSpace(req.Text) == "" {
				return ipc.Fail(errors.New("empty question"))
			}
			answer, err := ctl.Ask(ctx, req.ID, req.Text)
			if err != nil {
				return ipc.Fail(err)
			}
			return ipc.Reply{OK: true, Text: answer}

		case ipc.CmdExport:
			path, err := ctl.Export(req.ID, req.Path)
			if err != nil {
				return ipc.Fail(err)
			}
			return ipc.Reply{OK: true, Text: path}

		case ipc.CmdImport:
			sess, err := ctl.Import(ctx, req.Path)
			if err != nil {
				return ipc.Fail(err)
			}
			return ok(sess.ID(), sess)

		case ipc.CmdList:
			return ok("", ctl.List()...)

		case ipc.CmdShow:
			sess, err := ctl.Get(req.ID)
			if err != nil {
				return ipc.Fail(err)
			}
			return ok(show(sess, panels), sess)

		case ipc.CmdSave:
			if err := ctl.Save(ctx); err != nil {
				return ipc.Fail(err)
			}
			return ipc.Reply{OK: true}

		case ipc.CmdDevices:
			devs, err := ctl.Devices()
			if err != nil {
				return ipc.Fail(err)
			}
			var b strings.Builder
			for _, d := range devs {
				fmt.Fprintf(&b, "%d\t%s\t%s\t%dch\t%.0fHz\n", d.Index, d.Name, d.HostAPI, d.Channels, d.SampleRate)
			}
			return ipc.Reply{OK: true, Text: b.String()}

		default:
			return ipc.Fail(fmt.Errorf("unknown command %q", req.Cmd))
		}
	}
}

func ok(text string, sessions ...*meeting.Session) ipc.Reply {
	r := ipc.Reply{OK: true, Text: text}
	for _, s := range sessions {
		r.Sessions = append(r.Sessions, ipc.SessionInfo{
			ID:     s.ID(),
			Title:  s.Title(),
			Status: string(s.Status()),
			Chunks: len(s.Chunks()),
		})
	}
	return r
}

// show prefers the live panel, which also carries Q&A lines shown under
// the summary.
func show(sess *meeting.Session, panels *ui.Panels) string {
	summary := sess.Summary()
	if p, found := panels.Get(sess.ID()); found && p.Summary != "" {
		summary = p.Summary
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]\n\n", sess.Title(), sess.Status())
	b.WriteString(render.Format(summary, render.Plain))
	b.WriteString("\n\n--- TRANSCRIPT ---\n")
	b.WriteString(sess.Transcript())
	b.WriteString("\n")
	return b.String()
}
