package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"aura/internal/ipc"
)

func newRootCmd() *cobra.Command {
	var (
		socket  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:           "aura-ctl",
		Short:         "Control the aura meeting daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&socket, "socket", "s", ipc.DefaultSocketPath, "Daemon socket path")
	cmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 3*time.Minute, "How long to wait for a reply")

	send := func(cmd *cobra.Command, req ipc.Request) (ipc.Reply, error) {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		return ipc.Send(ctx, socket, req)
	}

	cmd.AddCommand(
		simpleCmd("new", "Create a session and start capturing", ipc.CmdNew, 0, send),
		simpleCmd("toggle [id]", "Start or stop a session; without id stop the running one or start a new one", ipc.CmdToggle, -1, send),
		simpleCmd("start <id>", "Start or resume a session", ipc.CmdStart, 1, send),
		simpleCmd("stop <id>", "Stop a session after its final summary", ipc.CmdStop, 1, send),
		simpleCmd("delete <id>", "Delete a session", ipc.CmdDelete, 1, send),
		simpleCmd("list", "List sessions", ipc.CmdList, 0, send),
		simpleCmd("show <id>", "Print a session's summary and transcript", ipc.CmdShow, 1, send),
		simpleCmd("save", "Write all sessions to storage now", ipc.CmdSave, 0, send),
		simpleCmd("devices", "List capture devices", ipc.CmdDevices, 0, send),
		newAskCmd(send),
		newExportCmd(send),
		newImportCmd(send),
	)
	return cmd
}

type sender func(*cobra.Command, ipc.Request) (ipc.Reply, error)

// simpleCmd builds a command that takes at most an id. nargs -1 means the
// id is optional.
func simpleCmd(use, short, name string, nargs int, send sender) *cobra.Command {
	args := cobra.ExactArgs(nargs)
	if nargs < 0 {
		args = cobra.MaximumNArgs(1)
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.Request{Cmd: name}
			if len(args) > 0 {
				req.ID = args[0]
			}
			reply, err := send(cmd, req)
			if err != nil {
				return err
			}
			printReply(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}

func newAskCmd(send sender) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <id> <question...>",
		Short: "Ask a question about a session's notes",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := send(cmd, ipc.Request{Cmd: ipc.CmdAsk, ID: args[0], Text: strings.Join(args[1:], " ")})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			return nil
		},
	}
}

func newExportCmd(send sender) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a session to a text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := absPath(out)
			if err != nil {
				return err
			}
			reply, err := send(cmd, ipc.Request{Cmd: ipc.CmdExport, ID: args[0], Path: path})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved to", reply.Text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: <title>.txt in the daemon's directory)")
	return cmd
}

func newImportCmd(send sender) *cobra.Command {
	return &cobra.Command{
		Use:   "import <audio-file>",
		Short: "Transcribe and summarize an audio file as a new session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := absPath(args[0])
			if err != nil {
				return err
			}
			reply, err := send(cmd, ipc.Request{Cmd: ipc.CmdImport, Path: path})
			if err != nil {
				return err
			}
			printReply(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}

// absPath resolves p against our working directory, since the daemon
// runs elsewhere.
func absPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	return filepath.Abs(p)
}

func printReply(w io.Writer, r ipc.Reply) {
	if len(r.Sessions) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tCHUNKS")
		for _, s := range r.Sessions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.ID, s.Title, s.Status, s.Chunks)
		}
		tw.Flush()
	}
	if r.Text != "" {
		fmt.Fprintln(w, strings.TrimRight(r.Text, "\n"))
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "aura-ctl:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
