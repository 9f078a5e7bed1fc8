// Command linesh drives an interactive shell session from the command line,
// printing its output line by line as commands are sent.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "linesh",
		Short: "Send commands to a long-lived shell and read its output",
		Long: `linesh starts an interactive shell, or enters the SDK chroot through its
entry command when run outside it, and relays commands to it. Output lines
are polled without ever blocking on the shell's pipes.

Example:
  linesh run -c 'echo hello'
  linesh run --config linesh.yaml < commands.txt
  linesh validate linesh.yaml --watch`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), verbose))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newRunCmd(), newSchemaCmd(), newValidateCmd())
	return root
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
