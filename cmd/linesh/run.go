package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/linekit/config"
	"github.com/randalmurphal/linekit/session"
)

type runOptions struct {
	configPath string
	workdir    string
	shell      string
	inEnv      bool
	timeout    time.Duration
	commands   []string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [flags]",
		Short: "Start a session and relay commands to it",
		Long: `Start a session and send each --command in turn, printing the output
that follows it. Without --command, commands are read from standard input,
one per line. Lines from the shell's error stream are prefixed "stderr: ".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Configuration file (.yaml or .toml)")
	cmd.Flags().StringVar(&opts.workdir, "workdir", "", "Working directory for the shell")
	cmd.Flags().StringVar(&opts.shell, "shell", "", "Shell to run inside the environment")
	cmd.Flags().BoolVar(&opts.inEnv, "in-env", false, "Skip the probe: true runs the shell, false the entry command")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Wait for the first output line after each command")
	cmd.Flags().StringArrayVarP(&opts.commands, "command", "c", nil, "Command to send (repeatable)")

	return cmd
}

func runSession(cmd *cobra.Command, opts runOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	file := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		file = loaded
	}

	sessOpts := append(file.SessionOptions(), session.WithLogger(slog.Default()))
	if opts.workdir != "" {
		sessOpts = append(sessOpts, session.WithWorkdir(opts.workdir))
	}
	if opts.shell != "" {
		sessOpts = append(sessOpts, session.WithShell(opts.shell, file.Session.ShellArgs...))
	}
	if cmd.Flags().Changed("in-env") {
		sessOpts = append(sessOpts, session.WithInEnvironment(opts.inEnv))
	}

	timeout := file.ReadTimeout
	if cmd.Flags().Changed("timeout") {
		timeout = opts.timeout
	}

	sess, err := session.Start(ctx, sessOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.KillSession(); err != nil {
			slog.Warn("kill session", slog.Any("error", err))
		}
	}()

	out := cmd.OutOrStdout()

	// Init commands may already have produced output.
	relay(sess, out, timeout)

	if len(opts.commands) > 0 {
		for _, c := range opts.commands {
			if err := sendAndRelay(ctx, sess, out, c, timeout); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		if err := sendAndRelay(ctx, sess, out, scanner.Text(), timeout); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func sendAndRelay(ctx context.Context, sess *session.Session, out io.Writer, command string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sess.SendCommand(command); err != nil {
		return fmt.Errorf("send %q: %w", command, err)
	}
	relay(sess, out, timeout)
	return nil
}

// relay prints stdout lines, waiting up to timeout for the first, then
// whatever stderr has already produced.
func relay(sess *session.Session, out io.Writer, timeout time.Duration) {
	for _, line := range sess.GetLines(timeout, true, false) {
		fmt.Fprintln(out, line)
	}
	for _, line := range sess.GetLines(0, true, true) {
		fmt.Fprintln(out, "stderr: "+line)
	}
}
