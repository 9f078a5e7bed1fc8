package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/linekit/config"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

func newValidateCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a configuration file",
		Long: `Load and validate a configuration file. With --watch, keep running and
validate again every time the file changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			out := cmd.OutOrStdout()

			_, err := config.Load(path)
			if !watch {
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "ok: %s\n", path)
				return nil
			}
			report(cmd, path, err)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return config.Watch(ctx, path, func(_ *config.File, err error) {
				report(cmd, path, err)
			})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Re-validate whenever the file changes")

	return cmd
}

func report(cmd *cobra.Command, path string, err error) {
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "invalid: %s: %v\n", path, err)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok: %s\n", path)
}
