package main

import (
	"fmt"

	"github.com/obaldwin4/congenial-palm-tree/internal/buildinfo"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:           "backend",
		Short:         "Backend service with a version probe and durable data directory",
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		// Without a subcommand the binary serves, which is what the
		// container entrypoint expects.
		RunE: serve.RunE,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		serve,
		newHealthcheckCmd(),
		newMonitorCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}
