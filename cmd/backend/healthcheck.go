package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/obaldwin4/congenial-palm-tree/internal/probe"
	"github.com/spf13/cobra"
)

const defaultProbeURL = "http://127.0.0.1:8081/api/version"

// newHealthcheckCmd probes the local server once, so the container image
// needs no curl or wget for its HEALTHCHECK. Exit 0 = healthy, 1 = not.
func newHealthcheckCmd() *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the version endpoint once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: timeout}
			if err := probe.Check(cmd.Context(), client, url, timeout); err != nil {
				return fmt.Errorf("healthcheck failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", defaultProbeURL, "endpoint to probe")
	cmd.Flags().DurationVar(&timeout, "timeout", probe.DefaultPolicy().Timeout, "probe timeout")
	return cmd
}
