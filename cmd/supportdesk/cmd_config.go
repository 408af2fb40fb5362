package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strongdm/supportdesk/internal/config"
)

func newCmdConfig() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printConfig(cmd.OutOrStdout(), configFrom(cmd))
		},
	}
}

func printConfig(w io.Writer, cfg config.Config) error {
	file := cfg.File
	if file == "" {
		file = "(none)"
	}
	url := cfg.Listen.DisplayURL()
	if url == "" {
		url = "(disabled)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "title: %q (%s)\n", cfg.DisplayTitle(), cfg.TitleSource)
	fmt.Fprintf(&b, "description: %q\n", cfg.Description)
	fmt.Fprintf(&b, "listen: %s\n", cfg.Listen)
	fmt.Fprintf(&b, "url: %s\n", url)
	fmt.Fprintf(&b, "open: %t\n", cfg.Open)
	fmt.Fprintf(&b, "log: %s/%s\n", cfg.LogLevel, cfg.LogFormat)
	fmt.Fprintf(&b, "telemetry: metrics=%t traces=%t\n", cfg.Telemetry.EnableMetrics, cfg.Telemetry.EnableTraces)
	fmt.Fprintf(&b, "config file: %s\n", file)
	_, err := io.WriteString(w, b.String())
	return err
}
