package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/strongdm/supportdesk/internal/server"
)

func newCmdServe() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the workspace until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, cfg, log.StandardLogger())
			if err != nil {
				return err
			}
			defer func() {
				if err := srv.Close(); err != nil {
					log.WithError(err).Warn("telemetry shutdown failed")
				}
			}()

			printBanner(cmd.OutOrStdout(), cfg, version)
			return srv.Run(ctx)
		},
	}
}
