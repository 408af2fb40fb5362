package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/strongdm/supportdesk/internal/config"
	"github.com/strongdm/supportdesk/internal/logging"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

type configKey struct{}

// skipConfigAnnotation marks commands that run without loading configuration.
const skipConfigAnnotation = "supportdesk/skip-config"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "supportdesk",
		Short:   "White-label customer support workspace",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(versionText() + "\n")

	cmd.PersistentFlags().String("config", "", "Config file (.toml, .yaml) (env "+config.EnvConfigFile+")")

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		if c.Annotations[skipConfigAnnotation] == "true" {
			return nil
		}
		lookup := os.LookupEnv
		if path, _ := c.Flags().GetString("config"); path != "" {
			lookup = withOverride(lookup, config.EnvConfigFile, path)
		}
		cfg, err := config.Load(lookup)
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.LogFormat, cfg.LogLevel, c.ErrOrStderr())
		if err != nil {
			return err
		}
		log.SetOutput(logger.Out)
		log.SetFormatter(logger.Formatter)
		log.SetLevel(logger.Level)

		c.SetContext(context.WithValue(c.Context(), configKey{}, cfg))
		return nil
	}

	cmd.AddCommand(newCmdServe())
	cmd.AddCommand(newCmdRender())
	cmd.AddCommand(newCmdConfig())
	cmd.AddCommand(newCmdVersion())
	return cmd
}

func configFrom(cmd *cobra.Command) config.Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(config.Config); ok {
		return cfg
	}
	return config.Default()
}

// withOverride layers a single key over lookup.
func withOverride(lookup config.LookupFunc, key, value string) config.LookupFunc {
	return func(k string) (string, bool) {
		if k == key {
			return value, true
		}
		return lookup(k)
	}
}

func main() {
	root := newRootCmd()
	root.SetContext(context.Background())
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "supportdesk: %v\n", err)
		os.Exit(1)
	}
}
