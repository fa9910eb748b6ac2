// Command popis runs the inventory server and its maintenance tasks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/popis/internal/config"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "popis",
		Short:         "Multi-office inventory server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml, json or toml)")

	load := func() (config.Config, func(), error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, nil, err
		}
		closeLog, err := setupLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Path)
		if err != nil {
			return config.Config{}, nil, err
		}
		return cfg, closeLog, nil
	}

	cmd.AddCommand(serveCmd(load), migrateCmd(load), createAdminCmd(load))
	return cmd
}

// loader reads the configuration and installs the logger.
type loader func() (config.Config, func(), error)
