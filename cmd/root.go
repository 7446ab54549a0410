// Package cmd wires the openclaw CLI: the gateway server and the
// crontab-facing subcommands cron(8) invokes.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goclaw/internal/config"
)

// resolveConfigPath returns the effective config file path for this
// invocation, honoring --config before falling back to the default location.
func resolveConfigPath() string {
	if configPathFlag != "" {
		return configPathFlag
	}
	return config.ResolveConfigPath()
}

var configPathFlag string

// Execute runs the root command.
func Execute() {
	root := &cobra.Command{
		Use:           "openclaw",
		Short:         "openclaw gateway and cron scheduler",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPathFlag, "config", "", "path to config file (default ~/.openclaw/config.yaml)")

	root.AddCommand(gatewayCmd())
	root.AddCommand(cronCmd())
	root.AddCommand(configCmd())
	root.AddCommand(pairingCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
