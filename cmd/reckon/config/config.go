// Package configcmder provides the config command for managing persistent
// reckon configuration stored in the .reckon/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/reckon/pkg/config"
)

const configLongDesc string = `Manage persistent reckon configuration.

Configuration is stored as config.toml in the .reckon/ directory and provides
default values for command flags. CLI flags and RECKON_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example
memory.volume, attention.concept_bag_size, runner.cycles_per_frame,
journal.driver, stream.publisher and api.listen. Run "reckon config list"
to see them all.

Use subcommands to get, set, or list configuration values:
  reckon config set <key> <value>    Set a configuration value
  reckon config get <key>            Get a configuration value
  reckon config list                 List all configuration values

Examples:
  reckon config set memory.volume 50
  reckon config set journal.driver sqlite
  reckon config get attention.concept_bag_size
  reckon config list`

const configShortDesc string = "Manage persistent reckon configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}
