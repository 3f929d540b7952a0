// Package reckoncmder is the root reckon command.
package reckoncmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/reckon/cmd/reckon/config"
	initcmder "github.com/papercomputeco/reckon/cmd/reckon/init"
	journalcmder "github.com/papercomputeco/reckon/cmd/reckon/journal"
	runcmder "github.com/papercomputeco/reckon/cmd/reckon/run"
	statuscmder "github.com/papercomputeco/reckon/cmd/reckon/status"
	versioncmder "github.com/papercomputeco/reckon/cmd/version"
)

const reckonLongDesc string = `Reckon is a resource-bounded reasoning memory.

Concepts and tasks compete for a fixed amount of attention: every cycle the
memory admits input, fires a concept and lets the rest slowly fade.

Get started using:
  reckon init                     Create a local .reckon/ directory
  reckon run facts.jsonl          Run the memory over JSONL input
  reckon run --serve              Run with the inspection API
  reckon journal                  Query the lifecycle journal
  reckon status                   Summarize the last run
  reckon config list              Show the configuration`

const reckonShortDesc string = "Reckon - resource-bounded reasoning"

func NewReckonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "reckon",
		Short:        reckonShortDesc,
		Long:         reckonLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml and run state (default: ./.reckon or ~/.reckon)")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(runcmder.NewRunCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(journalcmder.NewJournalCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
