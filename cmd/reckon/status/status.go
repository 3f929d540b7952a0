// Package statuscmder provides the status command for summarizing the last
// run recorded in the .reckon directory.
package statuscmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/reckon/pkg/cliui"
	"github.com/papercomputeco/reckon/pkg/dotdir"
)

const statusLongDesc string = `Summarize the last reckon run.

Reads last_run.json from the local .reckon/ directory (or ~/.reckon/) and
shows how many frames and cycles ran, how much input was consumed and where
the journal was written.

Examples:
  reckon status`

const statusShortDesc string = "Summarize the last run"

const timeLayout = "2006-01-02 15:04:05 MST"

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runStatus(cmd.OutOrStdout(), configDir)
		},
	}

	return cmd
}

func runStatus(w io.Writer, configDir string) error {
	manager := dotdir.NewManager()

	state, err := manager.LoadRunState(configDir)
	if err != nil {
		return fmt.Errorf("loading run state: %w", err)
	}

	if state == nil {
		fmt.Fprintf(w, "  %s No run recorded yet. Start one with reckon run.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Fprintln(w)
	cliui.RenderPairs(w,
		cliui.KV("Started", state.StartedAt.Local().Format(timeLayout)),
		cliui.KV("Elapsed", cliui.FormatDuration(state.FinishedAt.Sub(state.StartedAt))),
		cliui.KV("Frames", state.Frames),
		cliui.KV("Cycles", state.Cycles),
		cliui.KV("Inputs", state.Inputs),
		cliui.KV("Skipped", state.Skipped),
		cliui.KV("Concepts", state.Concepts),
		cliui.KV("Outputs", state.Outputs),
		cliui.Pair{Key: "Journal", Value: state.Journal},
	)
	fmt.Fprintln(w)
	return nil
}
