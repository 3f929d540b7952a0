// Package journalcmder provides the journal command for querying the
// lifecycle entries recorded by earlier runs.
package journalcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/reckon/pkg/cliui"
	"github.com/papercomputeco/reckon/pkg/config"
	"github.com/papercomputeco/reckon/pkg/dotdir"
	"github.com/papercomputeco/reckon/pkg/journal"
	"github.com/papercomputeco/reckon/pkg/journal/postgres"
	"github.com/papercomputeco/reckon/pkg/journal/sqlite"
	"github.com/papercomputeco/reckon/pkg/utils"
)

const journalLongDesc string = `Query the lifecycle journal.

Lists the task and concept events recorded by "reckon run" with a SQLite or
PostgreSQL journal, oldest first. Filters combine.

Examples:
  reckon journal --kind task_remove --reason "Displaced novel task"
  reckon journal --subject bird --limit 20
  reckon journal --after 1200 --json
  reckon journal --id 42`

const journalShortDesc string = "Query the lifecycle journal"

const (
	defaultLimit  = 50
	subjectLength = 48
	journalFile   = "journal.db"
)

var journalFlags = []string{
	config.FlagJournal,
	config.FlagSQLite,
	config.FlagPostgresDSN,
}

type journalCommander struct {
	flags struct {
		journal     string
		sqlite      string
		postgresDSN string
	}

	filter    journal.Filter
	id        int64
	count     bool
	asJSON    bool
	configDir string
	viper     *viper.Viper
}

func NewJournalCmd() *cobra.Command {
	cmder := &journalCommander{}

	cmd := &cobra.Command{
		Use:     "journal",
		Short:   journalShortDesc,
		Long:    journalLongDesc,
		Args:    cobra.NoArgs,
		PreRunE: cmder.prepare,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.withDriver(cmd.Context(), func(ctx context.Context, d journal.Driver) error {
				if cmder.id > 0 {
					return show(ctx, cmd.OutOrStdout(), d, cmder.id)
				}
				return cmder.list(ctx, cmd.OutOrStdout(), d)
			})
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagJournal, &cmder.flags.journal)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.flags.sqlite)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &cmder.flags.postgresDSN)
	cmd.Flags().StringVar(&cmder.filter.Kind, "kind", "", "Only entries of this kind, e.g. task_add or concept_forget")
	cmd.Flags().StringVar(&cmder.filter.Subject, "subject", "", "Only entries about this task key or concept term")
	cmd.Flags().StringVar(&cmder.filter.Reason, "reason", "", "Only entries with this reason")
	cmd.Flags().Int64Var(&cmder.filter.AfterID, "after", 0, "Only entries after this ID")
	cmd.Flags().IntVar(&cmder.filter.Limit, "limit", defaultLimit, "Maximum number of entries (0 for all)")
	cmd.Flags().BoolVar(&cmder.count, "count", false, "Print only the number of matching entries")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print entries as JSON lines")
	cmd.Flags().Int64Var(&cmder.id, "id", 0, "Show a single entry as JSON")

	return cmd
}

func (c *journalCommander) prepare(cmd *cobra.Command, _ []string) error {
	configDir, _ := cmd.Flags().GetString("config-dir")
	v, err := config.InitViper(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, journalFlags)
	c.viper = v
	c.configDir = configDir
	return nil
}

func (c *journalCommander) withDriver(ctx context.Context, fn func(context.Context, journal.Driver) error) error {
	cfg, err := config.FromViper(c.viper)
	if err != nil {
		return err
	}

	driver, err := c.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer driver.Close()

	return fn(ctx, driver)
}

func (c *journalCommander) open(ctx context.Context, cfg *config.Config) (journal.Driver, error) {
	switch cfg.Journal.Driver {
	case config.JournalSQLite:
		path := cfg.Journal.SQLitePath
		if path == "" {
			var err error
			path, err = dotdir.NewManager().Path(c.configDir, journalFile)
			if err != nil {
				return nil, fmt.Errorf("resolving journal path: %w", err)
			}
		}
		return sqlite.NewDriver(ctx, path)
	case config.JournalPostgres:
		if cfg.Journal.PostgresDSN == "" {
			return nil, errors.New("journal.postgres_dsn is required for the postgres journal")
		}
		return postgres.NewDriver(ctx, cfg.Journal.PostgresDSN)
	case config.JournalMemory:
		return nil, errors.New("the memory journal only lives as long as its run; query it through the API instead")
	default:
		return nil, fmt.Errorf("%w: use --journal sqlite or --journal postgres", journal.ErrNotConfigured)
	}
}

func (c *journalCommander) list(ctx context.Context, w io.Writer, d journal.Driver) error {
	if c.count {
		n, err := d.Count(ctx, c.filter)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, n)
		return nil
	}

	entries, err := d.List(ctx, c.filter)
	if err != nil {
		return err
	}

	if c.asJSON {
		enc := json.NewEncoder(w)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintf(w, "  %s No matching journal entries.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	for _, e := range entries {
		reason := ""
		if e.Reason != "" {
			reason = cliui.DimStyle.Render("(" + e.Reason + ")")
		}
		fmt.Fprintf(w, "  %s %s %s %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%6d", e.ID)),
			cliui.KeyStyle.Render(fmt.Sprintf("%-15s", e.Kind)),
			cliui.TermStyle.Render(utils.Truncate(e.Subject, subjectLength)),
			cliui.ValueStyle.Render(fmt.Sprintf("p=%.3f t=%d", e.Priority, e.Time)),
			reason,
		)
	}
	return nil
}

func show(ctx context.Context, w io.Writer, d journal.Driver, id int64) error {
	e, err := d.Get(ctx, id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
