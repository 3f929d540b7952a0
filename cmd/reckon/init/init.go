// Package initcmder provides the init command for initializing a local
// .reckon directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/reckon/pkg/config"
)

const (
	dirName = ".reckon"
)

const initLongDesc string = `Initialize a new .reckon/ directory in the current working directory.

Creates a local .reckon/ directory that takes precedence over the default
~/.reckon/ directory for configuration, the journal database and the
last run summary.

With --preset, also writes a config.toml sized for a small, default or
large memory. An existing config.toml is only replaced with --force.

Examples:
  reckon init
  reckon init --preset small`

const initShortDesc string = "Initialize a local .reckon/ directory"

func NewInitCmd() *cobra.Command {
	var (
		preset string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout(), preset, force)
		},
	}

	cmd.Flags().StringVarP(&preset, "preset", "p", "",
		"Write a config.toml from a preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing config.toml")

	return cmd
}

func runInit(w io.Writer, preset string, force bool) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Fprintf(w, "Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .reckon directory: %w", err)
		}
		fmt.Fprintf(w, "Initialized .reckon directory: %s\n", dir)
	}

	if preset == "" {
		return nil
	}

	cfg, err := config.PresetConfig(preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfger.GetTarget()); err == nil && !force {
		return errors.New("config.toml already exists, use --force to replace it")
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "Wrote %s preset: %s\n", preset, cfger.GetTarget())
	return nil
}
