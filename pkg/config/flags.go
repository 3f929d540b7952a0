package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --sqlite
// on both "reckon run" and "reckon journal").
type Flag struct {
	// Name is the long flag name (e.g. "api-listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "api.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddBoolFlag
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen      = "api-listen"
	FlagServe          = "serve"
	FlagJournal        = "journal"
	FlagSQLite         = "sqlite"
	FlagPostgresDSN    = "postgres-dsn"
	FlagPublisher      = "publisher"
	FlagKafkaBrokers   = "kafka-brokers"
	FlagKafkaTopic     = "kafka-topic"
	FlagCyclesPerFrame = "cycles-per-frame"
	FlagFrameInterval  = "frame-interval"
	FlagVolume         = "volume"
	FlagThreads        = "threads"
	FlagTiming         = "timing"
)

// Flags is the registry shared by every command.
var Flags = FlagSet{
	FlagAPIListen:      {Name: "api-listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagServe:          {Name: "serve", ViperKey: "api.enabled", Description: "Serve the inspection API while running"},
	FlagJournal:        {Name: "journal", Shorthand: "j", ViperKey: "journal.driver", Description: "Journal driver: none, memory, sqlite or postgres"},
	FlagSQLite:         {Name: "sqlite", Shorthand: "s", ViperKey: "journal.sqlite_path", Description: "Path to the SQLite journal database"},
	FlagPostgresDSN:    {Name: "postgres-dsn", ViperKey: "journal.postgres_dsn", Description: "PostgreSQL connection string for the journal"},
	FlagPublisher:      {Name: "publisher", ViperKey: "stream.publisher", Description: "Event stream publisher: none or kafka"},
	FlagKafkaBrokers:   {Name: "kafka-brokers", ViperKey: "stream.brokers", Description: "Comma separated Kafka brokers"},
	FlagKafkaTopic:     {Name: "kafka-topic", ViperKey: "stream.topic", Description: "Kafka topic for lifecycle events"},
	FlagCyclesPerFrame: {Name: "cycles-per-frame", Shorthand: "c", ViperKey: "runner.cycles_per_frame", Description: "Cycles run per frame"},
	FlagFrameInterval:  {Name: "frame-interval", ViperKey: "runner.frame_interval", Description: "Pause between frames, e.g. 100ms"},
	FlagVolume:         {Name: "volume", ViperKey: "memory.volume", Description: "Output volume from 0 to 100"},
	FlagThreads:        {Name: "threads", ViperKey: "memory.threads", Description: "Goroutines firing concepts"},
	FlagTiming:         {Name: "timing", ViperKey: "memory.timing", Description: "Memory clock: iterative, real or simulation"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
