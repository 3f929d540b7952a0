package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/reckon/pkg/budget"
	"github.com/papercomputeco/reckon/pkg/dotdir"
	"github.com/papercomputeco/reckon/pkg/memory"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// Journal drivers.
const (
	JournalNone     = "none"
	JournalMemory   = "memory"
	JournalSQLite   = "sqlite"
	JournalPostgres = "postgres"
)

// Stream publishers.
const (
	PublisherNone  = "none"
	PublisherKafka = "kafka"
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns all supported configuration key names in TOML
// section order.
func ValidConfigKeys() []string {
	keys := make([]string, len(orderedConfigKeys))
	for i, k := range orderedConfigKeys {
		keys[i] = k.name
	}
	return keys
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target .reckon/
// directory. If the file does not exist, returns NewDefaultConfig() so
// callers always receive a fully-populated Config. Fields explicitly set in
// the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}
	return LoadFile(c.targetPath)
}

// LoadFile reads a config file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfigTOML(data)
}

// SaveConfig persists the configuration to config.toml in the target .reckon/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config sized for the named preset.
// Supported presets: "small", "default", "large".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "small":
		cfg.Attention.ConceptBagSize = 100
		cfg.Attention.ConceptBagLevels = 10
		cfg.Attention.TaskLinkBagSize = 10
		cfg.Attention.TermLinkBagSize = 20
		cfg.Attention.NovelTaskBagSize = 5
		cfg.Runner.CyclesPerFrame = 1

	case "default":

	case "large":
		cfg.Attention.ConceptBagSize = 10000
		cfg.Attention.ConceptCacheSize = 1000
		cfg.Attention.NovelTaskBagSize = 100
		cfg.Memory.ConceptsFiredPerCycle = 4
		cfg.Memory.Threads = 4
		cfg.Memory.InputPerCycle = 8
		cfg.Runner.CyclesPerFrame = 100

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}

	return cfg, nil
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"small", "default", "large"}
}

// ParseConfigTOML parses raw TOML bytes on top of NewDefaultConfig().
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

// Params converts the memory and attention sections.
func (c *Config) Params() (memory.Params, error) {
	var errs []error

	timing, err := memory.ParseTiming(c.Memory.Timing)
	if err != nil {
		errs = append(errs, err)
	}
	mode, ok := budget.ParseMode(c.Memory.ForgetMode)
	if !ok {
		errs = append(errs, fmt.Errorf("unknown forget mode %q", c.Memory.ForgetMode))
	}

	p := memory.Params{
		Timing:                  timing,
		ForgetMode:              mode,
		Duration:                c.Memory.Duration,
		ConceptForgetDurations:  c.Memory.ConceptForgetDurations,
		TaskLinkForgetDurations: c.Memory.TaskLinkForgetDurations,
		TermLinkForgetDurations: c.Memory.TermLinkForgetDurations,
		ForgetFloor:             c.Memory.ForgetFloor,
		ConceptBagLevels:        c.Attention.ConceptBagLevels,
		ConceptBagSize:          c.Attention.ConceptBagSize,
		ConceptCacheSize:        c.Attention.ConceptCacheSize,
		TaskLinkBagLevels:       c.Attention.TaskLinkBagLevels,
		TaskLinkBagSize:         c.Attention.TaskLinkBagSize,
		TermLinkBagLevels:       c.Attention.TermLinkBagLevels,
		TermLinkBagSize:         c.Attention.TermLinkBagSize,
		NovelTaskBagLevels:      c.Attention.NovelTaskBagLevels,
		NovelTaskBagSize:        c.Attention.NovelTaskBagSize,
		ConceptsFiredPerCycle:   c.Memory.ConceptsFiredPerCycle,
		InputPerCycle:           c.Memory.InputPerCycle,
		NewTasksPerCycle:        c.Memory.NewTasksPerCycle,
		NovelTasksPerCycle:      c.Memory.NovelTasksPerCycle,
		STMSize:                 c.Memory.STMSize,
		CreationExpectation:     c.Memory.CreationExpectation,
		BudgetThreshold:         c.Memory.BudgetThreshold,
		Volume:                  c.Memory.Volume,
		Threads:                 c.Memory.Threads,
		Seed:                    c.Memory.Seed,
		RandomSelection:         c.Memory.RandomSelection,
	}
	if err := p.Validate(); err != nil {
		errs = append(errs, err)
	}

	return p, errors.Join(errs...)
}

// FrameInterval parses runner.frame_interval.
func (c *Config) FrameInterval() (time.Duration, error) {
	if c.Runner.FrameInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Runner.FrameInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid runner.frame_interval: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("runner.frame_interval must not be negative, got %s", d)
	}
	return d, nil
}

// Brokers splits stream.brokers.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.Stream.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Params(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.FrameInterval(); err != nil {
		errs = append(errs, err)
	}
	if c.Runner.CyclesPerFrame < 1 {
		errs = append(errs, fmt.Errorf("runner.cycles_per_frame must be at least 1, got %d", c.Runner.CyclesPerFrame))
	}
	if c.Runner.InputBuffer < 1 {
		errs = append(errs, fmt.Errorf("runner.input_buffer must be at least 1, got %d", c.Runner.InputBuffer))
	}

	switch c.Journal.Driver {
	case JournalNone, JournalMemory, JournalSQLite:
	case JournalPostgres:
		if c.Journal.PostgresDSN == "" {
			errs = append(errs, errors.New("journal.postgres_dsn is required for the postgres journal"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown journal.driver %q", c.Journal.Driver))
	}

	switch c.Stream.Publisher {
	case PublisherNone:
	case PublisherKafka:
		if len(c.Brokers()) == 0 {
			errs = append(errs, errors.New("stream.brokers is required for the kafka publisher"))
		}
		if c.Stream.Topic == "" {
			errs = append(errs, errors.New("stream.topic is required for the kafka publisher"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown stream.publisher %q", c.Stream.Publisher))
	}

	if c.API.Enabled && c.API.Listen == "" {
		errs = append(errs, errors.New("api.listen is required when the api is enabled"))
	}

	return errors.Join(errs...)
}
