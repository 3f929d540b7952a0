package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent reckon configuration stored as
// config.toml in the .reckon/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Memory    MemoryConfig    `toml:"memory"`
	Attention AttentionConfig `toml:"attention"`
	Runner    RunnerConfig    `toml:"runner"`
	Journal   JournalConfig   `toml:"journal"`
	Stream    StreamConfig    `toml:"stream"`
	API       APIConfig       `toml:"api"`
}

// MemoryConfig holds the cycle controller tunables.
type MemoryConfig struct {
	Timing     string `toml:"timing"`
	ForgetMode string `toml:"forget_mode"`
	Duration   int    `toml:"duration"`

	ConceptForgetDurations  float64 `toml:"concept_forget_durations"`
	TaskLinkForgetDurations float64 `toml:"task_link_forget_durations"`
	TermLinkForgetDurations float64 `toml:"term_link_forget_durations"`
	ForgetFloor             float64 `toml:"forget_floor"`

	ConceptsFiredPerCycle int `toml:"concepts_fired_per_cycle"`
	InputPerCycle         int `toml:"input_per_cycle"`
	NewTasksPerCycle      int `toml:"new_tasks_per_cycle"`
	NovelTasksPerCycle    int `toml:"novel_tasks_per_cycle"`

	STMSize             int     `toml:"stm_size"`
	CreationExpectation float64 `toml:"creation_expectation"`
	BudgetThreshold     float64 `toml:"budget_threshold"`
	Volume              int     `toml:"volume"`
	Threads             int     `toml:"threads"`
	Seed                uint64  `toml:"seed"`
	RandomSelection     bool    `toml:"random_selection"`
}

// AttentionConfig sizes the bags.
type AttentionConfig struct {
	ConceptBagLevels   int `toml:"concept_bag_levels"`
	ConceptBagSize     int `toml:"concept_bag_size"`
	ConceptCacheSize   int `toml:"concept_cache_size"`
	TaskLinkBagLevels  int `toml:"task_link_bag_levels"`
	TaskLinkBagSize    int `toml:"task_link_bag_size"`
	TermLinkBagLevels  int `toml:"term_link_bag_levels"`
	TermLinkBagSize    int `toml:"term_link_bag_size"`
	NovelTaskBagLevels int `toml:"novel_task_bag_levels"`
	NovelTaskBagSize   int `toml:"novel_task_bag_size"`
}

// RunnerConfig holds the settings of the frame loop.
type RunnerConfig struct {
	CyclesPerFrame int `toml:"cycles_per_frame"`

	// FrameInterval is a duration string such as "100ms". Empty or "0s"
	// runs frames back to back.
	FrameInterval string `toml:"frame_interval,omitempty"`

	// InputBuffer bounds the input queue.
	InputBuffer int `toml:"input_buffer"`
}

// JournalConfig selects where lifecycle entries are recorded.
type JournalConfig struct {
	// Driver is one of "none", "memory", "sqlite" or "postgres".
	Driver      string `toml:"driver"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	QueueSize   int    `toml:"queue_size"`
}

// StreamConfig selects where lifecycle events are published.
type StreamConfig struct {
	// Publisher is "none" or "kafka".
	Publisher string `toml:"publisher"`

	// Brokers is a comma separated list of host:port pairs.
	Brokers   string `toml:"brokers,omitempty"`
	Topic     string `toml:"topic,omitempty"`
	QueueSize int    `toml:"queue_size"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Enabled      bool   `toml:"enabled"`
	Listen       string `toml:"listen,omitempty"`
	ConceptLimit int    `toml:"concept_limit"`
	Metrics      bool   `toml:"metrics"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	name string
	get  func(c *Config) string
	set  func(c *Config, v string) error
}

func stringKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		name: name,
		get:  func(c *Config) string { return *field(c) },
		set:  func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		name: name,
		get:  func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func uintKey(name string, field func(c *Config) *uint64) configKeyInfo {
	return configKeyInfo{
		name: name,
		get:  func(c *Config) string { return strconv.FormatUint(*field(c), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		name: name,
		get:  func(c *Config) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		name: name,
		get:  func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// orderedConfigKeys lists every supported key in TOML section order.
var orderedConfigKeys = []configKeyInfo{
	stringKey("memory.timing", func(c *Config) *string { return &c.Memory.Timing }),
	stringKey("memory.forget_mode", func(c *Config) *string { return &c.Memory.ForgetMode }),
	intKey("memory.duration", func(c *Config) *int { return &c.Memory.Duration }),
	floatKey("memory.concept_forget_durations", func(c *Config) *float64 { return &c.Memory.ConceptForgetDurations }),
	floatKey("memory.task_link_forget_durations", func(c *Config) *float64 { return &c.Memory.TaskLinkForgetDurations }),
	floatKey("memory.term_link_forget_durations", func(c *Config) *float64 { return &c.Memory.TermLinkForgetDurations }),
	floatKey("memory.forget_floor", func(c *Config) *float64 { return &c.Memory.ForgetFloor }),
	intKey("memory.concepts_fired_per_cycle", func(c *Config) *int { return &c.Memory.ConceptsFiredPerCycle }),
	intKey("memory.input_per_cycle", func(c *Config) *int { return &c.Memory.InputPerCycle }),
	intKey("memory.new_tasks_per_cycle", func(c *Config) *int { return &c.Memory.NewTasksPerCycle }),
	intKey("memory.novel_tasks_per_cycle", func(c *Config) *int { return &c.Memory.NovelTasksPerCycle }),
	intKey("memory.stm_size", func(c *Config) *int { return &c.Memory.STMSize }),
	floatKey("memory.creation_expectation", func(c *Config) *float64 { return &c.Memory.CreationExpectation }),
	floatKey("memory.budget_threshold", func(c *Config) *float64 { return &c.Memory.BudgetThreshold }),
	intKey("memory.volume", func(c *Config) *int { return &c.Memory.Volume }),
	intKey("memory.threads", func(c *Config) *int { return &c.Memory.Threads }),
	uintKey("memory.seed", func(c *Config) *uint64 { return &c.Memory.Seed }),
	boolKey("memory.random_selection", func(c *Config) *bool { return &c.Memory.RandomSelection }),

	intKey("attention.concept_bag_levels", func(c *Config) *int { return &c.Attention.ConceptBagLevels }),
	intKey("attention.concept_bag_size", func(c *Config) *int { return &c.Attention.ConceptBagSize }),
	intKey("attention.concept_cache_size", func(c *Config) *int { return &c.Attention.ConceptCacheSize }),
	intKey("attention.task_link_bag_levels", func(c *Config) *int { return &c.Attention.TaskLinkBagLevels }),
	intKey("attention.task_link_bag_size", func(c *Config) *int { return &c.Attention.TaskLinkBagSize }),
	intKey("attention.term_link_bag_levels", func(c *Config) *int { return &c.Attention.TermLinkBagLevels }),
	intKey("attention.term_link_bag_size", func(c *Config) *int { return &c.Attention.TermLinkBagSize }),
	intKey("attention.novel_task_bag_levels", func(c *Config) *int { return &c.Attention.NovelTaskBagLevels }),
	intKey("attention.novel_task_bag_size", func(c *Config) *int { return &c.Attention.NovelTaskBagSize }),

	intKey("runner.cycles_per_frame", func(c *Config) *int { return &c.Runner.CyclesPerFrame }),
	stringKey("runner.frame_interval", func(c *Config) *string { return &c.Runner.FrameInterval }),
	intKey("runner.input_buffer", func(c *Config) *int { return &c.Runner.InputBuffer }),

	stringKey("journal.driver", func(c *Config) *string { return &c.Journal.Driver }),
	stringKey("journal.sqlite_path", func(c *Config) *string { return &c.Journal.SQLitePath }),
	stringKey("journal.postgres_dsn", func(c *Config) *string { return &c.Journal.PostgresDSN }),
	intKey("journal.queue_size", func(c *Config) *int { return &c.Journal.QueueSize }),

	stringKey("stream.publisher", func(c *Config) *string { return &c.Stream.Publisher }),
	stringKey("stream.brokers", func(c *Config) *string { return &c.Stream.Brokers }),
	stringKey("stream.topic", func(c *Config) *string { return &c.Stream.Topic }),
	intKey("stream.queue_size", func(c *Config) *int { return &c.Stream.QueueSize }),

	boolKey("api.enabled", func(c *Config) *bool { return &c.API.Enabled }),
	stringKey("api.listen", func(c *Config) *string { return &c.API.Listen }),
	intKey("api.concept_limit", func(c *Config) *int { return &c.API.ConceptLimit }),
	boolKey("api.metrics", func(c *Config) *bool { return &c.API.Metrics }),
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = func() map[string]configKeyInfo {
	m := make(map[string]configKeyInfo, len(orderedConfigKeys))
	for _, k := range orderedConfigKeys {
		m[k.name] = k
	}
	return m
}()
