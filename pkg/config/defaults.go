package config

import (
	"github.com/papercomputeco/reckon/pkg/memory"
)

const (
	defaultCyclesPerFrame = 10
	defaultFrameInterval  = "100ms"
	defaultInputBuffer    = 1024

	defaultJournalDriver    = "none"
	defaultJournalQueueSize = 1024

	defaultStreamPublisher = "none"
	defaultStreamTopic     = "reckon.lifecycle"
	defaultStreamQueueSize = 256

	defaultAPIListen       = ":8081"
	defaultAPIConceptLimit = 50
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values. Memory and
// attention defaults mirror memory.DefaultParams.
func NewDefaultConfig() *Config {
	p := memory.DefaultParams()

	return &Config{
		Version: CurrentV,
		Memory: MemoryConfig{
			Timing:                  p.Timing.String(),
			ForgetMode:              p.ForgetMode.String(),
			Duration:                p.Duration,
			ConceptForgetDurations:  p.ConceptForgetDurations,
			TaskLinkForgetDurations: p.TaskLinkForgetDurations,
			TermLinkForgetDurations: p.TermLinkForgetDurations,
			ForgetFloor:             p.ForgetFloor,
			ConceptsFiredPerCycle:   p.ConceptsFiredPerCycle,
			InputPerCycle:           p.InputPerCycle,
			NewTasksPerCycle:        p.NewTasksPerCycle,
			NovelTasksPerCycle:      p.NovelTasksPerCycle,
			STMSize:                 p.STMSize,
			CreationExpectation:     p.CreationExpectation,
			BudgetThreshold:         p.BudgetThreshold,
			Volume:                  p.Volume,
			Threads:                 p.Threads,
			Seed:                    p.Seed,
			RandomSelection:         p.RandomSelection,
		},
		Attention: AttentionConfig{
			ConceptBagLevels:   p.ConceptBagLevels,
			ConceptBagSize:     p.ConceptBagSize,
			ConceptCacheSize:   p.ConceptCacheSize,
			TaskLinkBagLevels:  p.TaskLinkBagLevels,
			TaskLinkBagSize:    p.TaskLinkBagSize,
			TermLinkBagLevels:  p.TermLinkBagLevels,
			TermLinkBagSize:    p.TermLinkBagSize,
			NovelTaskBagLevels: p.NovelTaskBagLevels,
			NovelTaskBagSize:   p.NovelTaskBagSize,
		},
		Runner: RunnerConfig{
			CyclesPerFrame: defaultCyclesPerFrame,
			FrameInterval:  defaultFrameInterval,
			InputBuffer:    defaultInputBuffer,
		},
		Journal: JournalConfig{
			Driver:    defaultJournalDriver,
			QueueSize: defaultJournalQueueSize,
		},
		Stream: StreamConfig{
			Publisher: defaultStreamPublisher,
			Topic:     defaultStreamTopic,
			QueueSize: defaultStreamQueueSize,
		},
		API: APIConfig{
			Listen:       defaultAPIListen,
			ConceptLimit: defaultAPIConceptLimit,
			Metrics:      true,
		},
	}
}
