package memory

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/reckon/pkg/budget"
)

// Params holds the numeric tunables of a memory.
type Params struct {
	// Timing selects the clock: iterative cycles, real time or simulated
	// time.
	Timing Timing

	// ForgetMode selects whether forgetting counts cycles or clock units.
	ForgetMode budget.Mode

	// Duration is the number of time units in one "moment".
	Duration int

	// Forget durations are measured in Durations.
	ConceptForgetDurations  float64
	TaskLinkForgetDurations float64
	TermLinkForgetDurations float64

	// ForgetFloor is the relative priority floor of forgetting.
	ForgetFloor float64

	ConceptBagLevels   int
	ConceptBagSize     int
	ConceptCacheSize   int
	TaskLinkBagLevels  int
	TaskLinkBagSize    int
	TermLinkBagLevels  int
	TermLinkBagSize    int
	NovelTaskBagLevels int
	NovelTaskBagSize   int

	// ConceptsFiredPerCycle bounds how many concepts fire each cycle.
	ConceptsFiredPerCycle int

	// InputPerCycle bounds how many items are pulled from the input source
	// each cycle.
	InputPerCycle int

	// NewTasksPerCycle bounds immediate processing per cycle. Negative means
	// no limit.
	NewTasksPerCycle int

	// NovelTasksPerCycle bounds how many novel tasks are processed per cycle.
	NovelTasksPerCycle int

	// STMSize is the capacity of short-term memory.
	STMSize int

	// CreationExpectation is the expectation a derived judgment must exceed
	// to be considered for a new concept.
	CreationExpectation float64

	// BudgetThreshold is the summary below which input is neglected.
	BudgetThreshold float64

	// Volume is the output noise level, 0 to 100.
	Volume int

	// Threads is the number of goroutines firing concepts. One means firing
	// happens on the controller goroutine.
	Threads int

	// Seed seeds the memory's random source.
	Seed uint64

	// RandomSelection switches the concept and novelty bags from the
	// deterministic level walk to seeded weighted random selection.
	RandomSelection bool
}

// DefaultParams returns the stock tunables.
func DefaultParams() Params {
	return Params{
		Timing:                  Iterative,
		ForgetMode:              budget.Iterative,
		Duration:                5,
		ConceptForgetDurations:  2,
		TaskLinkForgetDurations: 4,
		TermLinkForgetDurations: 10,
		ForgetFloor:             0.1,
		ConceptBagLevels:        100,
		ConceptBagSize:          1000,
		ConceptCacheSize:        0,
		TaskLinkBagLevels:       100,
		TaskLinkBagSize:         20,
		TermLinkBagLevels:       100,
		TermLinkBagSize:         100,
		NovelTaskBagLevels:      100,
		NovelTaskBagSize:        10,
		ConceptsFiredPerCycle:   1,
		InputPerCycle:           1,
		NewTasksPerCycle:        -1,
		NovelTasksPerCycle:      1,
		STMSize:                 1,
		CreationExpectation:     0.66,
		BudgetThreshold:         budget.DefaultThreshold,
		Volume:                  100,
		Threads:                 1,
		Seed:                    1,
	}
}

// Validate reports every invalid tunable at once.
func (p Params) Validate() error {
	var errs []error

	positive := func(name string, v int) {
		if v < 1 {
			errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", name, v))
		}
	}
	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %g", name, v))
		}
	}

	if !p.Timing.Valid() {
		errs = append(errs, fmt.Errorf("unknown timing %d", p.Timing))
	}
	positive("duration", p.Duration)
	positive("concept bag levels", p.ConceptBagLevels)
	positive("concept bag size", p.ConceptBagSize)
	positive("task link bag levels", p.TaskLinkBagLevels)
	positive("task link bag size", p.TaskLinkBagSize)
	positive("term link bag levels", p.TermLinkBagLevels)
	positive("term link bag size", p.TermLinkBagSize)
	positive("novel task bag levels", p.NovelTaskBagLevels)
	positive("novel task bag size", p.NovelTaskBagSize)
	positive("threads", p.Threads)
	positive("stm size", p.STMSize)

	if p.ConceptCacheSize < 0 {
		errs = append(errs, fmt.Errorf("concept cache size must not be negative, got %d", p.ConceptCacheSize))
	}
	if p.ConceptsFiredPerCycle < 0 {
		errs = append(errs, fmt.Errorf("concepts fired per cycle must not be negative, got %d", p.ConceptsFiredPerCycle))
	}
	if p.InputPerCycle < 0 {
		errs = append(errs, fmt.Errorf("input per cycle must not be negative, got %d", p.InputPerCycle))
	}
	if p.NovelTasksPerCycle < 0 {
		errs = append(errs, fmt.Errorf("novel tasks per cycle must not be negative, got %d", p.NovelTasksPerCycle))
	}
	if p.ConceptForgetDurations <= 0 || p.TaskLinkForgetDurations <= 0 || p.TermLinkForgetDurations <= 0 {
		errs = append(errs, errors.New("forget durations must be positive"))
	}
	unit("forget floor", p.ForgetFloor)
	unit("creation expectation", p.CreationExpectation)
	unit("budget threshold", p.BudgetThreshold)
	if p.Volume < 0 || p.Volume > 100 {
		errs = append(errs, fmt.Errorf("volume must be within [0,100], got %d", p.Volume))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidParams, errors.Join(errs...))
	}
	return nil
}
