// Package budget provides the (priority, durability, quality) triple attached
// to every schedulable item, and the forgetting functions that decay it.
//
// All three components are kept in [0,1]. Setters clamp; they never fail.
package budget

import (
	"fmt"
	"math"
)

// DefaultThreshold is the summary value below which a budget is considered
// too weak to be admitted.
const DefaultThreshold = 0.01

// Budget controls how soon (priority), how long (durability) and how well
// (quality) an item is processed.
//
// A Budget is mutated in place by the controller. It must not be shared
// between two live items.
type Budget struct {
	priority   float64
	durability float64
	quality    float64

	// lastForget is the time of the last decay, in whichever clock the
	// caller forgets with. touched is false until the first decay.
	lastForget int64
	touched    bool
}

// New returns a clamped budget.
func New(priority, durability, quality float64) Budget {
	return Budget{
		priority:   clamp(priority),
		durability: clamp(durability),
		quality:    clamp(quality),
	}
}

func (b Budget) Priority() float64   { return b.priority }
func (b Budget) Durability() float64 { return b.durability }
func (b Budget) Quality() float64    { return b.quality }

func (b *Budget) SetPriority(v float64)   { b.priority = clamp(v) }
func (b *Budget) SetDurability(v float64) { b.durability = clamp(v) }
func (b *Budget) SetQuality(v float64)    { b.quality = clamp(v) }

// IncPriority raises priority by v, saturating at 1.
func (b *Budget) IncPriority(v float64) { b.SetPriority(b.priority + v) }

// Summary is the geometric mean of the three components.
func (b Budget) Summary() float64 {
	return math.Cbrt(b.priority * b.durability * b.quality)
}

// AboveThreshold reports whether the summary reaches threshold.
func (b Budget) AboveThreshold(threshold float64) bool {
	return b.Summary() >= threshold
}

// Merge combines other into b by taking the maximum of each component, so
// re-inserting an item never weakens it.
func (b *Budget) Merge(other Budget) {
	b.priority = math.Max(b.priority, other.priority)
	b.durability = math.Max(b.durability, other.durability)
	b.quality = math.Max(b.quality, other.quality)
	if other.touched && (!b.touched || other.lastForget > b.lastForget) {
		b.lastForget = other.lastForget
		b.touched = true
	}
}

// Activate strengthens b with an incoming activation: priority is combined by
// probabilistic OR and durability is averaged. Quality is left as is.
func (b *Budget) Activate(in Budget) {
	b.priority = clamp(1 - (1-b.priority)*(1-in.priority))
	b.durability = clamp((b.durability + in.durability) / 2)
}

// LastForget returns the time of the last decay and whether there was one.
func (b Budget) LastForget() (int64, bool) {
	return b.lastForget, b.touched
}

// Touch records now as the last decay time and returns the elapsed time since
// the previous touch. The first touch returns zero.
func (b *Budget) Touch(now int64) int64 {
	if !b.touched {
		b.touched = true
		b.lastForget = now
		return 0
	}
	elapsed := now - b.lastForget
	b.lastForget = now
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (b Budget) String() string {
	return fmt.Sprintf("$%.2f;%.2f;%.2f$", b.priority, b.durability, b.quality)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
