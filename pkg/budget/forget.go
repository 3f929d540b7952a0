package budget

import "math"

// Mode selects the clock that elapsed time is measured on when forgetting.
type Mode int

const (
	// Iterative measures elapsed time in controller cycles.
	Iterative Mode = iota

	// Periodic measures elapsed time on the memory clock (real or simulated).
	Periodic
)

func (m Mode) String() string {
	switch m {
	case Iterative:
		return "iterative"
	case Periodic:
		return "periodic"
	default:
		return "unknown"
	}
}

// ParseMode maps a config string to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "iterative", "":
		return Iterative, true
	case "periodic":
		return Periodic, true
	default:
		return Iterative, false
	}
}

// Forget decays the priority of b over elapsed units and returns the result.
//
// The curve is
//
//	p' = f·p + (p − f·p) · d^elapsed
//
// where f is the floor, p the priority and d the durability. It is
// non-increasing in elapsed, leaves p untouched when d = 1, never goes below
// f·p, and moves toward the floor faster as durability drops. Durability and
// quality are not changed.
func Forget(b Budget, elapsed, floor float64) Budget {
	if elapsed <= 0 || math.IsNaN(elapsed) || b.durability >= 1 {
		return b
	}
	floor = clamp(floor)
	p := b.priority
	base := floor * p
	b.priority = math.Min(p, base+(p-base)*math.Pow(b.durability, elapsed))
	return b
}

// Forgetter applies Forget to budgets in place against a caller-supplied
// clock. One Forgetter is owned by each memory.
type Forgetter struct {
	Mode Mode

	// Floor is the relative priority floor passed to Forget.
	Floor float64
}

// Apply decays b in place. period is the number of clock units that count as
// one forgetting unit (for instance concept forget durations × duration), now
// is the current time in the clock selected by Mode.
func (f Forgetter) Apply(b *Budget, period float64, now int64) {
	elapsed := b.Touch(now)
	if elapsed == 0 {
		return
	}
	if period <= 0 {
		period = 1
	}
	*b = Forget(*b, float64(elapsed)/period, f.Floor)
}
