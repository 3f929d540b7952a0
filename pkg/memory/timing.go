package memory

import (
	"fmt"
	"time"
)

// Timing selects what the memory clock measures.
type Timing int

const (
	// Iterative time is the cycle count.
	Iterative Timing = iota

	// Real time is milliseconds of wall clock since the last reset, sampled
	// once per cycle.
	Real

	// Simulation time only moves when AddSimulationTime is called.
	Simulation
)

func (t Timing) Valid() bool { return t >= Iterative && t <= Simulation }

func (t Timing) String() string {
	switch t {
	case Iterative:
		return "iterative"
	case Real:
		return "real"
	case Simulation:
		return "simulation"
	default:
		return fmt.Sprintf("timing(%d)", int(t))
	}
}

// ParseTiming maps a config string to a Timing.
func ParseTiming(s string) (Timing, error) {
	switch s {
	case "iterative", "":
		return Iterative, nil
	case "real":
		return Real, nil
	case "simulation":
		return Simulation, nil
	default:
		return Iterative, fmt.Errorf("unknown timing %q", s)
	}
}

// clock is owned by the controller goroutine.
type clock struct {
	timing Timing
	now    func() time.Time

	cycle      int64
	realStart  time.Time
	realNow    time.Time
	simulation int64
	previous   int64
}

func newClock(timing Timing, now func() time.Time) *clock {
	if now == nil {
		now = time.Now
	}
	c := &clock{timing: timing, now: now}
	c.reset()
	return c
}

func (c *clock) reset() {
	c.cycle = 0
	c.simulation = 0
	c.realStart = c.now()
	c.realNow = c.realStart
	c.previous = c.time()
}

func (c *clock) time() int64 {
	switch c.timing {
	case Real:
		return c.realNow.Sub(c.realStart).Milliseconds()
	case Simulation:
		return c.simulation
	default:
		return c.cycle
	}
}

func (c *clock) delta() int64 { return c.time() - c.previous }

func (c *clock) advance() {
	c.previous = c.time()
	c.cycle++
	if c.timing == Real {
		c.realNow = c.now()
	}
}
