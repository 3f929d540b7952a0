package task

import (
	"fmt"
	"math"
)

// Truth is the (frequency, confidence) pair carried by judgments and goals.
type Truth struct {
	Frequency  float64 `json:"frequency"`
	Confidence float64 `json:"confidence"`
}

// NewTruth returns a truth value with both components clamped to [0,1].
// Confidence is capped just below 1 so that evidence is never absolute.
func NewTruth(frequency, confidence float64) Truth {
	return Truth{
		Frequency:  unit(frequency),
		Confidence: math.Min(unit(confidence), maxConfidence),
	}
}

const maxConfidence = 0.99

// Expectation is c·(f − ½) + ½.
func (t Truth) Expectation() float64 {
	return t.Confidence*(t.Frequency-0.5) + 0.5
}

// Quality maps a truth value to a budget quality: strong positive or negative
// evidence are both worth keeping.
func (t Truth) Quality() float64 {
	exp := t.Expectation()
	return math.Max(exp, (1-exp)*0.75)
}

func (t Truth) String() string {
	return fmt.Sprintf("%%%.2f;%.2f%%", t.Frequency, t.Confidence)
}

func unit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
