package task

import (
	"fmt"
	"slices"
	"sync/atomic"
)

// Eternal is the occurrence time of sentences that hold regardless of time.
const Eternal int64 = -1 << 63

// MaxEvidence bounds the evidential base carried by a stamp.
const MaxEvidence = 20000

// Stamp records where a sentence came from: a serial unique within one
// memory, when it was created, when it occurs, and the serials of the input
// sentences it was derived from.
type Stamp struct {
	Serial     int64   `json:"serial"`
	Creation   int64   `json:"creation"`
	Occurrence int64   `json:"occurrence"`
	Evidence   []int64 `json:"evidence,omitempty"`

	// Tense places an unsettled input sentence relative to the time it is
	// admitted. TenseNone keeps Occurrence as given.
	Tense Tense `json:"tense,omitempty"`
}

// Tense is the time of an input sentence relative to its admission.
type Tense int

const (
	TenseNone Tense = iota
	TensePast
	TensePresent
	TenseFuture
)

// ParseTense maps "past", "present" and "future" to a Tense. The empty
// string is TenseNone.
func ParseTense(s string) (Tense, error) {
	switch s {
	case "":
		return TenseNone, nil
	case "past":
		return TensePast, nil
	case "present":
		return TensePresent, nil
	case "future":
		return TenseFuture, nil
	default:
		return TenseNone, fmt.Errorf("unknown tense %q", s)
	}
}

// Settled reports whether the stamp has been assigned a serial.
func (s Stamp) Settled() bool { return s.Serial != 0 }

// Settle assigns a serial and creation time to a stamp made outside the
// memory and resolves its tense against now.
func (s *Stamp) Settle(serial, now int64, duration int) {
	s.Serial = serial
	s.Creation = now
	switch s.Tense {
	case TensePast:
		s.Occurrence = now - int64(duration)
	case TensePresent:
		s.Occurrence = now
	case TenseFuture:
		s.Occurrence = now + int64(duration)
	}
	s.Tense = TenseNone
	if len(s.Evidence) == 0 {
		s.Evidence = []int64{serial}
	}
}

// Serials hands out monotonically increasing stamp serials. It is safe for
// concurrent use.
type Serials struct {
	next atomic.Int64
}

// Next returns a fresh serial.
func (s *Serials) Next() int64 {
	return s.next.Add(1)
}

// Reset restarts numbering.
func (s *Serials) Reset() {
	s.next.Store(0)
}

// NewStamp returns the stamp of a fresh input sentence, whose evidence is its
// own serial.
func NewStamp(serial, creation, occurrence int64) Stamp {
	return Stamp{
		Serial:     serial,
		Creation:   creation,
		Occurrence: occurrence,
		Evidence:   []int64{serial},
	}
}

// IsEternal reports whether the stamp has no occurrence time.
func (s Stamp) IsEternal() bool { return s.Occurrence == Eternal }

// Overlaps reports whether s and other share any evidence. Deriving from two
// overlapping stamps would count the same evidence twice.
func (s Stamp) Overlaps(other Stamp) bool {
	for _, e := range s.Evidence {
		if slices.Contains(other.Evidence, e) {
			return true
		}
	}
	return false
}

// Merge builds the stamp of a conclusion drawn from a and b. Evidence is
// interleaved, deduplicated, and truncated to MaxEvidence. The occurrence
// time is taken from a.
func Merge(a, b Stamp, serial, now int64) Stamp {
	evidence := make([]int64, 0, min(len(a.Evidence)+len(b.Evidence), MaxEvidence))
	seen := make(map[int64]struct{}, cap(evidence))

	add := func(e int64) {
		if len(evidence) >= MaxEvidence {
			return
		}
		if _, dup := seen[e]; dup {
			return
		}
		seen[e] = struct{}{}
		evidence = append(evidence, e)
	}

	for i := 0; i < len(a.Evidence) || i < len(b.Evidence); i++ {
		if i < len(a.Evidence) {
			add(a.Evidence[i])
		}
		if i < len(b.Evidence) {
			add(b.Evidence[i])
		}
	}

	return Stamp{
		Serial:     serial,
		Creation:   now,
		Occurrence: a.Occurrence,
		Evidence:   evidence,
	}
}
