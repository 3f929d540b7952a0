package input

import (
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/reckon/pkg/budget"
	"github.com/papercomputeco/reckon/pkg/task"
	"github.com/papercomputeco/reckon/pkg/term"
)

// Commands a record can carry instead of a sentence.
const (
	CommandPause  = "pause"
	CommandReset  = "reset"
	CommandEcho   = "echo"
	CommandVolume = "volume"
)

const (
	defaultFrequency  = 1.0
	defaultConfidence = 0.9
)

// Record is the wire form of one input item, one JSON object per line:
//
//	{"term":"bird","punctuation":".","frequency":1,"confidence":0.9}
//	{"term":{"op":"-->","args":["robin","bird"]},"punctuation":"?"}
//	{"term":"rain","punctuation":".","tense":"present","priority":0.95}
//	{"command":"pause","duration":10}
//
// A record either names a command or carries a sentence.
type Record struct {
	Command string `json:"command,omitempty"`

	Term        term.Term `json:"term,omitzero"`
	Punctuation string    `json:"punctuation,omitempty"`

	Frequency  *float64 `json:"frequency,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`

	Priority   *float64 `json:"priority,omitempty"`
	Durability *float64 `json:"durability,omitempty"`
	Quality    *float64 `json:"quality,omitempty"`

	// Tense places the sentence relative to its admission: "past",
	// "present" or "future". Occurrence sets an absolute time instead. With
	// neither, the sentence is eternal.
	Tense      string `json:"tense,omitempty"`
	Occurrence *int64 `json:"occurrence,omitempty"`

	Duration int64  `json:"duration,omitempty"`
	Channel  string `json:"channel,omitempty"`
	Message  string `json:"message,omitempty"`
	Volume   int    `json:"volume,omitempty"`
}

// Decode parses one JSON record into an input item.
func Decode(data []byte) (task.Abstract, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return r.Abstract()
}

// Abstract converts the record into a task or command. Tasks are returned
// unsettled; the memory stamps them on admission.
func (r Record) Abstract() (task.Abstract, error) {
	switch r.Command {
	case "":
		return r.task()
	case CommandPause:
		return task.Pause{Duration: r.Duration}, nil
	case CommandReset:
		return task.Reset{}, nil
	case CommandEcho:
		return task.Echo{Channel: r.Channel, Message: r.Message}, nil
	case CommandVolume:
		return task.SetVolume{Volume: r.Volume}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, r.Command)
	}
}

func (r Record) task() (*task.Task, error) {
	punct, err := task.ParsePunctuation(r.Punctuation)
	if err != nil {
		return nil, err
	}
	tense, err := task.ParseTense(r.Tense)
	if err != nil {
		return nil, err
	}

	s := task.Sentence{
		Term:        r.Term,
		Punctuation: punct,
		Stamp:       task.Stamp{Occurrence: task.Eternal, Tense: tense},
	}
	if r.Occurrence != nil {
		s.Stamp.Occurrence = *r.Occurrence
	} else if tense != task.TenseNone {
		s.Stamp.Occurrence = 0
	}
	if punct.HasTruth() {
		s.Truth = task.NewTruth(valueOr(r.Frequency, defaultFrequency), valueOr(r.Confidence, defaultConfidence))
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	b := task.DefaultBudget(&s)
	if r.Priority != nil || r.Durability != nil || r.Quality != nil {
		b = budget.New(
			valueOr(r.Priority, b.Priority()),
			valueOr(r.Durability, b.Durability()),
			valueOr(r.Quality, b.Quality()),
		)
	}
	return task.NewInput(s, b), nil
}

// FromTask is the inverse of Abstract for tasks, used to echo tasks back to
// clients.
func FromTask(t *task.Task) Record {
	r := Record{
		Term:        t.Term(),
		Punctuation: t.Sentence.Punctuation.String(),
	}
	if t.Sentence.Punctuation.HasTruth() {
		f, c := t.Sentence.Truth.Frequency, t.Sentence.Truth.Confidence
		r.Frequency, r.Confidence = &f, &c
	}
	b := t.Budget()
	p, d, q := b.Priority(), b.Durability(), b.Quality()
	r.Priority, r.Durability, r.Quality = &p, &d, &q
	if !t.Sentence.IsEternal() {
		occ := t.Sentence.Stamp.Occurrence
		r.Occurrence = &occ
	}
	return r
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
