package task

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/reckon/pkg/term"
)

// Punctuation is the sentence type.
type Punctuation byte

const (
	Judgment Punctuation = '.'
	Question Punctuation = '?'
	Goal     Punctuation = '!'
	Quest    Punctuation = '@'
)

// ParsePunctuation maps ".", "?", "!" and "@" to a Punctuation.
func ParsePunctuation(s string) (Punctuation, error) {
	if len(s) == 1 {
		switch p := Punctuation(s[0]); p {
		case Judgment, Question, Goal, Quest:
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPunctuation, s)
}

func (p Punctuation) String() string { return string(p) }

// HasTruth reports whether sentences of this type carry a truth value.
func (p Punctuation) HasTruth() bool { return p == Judgment || p == Goal }

// Sentence is a term together with its type, truth value and stamp.
type Sentence struct {
	Term        term.Term
	Punctuation Punctuation
	Truth       Truth
	Stamp       Stamp
}

func (s *Sentence) IsJudgment() bool { return s.Punctuation == Judgment }
func (s *Sentence) IsQuestion() bool { return s.Punctuation == Question }
func (s *Sentence) IsGoal() bool     { return s.Punctuation == Goal }
func (s *Sentence) IsQuest() bool    { return s.Punctuation == Quest }
func (s *Sentence) IsEternal() bool  { return s.Stamp.IsEternal() }

// Validate rejects sentences the controller cannot schedule.
func (s *Sentence) Validate() error {
	if s.Term.IsZero() {
		return ErrMissingTerm
	}
	switch s.Punctuation {
	case Judgment, Question, Goal, Quest:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPunctuation, string(s.Punctuation))
	}
	return nil
}

// Key identifies a sentence by content: term, type, truth and occurrence.
// Two tasks with the same key are the same piece of knowledge.
func (s *Sentence) Key() string {
	var sb strings.Builder
	sb.WriteString(s.Term.Name())
	sb.WriteByte(byte(s.Punctuation))
	if !s.IsEternal() {
		fmt.Fprintf(&sb, " :|%d|:", s.Stamp.Occurrence)
	}
	if s.Punctuation.HasTruth() {
		sb.WriteByte(' ')
		sb.WriteString(s.Truth.String())
	}
	return sb.String()
}

func (s *Sentence) String() string { return s.Key() }
