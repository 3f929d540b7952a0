package task

import "errors"

var (
	// ErrMissingTerm is returned for a sentence without a term.
	ErrMissingTerm = errors.New("task: missing term")

	// ErrInvalidPunctuation is returned for an unknown sentence type.
	ErrInvalidPunctuation = errors.New("task: invalid punctuation")
)
