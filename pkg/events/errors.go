package events

import "errors"

var (
	// ErrUnknownKind is returned when subscribing to a kind outside the
	// declared set.
	ErrUnknownKind = errors.New("events: unknown kind")

	// ErrNilHandler is returned when subscribing a nil handler.
	ErrNilHandler = errors.New("events: nil handler")
)
