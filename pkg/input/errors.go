package input

import "errors"

var (
	// ErrUnknownCommand is returned for a record naming a command this
	// package does not know.
	ErrUnknownCommand = errors.New("input: unknown command")

	// ErrQueueFull is returned by Push on a bounded queue that has no room.
	ErrQueueFull = errors.New("input: queue full")

	// ErrQueueClosed is returned by Push after Close.
	ErrQueueClosed = errors.New("input: queue closed")
)
