package memory

import "errors"

var (
	// ErrInvalidParams wraps every tunable rejected by Params.Validate.
	ErrInvalidParams = errors.New("memory: invalid parameters")

	// ErrClosed is returned when a closed memory is asked to run.
	ErrClosed = errors.New("memory: closed")
)
