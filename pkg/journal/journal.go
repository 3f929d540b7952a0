// Package journal records the lifecycle of tasks and concepts: when they were
// admitted, why they left, which concepts were formed and forgotten.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured is returned by commands that need a journal when none is
// configured.
var ErrNotConfigured = errors.New("journal: not configured")

// NotFoundError is returned when an entry does not exist.
type NotFoundError struct {
	ID int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("journal entry not found: %d", e.ID)
}

// Entry is one recorded lifecycle event.
type Entry struct {
	ID int64 `json:"id"`

	// Kind is the event kind name, for example "task_add".
	Kind string `json:"kind"`

	// Subject is the task key or concept term the event is about.
	Subject string `json:"subject"`

	// Reason is set for task additions and removals.
	Reason string `json:"reason,omitempty"`

	Priority float64 `json:"priority"`

	// Time and Cycle are memory time and cycle count when the event fired.
	Time  int64 `json:"time"`
	Cycle int64 `json:"cycle"`

	Recorded time.Time `json:"recorded"`
}

// Filter narrows List and Count. Zero fields match everything.
type Filter struct {
	Kind    string
	Subject string
	Reason  string

	// AfterID only matches entries with a larger ID.
	AfterID int64

	// Limit caps List results. Zero means no cap.
	Limit int
}

// Match reports whether e passes the filter, ignoring Limit.
func (f Filter) Match(e *Entry) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Subject != "" && e.Subject != f.Subject {
		return false
	}
	if f.Reason != "" && e.Reason != f.Reason {
		return false
	}
	return e.ID > f.AfterID
}

// Driver persists journal entries.
type Driver interface {
	// Record stores entries and assigns their IDs in order.
	Record(ctx context.Context, entries ...*Entry) error

	// Get returns one entry, or NotFoundError.
	Get(ctx context.Context, id int64) (*Entry, error)

	// List returns matching entries in ID order.
	List(ctx context.Context, f Filter) ([]*Entry, error)

	// Count returns the number of matching entries.
	Count(ctx context.Context, f Filter) (int, error)

	// Close releases the driver's resources.
	Close() error
}
