// Package inmemory provides a journal driver that keeps entries in memory.
package inmemory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/papercomputeco/reckon/pkg/journal"
)

// Driver implements journal.Driver with a slice.
type Driver struct {
	mu      sync.RWMutex
	entries []*journal.Entry
	nextID  int64
}

// NewDriver creates an empty in-memory journal.
func NewDriver() *Driver {
	return &Driver{}
}

// Record appends entries.
func (d *Driver) Record(_ context.Context, entries ...*journal.Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, e := range entries {
		if e == nil {
			return errors.New("cannot record nil entry")
		}
		if e.Recorded.IsZero() {
			e.Recorded = time.Now().UTC()
		}
		d.nextID++
		e.ID = d.nextID
		stored := *e
		d.entries = append(d.entries, &stored)
	}
	return nil
}

// Get returns the entry with the given ID.
func (d *Driver) Get(_ context.Context, id int64) (*journal.Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	// IDs are dense and start at one.
	if id < 1 || id > int64(len(d.entries)) {
		return nil, journal.NotFoundError{ID: id}
	}
	e := *d.entries[id-1]
	return &e, nil
}

// List returns matching entries.
func (d *Driver) List(_ context.Context, f journal.Filter) ([]*journal.Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*journal.Entry
	for _, e := range d.entries {
		if !f.Match(e) {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Count returns the number of matching entries.
func (d *Driver) Count(_ context.Context, f journal.Filter) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := 0
	for _, e := range d.entries {
		if f.Match(e) {
			n++
		}
	}
	return n, nil
}

// Close is a no-op.
func (d *Driver) Close() error { return nil }
