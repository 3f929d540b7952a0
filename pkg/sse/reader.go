package sse

import (
	"bufio"
	"io"
	"strings"
)

// Reader parses SSE events from a stream.
type Reader struct {
	scanner *bufio.Scanner

	// current accumulates the fields of the event being read.
	current Event
	data    []string
}

// NewReader parses events from src.
func NewReader(src io.Reader) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Reader{scanner: scanner}
}

// Next blocks until a complete event is available. It returns nil, nil
// when the stream ends. Comments and blank lines without data are skipped.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			if ev := r.flush(); ev != nil {
				return ev, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		r.field(line)
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// A stream may end without the final blank line.
	return r.flush(), nil
}

func (r *Reader) field(line string) {
	name, value, ok := strings.Cut(line, ":")
	if ok {
		value = strings.TrimPrefix(value, " ")
	}

	switch name {
	case "event":
		r.current.Type = value
	case "data":
		r.data = append(r.data, value)
	case "id":
		// IDs containing NULL are ignored.
		if !strings.ContainsRune(value, 0) {
			r.current.ID = value
		}
	}
}

func (r *Reader) flush() *Event {
	if r.data == nil {
		r.current = Event{}
		return nil
	}
	ev := r.current
	ev.Data = strings.Join(r.data, "\n")
	r.current, r.data = Event{}, nil
	return &ev
}
