// Package sse streams lifecycle events to HTTP clients as Server-Sent
// Events: a Broker fans events out to subscribers, Event.Encode writes the
// wire form and Reader parses it back on the client side.
//
// See the HTML living standard:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"io"
	"strings"
)

// Event is a single SSE event, delimited by a blank line on the wire.
type Event struct {
	// Type is the "event:" field. Empty means the default "message" type.
	Type string

	// Data is the payload. Multi-line data is sent as one "data:" line per
	// line and joined with "\n" again by the reader.
	Data string

	// ID is the "id:" field, if any.
	ID string
}

// Encode writes the event in wire form, terminated by a blank line.
func (e Event) Encode(w io.Writer) error {
	var b strings.Builder
	if e.ID != "" {
		b.WriteString("id: " + e.ID + "\n")
	}
	if e.Type != "" {
		b.WriteString("event: " + e.Type + "\n")
	}
	for line := range strings.SplitSeq(e.Data, "\n") {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Comment writes a comment line. Clients ignore it; servers use it to keep
// idle connections open and notice disconnects.
func Comment(w io.Writer, text string) error {
	_, err := io.WriteString(w, ": "+text+"\n\n")
	return err
}
