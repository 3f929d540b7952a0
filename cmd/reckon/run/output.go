package runcmder

import (
	"encoding/json"
	"io"
	"sync/atomic"

	"github.com/papercomputeco/reckon/pkg/events"
	"github.com/papercomputeco/reckon/pkg/input"
)

// outputWriter prints reported tasks and echoes as JSONL records.
type outputWriter struct {
	bus  *events.Emitter
	enc  *json.Encoder
	subs []events.Subscription
	n    atomic.Int64
}

func newOutputWriter(bus *events.Emitter, w io.Writer) (*outputWriter, error) {
	o := &outputWriter{bus: bus, enc: json.NewEncoder(w)}

	for kind, fn := range map[events.Kind]events.Handler{
		events.Output: o.onOutput,
		events.Echo:   o.onEcho,
	} {
		sub, err := bus.On(kind, fn)
		if err != nil {
			o.close()
			return nil, err
		}
		o.subs = append(o.subs, sub)
	}
	return o, nil
}

func (o *outputWriter) count() int { return int(o.n.Load()) }

func (o *outputWriter) close() {
	for _, sub := range o.subs {
		o.bus.Off(sub)
	}
	o.subs = nil
}

func (o *outputWriter) onOutput(ev events.Event) {
	out, ok := ev.(events.OutputReported)
	if !ok {
		return
	}
	if o.enc.Encode(input.FromTask(out.Task)) == nil {
		o.n.Add(1)
	}
}

func (o *outputWriter) onEcho(ev events.Event) {
	echo, ok := ev.(events.Echoed)
	if !ok {
		return
	}
	_ = o.enc.Encode(input.Record{
		Command: input.CommandEcho,
		Channel: echo.Channel,
		Message: echo.Message,
	})
}
