package sse_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reckon/pkg/eventstream"
	"github.com/papercomputeco/reckon/pkg/sse"
)

var _ = Describe("Event", func() {
	It("encodes every field", func() {
		var buf bytes.Buffer
		Expect(sse.Event{Type: "reckon.output", ID: "7", Data: "hello"}.Encode(&buf)).To(Succeed())
		Expect(buf.String()).To(Equal("id: 7\nevent: reckon.output\ndata: hello\n\n"))
	})

	It("splits multi-line data", func() {
		var buf bytes.Buffer
		Expect(sse.Event{Data: "a\nb"}.Encode(&buf)).To(Succeed())
		Expect(buf.String()).To(Equal("data: a\ndata: b\n\n"))
	})

	It("round trips through the reader", func() {
		var buf bytes.Buffer
		in := []sse.Event{
			{Type: "first", ID: "1", Data: "one"},
			{Data: "two\nlines"},
		}
		for _, ev := range in {
			Expect(ev.Encode(&buf)).To(Succeed())
		}
		Expect(sse.Comment(&buf, "ping")).To(Succeed())

		r := sse.NewReader(&buf)
		for _, want := range in {
			got, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(*got).To(Equal(want))
		}
		got, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())
	})
})

var _ = Describe("Reader", func() {
	next := func(r *sse.Reader) *sse.Event {
		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		return ev
	}

	It("skips comments and blank lines without data", func() {
		r := sse.NewReader(strings.NewReader(": keep-alive\n\n\nevent: x\n\ndata: y\n\n"))
		ev := next(r)
		Expect(ev.Data).To(Equal("y"))
		Expect(ev.Type).To(BeEmpty())
		Expect(next(r)).To(BeNil())
	})

	It("keeps a colon-free line as a field with no value", func() {
		r := sse.NewReader(strings.NewReader("data\n\n"))
		ev := next(r)
		Expect(ev).NotTo(BeNil())
		Expect(ev.Data).To(BeEmpty())
	})

	It("only strips one space after the colon", func() {
		r := sse.NewReader(strings.NewReader("data:  padded\n\n"))
		Expect(next(r).Data).To(Equal(" padded"))
	})

	It("yields a trailing event without the final blank line", func() {
		r := sse.NewReader(strings.NewReader("id: 3\ndata: last"))
		ev := next(r)
		Expect(ev.ID).To(Equal("3"))
		Expect(ev.Data).To(Equal("last"))
	})

	It("ignores ids containing NULL", func() {
		r := sse.NewReader(strings.NewReader("id: a\x00b\ndata: x\n\n"))
		Expect(next(r).ID).To(BeEmpty())
	})
})

var _ = Describe("Broker", func() {
	var broker *sse.Broker

	BeforeEach(func() {
		broker = sse.NewBroker(2)
	})

	It("delivers to every subscriber", func() {
		a, cancelA := broker.Subscribe()
		defer cancelA()
		b, cancelB := broker.Subscribe()
		defer cancelB()
		Expect(broker.Subscribers()).To(Equal(2))

		broker.Publish(sse.Event{Data: "x"})
		Expect(<-a).To(Equal(sse.Event{Data: "x"}))
		Expect(<-b).To(Equal(sse.Event{Data: "x"}))
	})

	It("drops events for a full subscriber without blocking", func() {
		ch, cancel := broker.Subscribe()
		defer cancel()

		for range 5 {
			broker.Publish(sse.Event{Data: "x"})
		}
		Expect(ch).To(HaveLen(2))
		Expect(broker.Dropped()).To(Equal(3))
	})

	It("closes the channel when the subscription ends", func() {
		ch, cancel := broker.Subscribe()
		cancel()
		cancel()
		Expect(ch).To(BeClosed())
		Expect(broker.Subscribers()).To(BeZero())
	})

	It("closes every channel when the broker closes", func() {
		ch, cancel := broker.Subscribe()
		broker.Close()
		Expect(ch).To(BeClosed())
		cancel()

		late, _ := broker.Subscribe()
		Expect(late).To(BeClosed())
	})
})

var _ = Describe("Publisher", func() {
	It("publishes lifecycle events as JSON", func() {
		broker := sse.NewBroker(0)
		ch, cancel := broker.Subscribe()
		defer cancel()

		p := sse.NewPublisher(broker)
		Expect(p.Publish(context.Background(), &eventstream.LifecycleEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeConceptCreated,
			EventID:       "abc",
			Concept:       &eventstream.ConceptMeta{Term: "bird", Priority: 0.5},
		})).To(Succeed())

		var ev sse.Event
		Eventually(ch).Should(Receive(&ev))
		Expect(ev.Type).To(Equal(eventstream.EventTypeConceptCreated))
		Expect(ev.ID).To(Equal("abc"))

		var decoded eventstream.LifecycleEvent
		Expect(json.Unmarshal([]byte(ev.Data), &decoded)).To(Succeed())
		Expect(decoded.Concept.Term).To(Equal("bird"))
	})

	It("rejects nil events", func() {
		p := sse.NewPublisher(sse.NewBroker(0))
		Expect(p.Publish(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
	})

	It("closes the broker", func() {
		broker := sse.NewBroker(0)
		ch, _ := broker.Subscribe()
		Expect(sse.NewPublisher(broker).Close()).To(Succeed())
		Expect(ch).To(BeClosed())
	})
})
