package input_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/input"
	"github.com/papercomputeco/reckon/pkg/memory"
	"github.com/papercomputeco/reckon/pkg/task"
	"github.com/papercomputeco/reckon/pkg/term"
)

var _ memory.TaskSource = (*input.Queue)(nil)

var _ = Describe("Decode", func() {
	It("decodes a judgment with defaults", func() {
		item, err := input.Decode([]byte(`{"term":"bird","punctuation":"."}`))
		Expect(err).NotTo(HaveOccurred())

		t, ok := item.(*task.Task)
		Expect(ok).To(BeTrue())
		Expect(t.IsInput()).To(BeTrue())
		Expect(t.Term().Name()).To(Equal("bird"))
		Expect(t.Sentence.Truth).To(Equal(task.NewTruth(1, 0.9)))
		Expect(t.Sentence.IsEternal()).To(BeTrue())
		Expect(t.Budget().Priority()).To(Equal(task.DefaultJudgmentPriority))
	})

	It("decodes compound terms and explicit budgets", func() {
		item, err := input.Decode([]byte(
			`{"term":{"op":"-->","args":["robin","bird"]},"punctuation":"?","priority":0.3}`,
		))
		Expect(err).NotTo(HaveOccurred())

		t := item.(*task.Task)
		Expect(t.Term().Name()).To(Equal(term.Statement(term.Atom("robin"), "-->", term.Atom("bird")).Name()))
		Expect(t.Sentence.IsQuestion()).To(BeTrue())
		Expect(t.Budget().Priority()).To(Equal(0.3))
		Expect(t.Budget().Durability()).To(Equal(task.DefaultQuestionDurability))
	})

	It("leaves tensed sentences for the memory to place", func() {
		item, err := input.Decode([]byte(`{"term":"rain","punctuation":".","tense":"present"}`))
		Expect(err).NotTo(HaveOccurred())

		s := item.(*task.Task).Sentence
		Expect(s.IsEternal()).To(BeFalse())
		Expect(s.Stamp.Settled()).To(BeFalse())
		Expect(s.Stamp.Tense).To(Equal(task.TensePresent))
	})

	DescribeTable("decodes commands",
		func(line string, want task.Abstract) {
			item, err := input.Decode([]byte(line))
			Expect(err).NotTo(HaveOccurred())
			Expect(item).To(Equal(want))
		},
		Entry("pause", `{"command":"pause","duration":10}`, task.Pause{Duration: 10}),
		Entry("reset", `{"command":"reset"}`, task.Reset{}),
		Entry("echo", `{"command":"echo","channel":"c","message":"hi"}`, task.Echo{Channel: "c", Message: "hi"}),
		Entry("volume", `{"command":"volume","volume":40}`, task.SetVolume{Volume: 40}),
	)

	DescribeTable("rejects bad records",
		func(line string, want error) {
			_, err := input.Decode([]byte(line))
			Expect(err).To(HaveOccurred())
			if want != nil {
				Expect(err).To(MatchError(want))
			}
		},
		Entry("unknown command", `{"command":"dance"}`, input.ErrUnknownCommand),
		Entry("missing term", `{"punctuation":"."}`, task.ErrMissingTerm),
		Entry("bad punctuation", `{"term":"a","punctuation":";"}`, task.ErrInvalidPunctuation),
		Entry("not json", `{"term":`, nil),
		Entry("bad tense", `{"term":"a","punctuation":".","tense":"someday"}`, nil),
	)

	It("round trips tasks through FromTask", func() {
		item, err := input.Decode([]byte(`{"term":"bird","punctuation":"!","frequency":0.8,"confidence":0.7}`))
		Expect(err).NotTo(HaveOccurred())
		t := item.(*task.Task)

		r := input.FromTask(t)
		again, err := r.Abstract()
		Expect(err).NotTo(HaveOccurred())
		Expect(again.(*task.Task).Key()).To(Equal(t.Key()))
		Expect(*again.(*task.Task).Budget()).To(Equal(*t.Budget()))
	})
})

var _ = Describe("Reader", func() {
	const stream = `# warm-up
{"term":"a","punctuation":"."}

not json
{"command":"reset"}
{"term":"b","punctuation":"?"}
`

	It("skips comments, blanks and malformed lines", func() {
		r := input.NewReader(strings.NewReader(stream), zap.NewNop())

		var got []task.Abstract
		for {
			item, err := r.Next()
			if err == io.EOF {
				break
			}
			Expect(err).NotTo(HaveOccurred())
			got = append(got, item)
		}

		Expect(got).To(HaveLen(3))
		Expect(got[1]).To(Equal(task.Reset{}))
		Expect(r.Skipped()).To(Equal(1))
	})

	It("skips an oversized line and keeps reading", func() {
		long := `{"term":"` + strings.Repeat("x", 2<<20) + `","punctuation":"."}`
		src := long + "\n" + `{"term":"after","punctuation":"."}` + "\n"
		r := input.NewReader(strings.NewReader(src), zap.NewNop())

		item, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		t, ok := item.(*task.Task)
		Expect(ok).To(BeTrue())
		Expect(t.Term().Name()).To(Equal("after"))
		Expect(r.Skipped()).To(Equal(1))

		_, err = r.Next()
		Expect(err).To(Equal(io.EOF))
	})

	It("reads a final line without a newline", func() {
		r := input.NewReader(strings.NewReader(`{"command":"reset"}`), nil)
		item, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(item).To(Equal(task.Reset{}))
	})

	It("feeds a queue", func() {
		q := input.NewQueue(0)
		n, err := input.NewReader(strings.NewReader(stream), nil).Feed(context.Background(), q)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(3))
		Expect(q.Pending()).To(Equal(3))
	})

	It("waits for room in a bounded queue", func() {
		q := input.NewQueue(1)
		done := make(chan int)
		go func() {
			defer GinkgoRecover()
			n, err := input.NewReader(strings.NewReader(stream), nil).Feed(context.Background(), q)
			Expect(err).NotTo(HaveOccurred())
			done <- n
		}()

		var taken int
		Eventually(func() int {
			if _, ok := q.NextTask(); ok {
				taken++
			}
			return taken
		}).Should(Equal(3))
		Eventually(done).Should(Receive(Equal(3)))
	})

	It("stops feeding when the context ends", func() {
		q := input.NewQueue(1)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		n, err := input.NewReader(strings.NewReader(stream), nil).Feed(ctx, q)
		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(n).To(Equal(1))
	})
})

var _ = Describe("Queue", func() {
	It("is first in, first out", func() {
		q := input.NewQueue(0)
		Expect(q.Push(task.Pause{Duration: 1})).To(Succeed())
		Expect(q.Push(task.Pause{Duration: 2})).To(Succeed())

		first, ok := q.NextTask()
		Expect(ok).To(BeTrue())
		Expect(first).To(Equal(task.Pause{Duration: 1}))
		Expect(q.Pending()).To(Equal(1))
	})

	It("bounds its size", func() {
		q := input.NewQueue(1)
		Expect(q.Push(task.Reset{})).To(Succeed())
		Expect(q.Push(task.Reset{})).To(MatchError(input.ErrQueueFull))
	})

	It("rejects pushes once closed but drains", func() {
		q := input.NewQueue(0)
		Expect(q.Push(task.Reset{})).To(Succeed())
		q.Close()

		Expect(q.Push(task.Reset{})).To(MatchError(input.ErrQueueClosed))
		_, ok := q.NextTask()
		Expect(ok).To(BeTrue())
	})

	It("wakes waiting producers when closed", func() {
		q := input.NewQueue(1)
		Expect(q.Push(task.Reset{})).To(Succeed())

		errs := make(chan error, 1)
		go func() {
			errs <- q.PushWait(context.Background(), task.Reset{})
		}()
		Consistently(errs, 50*time.Millisecond).ShouldNot(Receive())

		q.Close()
		Eventually(errs).Should(Receive(MatchError(input.ErrQueueClosed)))
	})

	It("accepts concurrent producers", func() {
		q := input.NewQueue(0)
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 100 {
					_ = q.Push(task.Reset{})
				}
			}()
		}
		wg.Wait()
		Expect(q.Pending()).To(Equal(800))
	})
})
