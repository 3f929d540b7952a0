package memory_test

import (
	"context"
	"errors"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reckon/pkg/budget"
	"github.com/papercomputeco/reckon/pkg/concept"
	"github.com/papercomputeco/reckon/pkg/events"
	"github.com/papercomputeco/reckon/pkg/inference"
	"github.com/papercomputeco/reckon/pkg/memory"
	"github.com/papercomputeco/reckon/pkg/operator"
	"github.com/papercomputeco/reckon/pkg/task"
	"github.com/papercomputeco/reckon/pkg/term"
)

type pairInducer struct {
	inference.Nop
	pairs []string
}

func (i *pairInducer) Induce(_ context.Context, ic inference.InduceContext) []*task.Task {
	i.pairs = append(i.pairs, ic.Previous.Term().Name()+"->"+ic.Event.Term().Name())
	return nil
}

// countingEngine derives one judgment per firing.
type countingEngine struct {
	fired atomic.Int32
}

func (e *countingEngine) Fire(_ context.Context, fc inference.FireContext) []*task.Task {
	e.fired.Add(1)
	return []*task.Task{derivedJudgment("from-"+fc.Concept.Key(), 0.5, 1, 0.9)}
}

var _ = Describe("Memory", func() {
	var (
		ctx    context.Context
		params memory.Params
		m      *memory.Memory
	)

	newMemory := func(c *memory.Config) *memory.Memory {
		mem, err := memory.New(c)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(mem.Close)
		return mem
	}

	BeforeEach(func() {
		ctx = context.Background()
		params = memory.DefaultParams()
	})

	JustBeforeEach(func() {
		m = newMemory(&memory.Config{Params: params})
	})

	It("rejects invalid parameters", func() {
		params.ConceptBagSize = 0
		_, err := memory.New(&memory.Config{Params: params})
		Expect(err).To(MatchError(memory.ErrInvalidParams))
	})

	Describe("a cycle", func() {
		It("emits its events in order", func() {
			rec := record(m.Events(),
				events.CycleStart, events.Input, events.TaskAdd, events.ConceptNew,
				events.TaskImmediateProcess, events.CycleEnd,
			)

			m.Cycle(ctx, &sliceSource{items: []task.Abstract{inputJudgment("bird", 0.8)}})

			Expect(rec.kinds()).To(Equal([]events.Kind{
				events.CycleStart,
				events.Input,
				events.TaskAdd,
				events.ConceptNew,
				events.TaskImmediateProcess,
				events.CycleEnd,
			}))
			Expect(m.Cycles()).To(Equal(int64(1)))
			Expect(m.Time()).To(Equal(int64(1)))

			_, ok := m.Concept(term.Atom("bird"))
			Expect(ok).To(BeTrue())
		})

		It("does nothing while disabled", func() {
			rec := record(m.Events(), events.CycleStart, events.CycleEnd)
			m.SetEnabled(false)

			m.Cycle(ctx, nil)

			Expect(rec.kinds()).To(BeEmpty())
			Expect(m.Cycles()).To(BeZero())
		})

		It("runs scheduled work on the controller", func() {
			ran := false
			m.AddOtherTask(func() { ran = true })
			m.Cycle(ctx, nil)
			Expect(ran).To(BeTrue())
		})
	})

	Describe("input", func() {
		It("neglects tasks below the budget threshold", func() {
			rec := record(m.Events(), events.TaskAdd, events.TaskRemove)
			weak := task.NewInput(sentence("faint", task.Judgment, 1, 0.9), budget.New(0.001, 0.001, 0.001))

			m.InputTask(ctx, weak)

			Expect(rec.removed(events.Neglected)).To(Equal([]string{"faint"}))
			Expect(rec.count(events.TaskAdd)).To(BeZero())
			Expect(m.NewTasks()).To(BeEmpty())
		})

		It("stamps unsettled input", func() {
			in := inputEvent("now")
			m.InputTask(ctx, in)

			Expect(in.Sentence.Stamp.Settled()).To(BeTrue())
			Expect(in.Sentence.Stamp.Occurrence).To(Equal(m.Time()))
			Expect(in.Sentence.Stamp.Evidence).To(Equal([]int64{in.Sentence.Stamp.Serial}))
		})

		It("reports malformed input", func() {
			rec := record(m.Events(), events.Error, events.TaskAdd)
			m.InputTask(ctx, task.NewInput(task.Sentence{Punctuation: task.Judgment}, budget.New(0.8, 0.8, 0.8)))

			Expect(rec.kinds()).To(Equal([]events.Kind{events.Error}))
		})

		It("pauses input for the requested time", func() {
			src := &sliceSource{items: []task.Abstract{
				task.Pause{Duration: 3},
				inputJudgment("later", 0.8),
			}}

			for range 3 {
				m.Cycle(ctx, src)
			}
			Expect(src.Pending()).To(Equal(1))
			Expect(m.ProcessingInput()).To(BeTrue())

			m.Cycle(ctx, src)
			Expect(src.Pending()).To(BeZero())
		})

		It("echoes messages", func() {
			var got events.Echoed
			_, err := events.Subscribe(m.Events(), func(e events.Echoed) { got = e })
			Expect(err).NotTo(HaveOccurred())

			m.InputTask(ctx, task.Echo{Channel: "log", Message: "hello"})

			Expect(got).To(Equal(events.Echoed{Channel: "log", Message: "hello"}))
		})

		It("clamps the volume", func() {
			m.InputTask(ctx, task.SetVolume{Volume: 250})
			Expect(m.Volume()).To(Equal(100))

			m.InputTask(ctx, task.SetVolume{Volume: -4})
			Expect(m.Volume()).To(BeZero())
		})
	})

	Describe("ProcessNewTasks", func() {
		It("leaves tasks beyond the limit queued in order", func() {
			for _, name := range []string{"a", "b"} {
				m.InputTask(ctx, inputJudgment(name, 0.8))
			}
			m.ProcessNewTasks(ctx, -1)
			rec := record(m.Events(), events.TaskImmediateProcess)

			m.InputTask(ctx, inputJudgment("a", 0.6))
			m.InputTask(ctx, inputJudgment("b", 0.6))

			Expect(m.ProcessNewTasks(ctx, 1)).To(Equal(1))
			Expect(rec.processed()).To(Equal([]string{"a"}))

			queued := m.NewTasks()
			Expect(queued).To(HaveLen(1))
			Expect(queued[0].Term().Name()).To(Equal("b"))

			m.InputTask(ctx, inputJudgment("c", 0.6))
			Expect(m.ProcessNewTasks(ctx, 1)).To(Equal(1))
			Expect(rec.processed()).To(Equal([]string{"a", "b"}))
			Expect(m.NewTasks()).To(HaveLen(1))
		})

		It("processes nothing with a zero limit", func() {
			m.InputTask(ctx, inputJudgment("a", 0.8))
			Expect(m.ProcessNewTasks(ctx, 0)).To(BeZero())
			Expect(m.NewTasks()).To(HaveLen(1))
		})

		It("processes judgments about known concepts immediately", func() {
			m.InputTask(ctx, inputJudgment("known", 0.8))
			m.ProcessNewTasks(ctx, -1)
			rec := record(m.Events(), events.TaskImmediateProcess)

			m.InputTask(ctx, derivedJudgment("known", 0.5, 0.2, 0.9))
			m.ProcessNewTasks(ctx, -1)

			Expect(rec.processed()).To(Equal([]string{"known"}))
			Expect(m.NovelTasks().Size()).To(BeZero())
		})

		It("sends confident judgments about new terms to the novelty bag", func() {
			m.InputTask(ctx, derivedJudgment("fresh", 0.5, 1, 0.9))
			Expect(m.ProcessNewTasks(ctx, -1)).To(BeZero())

			Expect(m.NovelTasks().Size()).To(Equal(1))

			Expect(m.ProcessNovelTasks(ctx, 5)).To(Equal(1))
			Expect(m.NovelTasks().Size()).To(BeZero())
			_, ok := m.Concept(term.Atom("fresh"))
			Expect(ok).To(BeTrue())
		})

		It("folds a repeated novel judgment into one task", func() {
			rec := record(m.Events(), events.TaskAdd, events.TaskRemove)
			first := derivedJudgment("dup", 0.3, 1, 0.9)
			m.InputTask(ctx, first)
			m.InputTask(ctx, derivedJudgment("dup", 0.6, 1, 0.9))
			m.ProcessNewTasks(ctx, -1)

			Expect(m.NovelTasks().Size()).To(Equal(1))
			Expect(m.Stats().LiveTasks).To(Equal(1))
			Expect(rec.removed(events.Completed)).To(Equal([]string{"dup"}))
			kept, ok := m.NovelTasks().Get(first.Key())
			Expect(ok).To(BeTrue())
			Expect(kept.Budget().Priority()).To(BeNumerically("~", 0.6, 1e-9))

			Expect(m.ProcessNovelTasks(ctx, 10)).To(Equal(1))
			Expect(m.NovelTasks().Size()).To(BeZero())
			Expect(m.Stats().LiveTasks).To(Equal(1))
		})

		It("neglects unconfident judgments about new terms", func() {
			rec := record(m.Events(), events.TaskRemove)
			m.InputTask(ctx, derivedJudgment("doubt", 0.5, 0, 0.9))
			m.ProcessNewTasks(ctx, -1)

			Expect(rec.removed(events.Neglected)).To(Equal([]string{"doubt"}))
			Expect(m.NovelTasks().Size()).To(BeZero())
		})

		It("tracks how busy it is", func() {
			m.InputTask(ctx, task.NewInput(sentence("a", task.Judgment, 1, 0.9), budget.New(0.9, 0.8, 0.5)))
			m.ProcessNewTasks(ctx, -1)
			Expect(m.Busy()).To(BeNumerically("~", (0.5+0.9*0.8)/1.8, 1e-9))
		})

		Context("with a full novelty bag", func() {
			BeforeEach(func() {
				params.NovelTaskBagLevels = 10
				params.NovelTaskBagSize = 1
			})

			It("ignores a newcomer that lands on the lowest level", func() {
				rec := record(m.Events(), events.TaskRemove)
				m.InputTask(ctx, derivedJudgment("resident", 0.9, 1, 0.34))
				m.InputTask(ctx, derivedJudgment("newcomer", 0.2, 1, 0.34))
				m.ProcessNewTasks(ctx, -1)

				Expect(rec.removed(events.Ignored)).To(Equal([]string{"newcomer"}))
				Expect(rec.removed(events.Displaced)).To(BeEmpty())
			})

			It("displaces a weaker resident", func() {
				rec := record(m.Events(), events.TaskRemove)
				m.InputTask(ctx, derivedJudgment("resident", 0.2, 1, 0.34))
				m.InputTask(ctx, derivedJudgment("newcomer", 0.9, 1, 0.34))
				m.ProcessNewTasks(ctx, -1)

				Expect(rec.removed(events.Displaced)).To(Equal([]string{"resident"}))
				Expect(rec.removed(events.Ignored)).To(BeEmpty())
				Expect(string(events.Displaced)).To(Equal("Displaced novel task"))
			})
		})
	})

	Describe("short-term memory", func() {
		var inducer *pairInducer

		JustBeforeEach(func() {
			inducer = &pairInducer{}
			m = newMemory(&memory.Config{Params: params, Engine: inducer})
		})

		It("pairs each event with the previous ones and stays bounded", func() {
			rec := record(m.Events(), events.InduceSucceedingEvent)
			for _, name := range []string{"a", "b", "a"} {
				m.InputTask(ctx, inputEvent(name))
				m.ProcessNewTasks(ctx, -1)
			}

			Expect(inducer.pairs).To(Equal([]string{"a->b", "b->a"}))
			Expect(rec.count(events.InduceSucceedingEvent)).To(Equal(3))

			stm := m.STM()
			Expect(stm).To(HaveLen(1))
			Expect(stm[0].Term().Name()).To(Equal("a"))
		})

		It("skips pairs with equal terms", func() {
			m.InputTask(ctx, inputEvent("a"))
			m.ProcessNewTasks(ctx, -1)
			m.InputTask(ctx, inputEvent("a"))
			m.ProcessNewTasks(ctx, -1)

			Expect(inducer.pairs).To(BeEmpty())
			Expect(m.STM()).To(HaveLen(1))
		})

		It("ignores eternal judgments", func() {
			m.InputTask(ctx, inputJudgment("always", 0.8))
			m.ProcessNewTasks(ctx, -1)
			Expect(m.STM()).To(BeEmpty())
		})

		Context("with room for several events", func() {
			BeforeEach(func() {
				params.STMSize = 2
			})

			It("evicts the oldest event", func() {
				for _, name := range []string{"a", "b", "c"} {
					m.InputTask(ctx, inputEvent(name))
					m.ProcessNewTasks(ctx, -1)
				}

				Expect(inducer.pairs).To(Equal([]string{"a->b", "a->c", "b->c"}))
				stm := m.STM()
				Expect(stm).To(HaveLen(2))
				Expect(stm[0].Term().Name()).To(Equal("b"))
				Expect(stm[1].Term().Name()).To(Equal("c"))
			})
		})
	})

	Describe("operations", func() {
		goal := func(op string) *task.Task {
			s := task.Sentence{
				Term:        term.Operation(op),
				Punctuation: task.Goal,
				Truth:       task.NewTruth(1, 0.9),
				Stamp:       task.Stamp{Occurrence: task.Eternal},
			}
			return task.NewInput(s, budget.New(0.9, 0.9, 0.9))
		}

		It("executes known operators and feeds back the result", func() {
			rec := record(m.Events(), events.TaskAdd)
			m.InputTask(ctx, goal("^feelBusy"))
			m.ProcessNewTasks(ctx, 1)

			executed := rec.added(events.Executed)
			Expect(executed).To(HaveLen(2))
			Expect(executed).To(ContainElement(term.Operation("^feelBusy").Name()))
			Expect(executed).To(ContainElement(ContainSubstring("busy")))

			for _, t := range m.NewTasks() {
				cause, ok := t.Cause()
				Expect(ok).To(BeTrue())
				Expect(cause.Name()).To(Equal(term.Operation("^feelBusy").Name()))
				Expect(t.InductionCandidate()).To(BeTrue())
			}
		})

		It("skips unknown operators", func() {
			rec := record(m.Events(), events.TaskAdd, events.Error)
			m.InputTask(ctx, goal("^dance"))
			m.ProcessNewTasks(ctx, -1)

			Expect(rec.added(events.Executed)).To(BeEmpty())
			Expect(rec.count(events.Error)).To(BeZero())
		})

		It("reports operator failures", func() {
			Expect(m.Operators().Register(&operator.Operator{
				Name: "^fail",
				Caps: operator.External,
				Exec: func(context.Context, operator.Host, []term.Term) ([]operator.Feedback, error) {
					return nil, errors.New("boom")
				},
			})).To(Succeed())
			rec := record(m.Events(), events.Error, events.TaskAdd)

			m.InputTask(ctx, goal("^fail"))
			m.ProcessNewTasks(ctx, -1)

			Expect(rec.count(events.Error)).To(Equal(1))
			Expect(rec.added(events.Executed)).To(BeEmpty())
		})
	})

	Describe("output", func() {
		JustBeforeEach(func() {
			m.InputTask(ctx, inputJudgment("x", 0.8))
			m.ProcessNewTasks(ctx, -1)
		})

		It("reports derived tasks at full volume", func() {
			rec := record(m.Events(), events.Output)
			m.InputTask(ctx, derivedJudgment("x", 0.9, 1, 0.8))
			m.ProcessNewTasks(ctx, -1)
			Expect(rec.count(events.Output)).To(Equal(1))
		})

		It("stays quiet at zero volume", func() {
			m.SetVolume(0)
			rec := record(m.Events(), events.Output)
			m.InputTask(ctx, derivedJudgment("x", 0.9, 1, 0.8))
			m.ProcessNewTasks(ctx, -1)
			Expect(rec.count(events.Output)).To(BeZero())
		})

		It("never reports input", func() {
			rec := record(m.Events(), events.Output)
			m.InputTask(ctx, inputJudgment("x", 0.9))
			m.ProcessNewTasks(ctx, -1)
			Expect(rec.count(events.Output)).To(BeZero())
		})
	})

	Describe("concept cache", func() {
		BeforeEach(func() {
			params.ConceptBagSize = 1
			params.ConceptCacheSize = 1
		})

		It("caches displaced concepts and destroys the oldest when full", func() {
			var forgotten []events.ConceptForgotten
			_, err := events.Subscribe(m.Events(), func(e events.ConceptForgotten) {
				forgotten = append(forgotten, e)
			})
			Expect(err).NotTo(HaveOccurred())
			rec := record(m.Events(), events.TaskRemove, events.ConceptRemember)

			m.InputTask(ctx, inputJudgment("c1", 0.3))
			m.InputTask(ctx, inputJudgment("c2", 0.5))
			m.InputTask(ctx, inputJudgment("c3", 0.9))
			m.ProcessNewTasks(ctx, -1)

			Expect(forgotten).To(HaveLen(3))
			Expect(forgotten[0].Concept.Key()).To(Equal("c1"))
			Expect(forgotten[0].Cached).To(BeTrue())
			Expect(forgotten[1].Concept.Key()).To(Equal("c2"))
			Expect(forgotten[1].Cached).To(BeTrue())
			Expect(forgotten[2].Concept.Key()).To(Equal("c1"))
			Expect(forgotten[2].Cached).To(BeFalse())

			Expect(rec.removed(events.Completed)).To(Equal([]string{"c1"}))
			Expect(m.Attention().Size()).To(Equal(1))
			Expect(m.Attention().CacheSize()).To(Equal(1))

			m.InputTask(ctx, inputJudgment("c2", 0.95))
			m.ProcessNewTasks(ctx, -1)
			Expect(rec.count(events.ConceptRemember)).To(Equal(1))
			_, ok := m.Concept(term.Atom("c2"))
			Expect(ok).To(BeTrue())
		})
	})

	Describe("Reset", func() {
		It("clears everything and announces itself", func() {
			m.Cycle(ctx, &sliceSource{items: []task.Abstract{inputJudgment("a", 0.8)}})
			m.InputTask(ctx, inputJudgment("b", 0.8))
			m.StepLater(100)
			rec := record(m.Events(), events.ResetStart, events.ResetEnd)

			m.InputTask(ctx, task.Reset{})

			Expect(rec.kinds()).To(Equal([]events.Kind{events.ResetStart, events.ResetEnd}))
			stats := m.Stats()
			Expect(stats.Concepts).To(BeZero())
			Expect(stats.NewTasks).To(BeZero())
			Expect(stats.LiveTasks).To(BeZero())
			Expect(stats.Cycles).To(BeZero())
			Expect(stats.Paused).To(BeFalse())
			Expect(stats.Busy).To(Equal(0.5))
			Expect(stats.Happy).To(Equal(0.5))
		})

		It("restarts serial numbers", func() {
			before := inputEvent("a")
			m.InputTask(ctx, before)
			m.InputTask(ctx, task.Reset{})

			after := inputEvent("a")
			m.InputTask(ctx, after)
			Expect(after.Sentence.Stamp.Serial).To(Equal(before.Sentence.Stamp.Serial))
		})

		Context("with random selection", func() {
			BeforeEach(func() {
				params.RandomSelection = true
				params.Seed = 7
			})

			It("selects in the same order as a fresh memory", func() {
				selectAll := func() []string {
					rec := record(m.Events(), events.TaskImmediateProcess)
					for i, p := range []float64{0.15, 0.35, 0.55, 0.75, 0.95, 0.25, 0.65, 0.85} {
						m.InputTask(ctx, derivedJudgment(string(rune('a'+i)), p, 1, 0.9))
					}
					m.ProcessNewTasks(ctx, -1)
					m.ProcessNovelTasks(ctx, 8)
					return rec.processed()
				}

				first := selectAll()
				Expect(first).To(HaveLen(8))

				m.InputTask(ctx, task.Reset{})
				Expect(selectAll()).To(Equal(first))
			})
		})
	})

	Describe("firing", func() {
		var engine *countingEngine

		BeforeEach(func() {
			params.InputPerCycle = 3
			params.ConceptsFiredPerCycle = 3
		})

		JustBeforeEach(func() {
			engine = &countingEngine{}
			m = newMemory(&memory.Config{Params: params, Engine: engine})
		})

		fireTwice := func() *recorder {
			rec := record(m.Events(), events.ConceptFire, events.TaskDerive)
			m.Events().Synch()

			src := &sliceSource{items: []task.Abstract{
				inputJudgment("a", 0.8),
				inputJudgment("b", 0.8),
				inputJudgment("c", 0.8),
			}}
			m.Cycle(ctx, src)
			m.Cycle(ctx, src)
			return rec
		}

		It("fires selected concepts and admits what they derive", func() {
			rec := fireTwice()

			Expect(engine.fired.Load()).To(Equal(int32(3)))
			Expect(rec.count(events.ConceptFire)).To(Equal(3))
			Expect(rec.count(events.TaskDerive)).To(Equal(3))
			Expect(m.Attention().Size()).To(BeNumerically(">=", 3))
		})

		Context("on a worker pool", func() {
			BeforeEach(func() {
				params.Threads = 4
			})

			It("fires every concept exactly once per cycle", func() {
				rec := fireTwice()

				Expect(engine.fired.Load()).To(Equal(int32(3)))
				Expect(rec.count(events.ConceptFire)).To(Equal(3))
				Expect(rec.count(events.TaskDerive)).To(Equal(3))
				for _, name := range []string{"a", "b", "c"} {
					_, ok := m.Concept(term.Atom(name))
					Expect(ok).To(BeTrue())
				}
			})
		})

		It("survives a panicking engine", func() {
			m = newMemory(&memory.Config{
				Params: params,
				Engine: inference.EngineFunc(func(context.Context, inference.FireContext) []*task.Task {
					panic("bad rule")
				}),
			})
			rec := record(m.Events(), events.Error)

			src := &sliceSource{items: []task.Abstract{inputJudgment("a", 0.8)}}
			m.Cycle(ctx, src)
			m.Cycle(ctx, src)

			Expect(rec.count(events.Error)).To(Equal(1))
			_, ok := m.Concept(term.Atom("a"))
			Expect(ok).To(BeTrue())
		})
	})

	It("lets operators activate concepts through the host", func() {
		var host operator.Host = m
		Expect(host.Activate(term.Atom("idea"), budget.New(0.8, 0.8, 0.5))).To(BeTrue())

		c, ok := m.Concept(term.Atom("idea"))
		Expect(ok).To(BeTrue())
		Expect(c).To(BeAssignableToTypeOf(&concept.Concept{}))
	})
})
