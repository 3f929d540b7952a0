// Package memory provides the cycle controller at the heart of the reasoner.
//
// A Memory admits tasks from an input source, decides every cycle which
// concepts fire, routes new tasks to immediate processing or to the bounded
// novelty bag, keeps short-term memory for temporal induction, and announces
// every transition on an events.Emitter.
//
// One goroutine drives a Memory by calling Cycle repeatedly. Concept firing
// can be spread over a worker pool (Params.Threads > 1); the controller takes
// fired concepts out of the concept bag for the duration, so no concept is
// ever fired twice at once. Apart from AddOtherTask, Close and the atomic
// setters, methods must only be called from the driving goroutine.
package memory

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/arena"
	"github.com/papercomputeco/reckon/pkg/bag"
	"github.com/papercomputeco/reckon/pkg/budget"
	"github.com/papercomputeco/reckon/pkg/concept"
	"github.com/papercomputeco/reckon/pkg/events"
	"github.com/papercomputeco/reckon/pkg/inference"
	"github.com/papercomputeco/reckon/pkg/operator"
	"github.com/papercomputeco/reckon/pkg/task"
	"github.com/papercomputeco/reckon/pkg/term"
)

// TaskSource is polled for input at the top of every cycle.
type TaskSource interface {
	// NextTask returns the next input item, or false when none is waiting.
	NextTask() (task.Abstract, bool)

	// Pending returns the number of buffered input items.
	Pending() int
}

// Config is the configuration of a Memory.
type Config struct {
	Params Params

	// Engine derives tasks when concepts fire. Defaults to inference.Nop.
	// If it also implements inference.Inducer or inference.DirectProcessor,
	// those are used too.
	Engine inference.Engine

	// Operators resolves operation goals. Defaults to a registry holding the
	// built-in operators.
	Operators *operator.Registry

	// Events receives every lifecycle event. Defaults to a fresh emitter.
	Events *events.Emitter

	// Trace, when set, is passed to the engine on every firing.
	Trace inference.TraceHook

	// Now is the wall clock used by Real timing. Defaults to time.Now.
	Now func() time.Time

	Logger *zap.Logger
}

// Memory is the cycle controller.
type Memory struct {
	params Params
	logger *zap.Logger
	events *events.Emitter

	engine    inference.Engine
	inducer   inference.Inducer
	direct    inference.DirectProcessor
	operators *operator.Registry
	trace     inference.TraceHook

	attention *Attention
	novel     *bag.Bag[string, *task.Task]
	tasks     *arena.Arena[*task.Task]
	serials   task.Serials
	forget    budget.Forgetter
	clock     *clock
	emotion   Emotion
	seed      *rand.PCG
	rng       *rand.Rand

	newMu    sync.Mutex
	newTasks []*task.Task

	otherMu sync.Mutex
	other   []func()

	stm []*task.Task

	pausedUntil int64

	volume  atomic.Int32
	enabled atomic.Bool
	closed  atomic.Bool
}

// New builds a memory and resets it. Only invalid parameters make it fail.
func New(c *Config) (*Memory, error) {
	if err := c.Params.Validate(); err != nil {
		return nil, err
	}

	m := &Memory{
		params:    c.Params,
		logger:    c.Logger,
		events:    c.Events,
		engine:    c.Engine,
		operators: c.Operators,
		trace:     c.Trace,
		tasks:     arena.New[*task.Task](),
		forget:    budget.Forgetter{Mode: c.Params.ForgetMode, Floor: c.Params.ForgetFloor},
		clock:     newClock(c.Params.Timing, c.Now),
	}

	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.events == nil {
		m.events = events.NewEmitter(events.WithLogger(m.logger))
	}
	if m.engine == nil {
		m.engine = inference.Nop{}
	}
	if i, ok := m.engine.(inference.Inducer); ok {
		m.inducer = i
	}
	if d, ok := m.engine.(inference.DirectProcessor); ok {
		m.direct = d
	}
	if m.operators == nil {
		m.operators = operator.NewRegistry()
		if err := operator.RegisterBuiltins(m.operators); err != nil {
			return nil, err
		}
	}
	if c.Params.Threads > 1 {
		m.events.SetDeferred(true)
	}

	// Only bags owned by the controller goroutine may share the random
	// source.
	var opts []bag.Option
	if c.Params.RandomSelection {
		m.seed = rand.NewPCG(c.Params.Seed, c.Params.Seed)
		m.rng = rand.New(m.seed)
		opts = append(opts, bag.WithRand(m.rng))
	}

	var err error
	m.attention, err = newAttention(m, c.Params, opts)
	if err != nil {
		return nil, err
	}
	m.novel, err = bag.New[string, *task.Task](c.Params.NovelTaskBagLevels, c.Params.NovelTaskBagSize, opts...)
	if err != nil {
		m.attention.close()
		return nil, fmt.Errorf("novel task bag: %w", err)
	}

	m.volume.Store(int32(c.Params.Volume))
	m.enabled.Store(true)
	m.Reset()

	return m, nil
}

// Cycle runs one discrete time step. It never fails: absent work is a no-op
// and bad input is dropped with a logged reason. A disabled memory does
// nothing at all.
func (m *Memory) Cycle(ctx context.Context, src TaskSource) {
	if !m.enabled.Load() || m.closed.Load() {
		return
	}

	m.emit(events.CycleStarted{Time: m.clock.time()})

	if src != nil && m.ProcessingInput() {
		for range m.params.InputPerCycle {
			in, ok := src.NextTask()
			if !ok {
				break
			}
			m.InputTask(ctx, in)
		}
	}

	m.runOtherTasks()

	m.attention.fire(ctx, m.params.ConceptsFiredPerCycle)
	m.ProcessNewTasks(ctx, m.params.NewTasksPerCycle)
	m.ProcessNovelTasks(ctx, m.params.NovelTasksPerCycle)

	m.emit(events.CycleEnded{Time: m.clock.time()})
	m.clock.advance()
}

// InputTask admits one item from outside. Tasks whose budget is below the
// threshold are neglected; control commands take effect immediately.
func (m *Memory) InputTask(_ context.Context, in task.Abstract) {
	m.emit(events.InputReceived{Input: in})

	switch v := in.(type) {
	case *task.Task:
		if v == nil {
			return
		}
		if err := v.Sentence.Validate(); err != nil {
			m.logger.Debug("dropping malformed input", zap.Error(err))
			m.reportError(fmt.Errorf("malformed input: %w", err))
			return
		}
		if !v.Sentence.Stamp.Settled() {
			v.Settle(m.serials.Next(), m.clock.time(), m.params.Duration)
		}
		if v.Budget().AboveThreshold(m.params.BudgetThreshold) {
			m.addNewTask(v, events.Perceived)
		} else {
			m.removeTask(v, events.Neglected)
		}

	case task.Pause:
		m.StepLater(v.Duration)

	case task.Reset:
		m.Reset()

	case task.Echo:
		m.emit(events.Echoed{Channel: v.Channel, Message: v.Message})

	case task.SetVolume:
		m.SetVolume(v.Volume)

	default:
		m.logger.Debug("dropping unrecognized input", zap.String("type", fmt.Sprintf("%T", in)))
	}
}

// Reset clears concepts, queued and novel tasks, short-term memory, the
// clock, the input pause and the emotional state. Serial numbers and the
// random source start over from the configured seed.
func (m *Memory) Reset() {
	m.emit(events.ResetStarted{})

	m.attention.reset()
	m.novel.Clear()
	m.newMu.Lock()
	m.newTasks = nil
	m.newMu.Unlock()
	m.stm = nil
	m.tasks.Clear()
	m.serials.Reset()
	if m.seed != nil {
		m.seed.Seed(m.params.Seed, m.params.Seed)
	}

	m.clock.reset()
	m.pausedUntil = -1
	m.emotion.Set(0.5, 0.5)

	m.emit(events.ResetEnded{})
}

// Close stops the firing workers. A closed memory ignores further cycles.
func (m *Memory) Close() {
	if m.closed.Swap(true) {
		return
	}
	m.attention.close()
}

// Events returns the memory's event bus.
func (m *Memory) Events() *events.Emitter { return m.events }

// Operators returns the operator registry.
func (m *Memory) Operators() *operator.Registry { return m.operators }

// Attention returns the concept scheduler.
func (m *Memory) Attention() *Attention { return m.attention }

// Params returns the tunables the memory was built with.
func (m *Memory) Params() Params { return m.params }

// Concept returns the live concept for t.
func (m *Memory) Concept(t term.Term) (*concept.Concept, bool) {
	return m.attention.Concept(t)
}

// Task resolves a task handle.
func (m *Memory) Task(h arena.Handle) (*task.Task, bool) {
	return m.tasks.Get(h)
}

// Time is the current memory time in the configured timing.
func (m *Memory) Time() int64 { return m.clock.time() }

// Cycles is the number of cycles run since the last reset.
func (m *Memory) Cycles() int64 { return m.clock.cycle }

// TimeDelta is the time that passed during the previous cycle.
func (m *Memory) TimeDelta() int64 { return m.clock.delta() }

// AddSimulationTime moves the clock forward under Simulation timing.
func (m *Memory) AddSimulationTime(dt int64) { m.clock.simulation += dt }

// Busy and Happy expose the emotional state.
func (m *Memory) Busy() float64  { return m.emotion.Busy() }
func (m *Memory) Happy() float64 { return m.emotion.Happy() }

// Emotion returns the emotional state for adjustment.
func (m *Memory) Emotion() *Emotion { return &m.emotion }

// Activate strengthens or creates the concept for t.
func (m *Memory) Activate(t term.Term, b budget.Budget) bool {
	_, ok := m.attention.Conceptualize(t, b)
	return ok
}

// SetEnabled turns all processing on or off.
func (m *Memory) SetEnabled(enabled bool) { m.enabled.Store(enabled) }

// Enabled reports whether the memory processes cycles.
func (m *Memory) Enabled() bool { return m.enabled.Load() }

// Volume is the output noise level, 0 to 100.
func (m *Memory) Volume() int { return int(m.volume.Load()) }

// SetVolume changes the output noise level, clamped to [0,100].
func (m *Memory) SetVolume(v int) {
	m.volume.Store(int32(min(max(v, 0), 100)))
}

// StepLater pauses input for d time units from now.
func (m *Memory) StepLater(d int64) {
	m.pausedUntil = m.clock.time() + d
}

// ProcessingInput reports whether the input pause has run out.
func (m *Memory) ProcessingInput() bool {
	return m.clock.time() >= m.pausedUntil
}

// AddOtherTask schedules fn to run on the controller goroutine at the next
// cycle. It is safe to call from any goroutine.
func (m *Memory) AddOtherTask(fn func()) {
	m.otherMu.Lock()
	m.other = append(m.other, fn)
	m.otherMu.Unlock()
}

// NewTasks returns a copy of the new-task queue, oldest first.
func (m *Memory) NewTasks() []*task.Task {
	m.newMu.Lock()
	defer m.newMu.Unlock()
	out := make([]*task.Task, len(m.newTasks))
	copy(out, m.newTasks)
	return out
}

// NovelTasks returns the novelty bag.
func (m *Memory) NovelTasks() *bag.Bag[string, *task.Task] { return m.novel }

// STM returns a copy of short-term memory, oldest first.
func (m *Memory) STM() []*task.Task {
	out := make([]*task.Task, len(m.stm))
	copy(out, m.stm)
	return out
}

// Tasks collects the distinct tasks reachable from task links, the new-task
// queue and the novelty bag. Nothing is removed.
func (m *Memory) Tasks(includeLinks, includeNew, includeNovel bool) []*task.Task {
	seen := make(map[*task.Task]struct{})
	var out []*task.Task
	add := func(t *task.Task) {
		if _, dup := seen[t]; dup || t == nil {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if includeLinks {
		for c := range m.attention.All() {
			for l := range c.TaskLinks().All() {
				if t, ok := m.tasks.Get(l.Target()); ok {
					add(t)
				}
			}
		}
	}
	if includeNew {
		for _, t := range m.NewTasks() {
			add(t)
		}
	}
	if includeNovel {
		for t := range m.novel.All() {
			add(t)
		}
	}
	return out
}

// Stats is a point-in-time summary of the memory.
type Stats struct {
	Time           int64   `json:"time"`
	Cycles         int64   `json:"cycles"`
	Concepts       int     `json:"concepts"`
	CachedConcepts int     `json:"cached_concepts"`
	NewTasks       int     `json:"new_tasks"`
	NovelTasks     int     `json:"novel_tasks"`
	LiveTasks      int     `json:"live_tasks"`
	STM            int     `json:"stm"`
	Busy           float64 `json:"busy"`
	Happy          float64 `json:"happy"`
	Volume         int     `json:"volume"`
	Paused         bool    `json:"paused"`
	Enabled        bool    `json:"enabled"`
}

// Stats summarizes the memory.
func (m *Memory) Stats() Stats {
	m.newMu.Lock()
	pending := len(m.newTasks)
	m.newMu.Unlock()

	return Stats{
		Time:           m.clock.time(),
		Cycles:         m.clock.cycle,
		Concepts:       m.attention.Size(),
		CachedConcepts: m.attention.CacheSize(),
		NewTasks:       pending,
		NovelTasks:     m.novel.Size(),
		LiveTasks:      m.tasks.Len(),
		STM:            len(m.stm),
		Busy:           m.emotion.Busy(),
		Happy:          m.emotion.Happy(),
		Volume:         m.Volume(),
		Paused:         !m.ProcessingInput(),
		Enabled:        m.Enabled(),
	}
}

func (m *Memory) emit(ev events.Event) {
	m.events.Emit(ev)
}

func (m *Memory) reportError(err error) {
	m.logger.Warn("handled error during cycle", zap.Error(err))
	if m.events.IsActive(events.Error) {
		m.emit(events.ErrorRaised{Err: err})
	}
}

func (m *Memory) runOtherTasks() {
	m.otherMu.Lock()
	pending := m.other
	m.other = nil
	m.otherMu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

// forgetClock is the "now" forgetting measures against.
func (m *Memory) forgetClock() int64 {
	if m.params.ForgetMode == budget.Iterative {
		return m.clock.cycle
	}
	return m.clock.time()
}

// forgetter returns a decay function for items forgotten over the given
// number of durations.
func (m *Memory) forgetter(durations float64, now int64) func(*budget.Budget) {
	period := durations * float64(m.params.Duration)
	return func(b *budget.Budget) {
		m.forget.Apply(b, period, now)
	}
}

func (m *Memory) safeFire(ctx context.Context, fc inference.FireContext) (out []*task.Task, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("inference engine panicked on %s: %v", fc.Concept.Key(), r)
		}
	}()
	return m.engine.Fire(ctx, fc), nil
}
