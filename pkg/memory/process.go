package memory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/arena"
	"github.com/papercomputeco/reckon/pkg/events"
	"github.com/papercomputeco/reckon/pkg/inference"
	"github.com/papercomputeco/reckon/pkg/task"
)

const executedConfidence = 0.9

// ProcessNewTasks works through the new-task queue in arrival order. Input
// tasks, non-judgments and judgments about known concepts are processed
// immediately; other judgments go to the novelty bag if they are confident
// enough and are neglected otherwise.
//
// At most limit tasks are processed immediately; a negative limit means no
// limit. A task that would exceed the limit stays at the head of the queue
// for the next call. Tasks queued while this call runs wait for the next one.
// It returns the number of tasks processed immediately.
func (m *Memory) ProcessNewTasks(ctx context.Context, limit int) int {
	if limit == 0 {
		return 0
	}

	m.newMu.Lock()
	remaining := len(m.newTasks)
	m.newMu.Unlock()

	processed := 0
	for ; remaining > 0; remaining-- {
		m.newMu.Lock()
		if len(m.newTasks) == 0 {
			m.newMu.Unlock()
			break
		}
		t := m.newTasks[0]
		immediate := m.routeImmediate(t)
		if immediate && limit > 0 && processed >= limit {
			m.newMu.Unlock()
			break
		}
		m.newTasks[0] = nil
		m.newTasks = m.newTasks[1:]
		m.newMu.Unlock()

		m.emotion.AdjustBusy(t.Budget().Priority(), t.Budget().Durability())

		switch {
		case immediate:
			m.processTask(ctx, t)
			processed++

		case t.Sentence.Truth.Expectation() > m.params.CreationExpectation:
			m.enterNovel(t)

		default:
			m.removeTask(t, events.Neglected)
		}
	}
	return processed
}

// ProcessNovelTasks takes up to n tasks from the novelty bag and processes
// them. It returns how many it processed.
func (m *Memory) ProcessNovelTasks(ctx context.Context, n int) int {
	processed := 0
	for range n {
		t, ok := m.novel.TakeNext()
		if !ok {
			break
		}
		m.processTask(ctx, t)
		processed++
	}
	return processed
}

func (m *Memory) routeImmediate(t *task.Task) bool {
	if t.IsInput() || !t.Sentence.IsJudgment() {
		return true
	}
	_, known := m.attention.Concept(t.Term())
	return known
}

func (m *Memory) enterNovel(t *task.Task) {
	// A resident with the same key is folded into t and gives up its slot.
	if prev, ok := m.novel.TakeOut(t.Key()); ok {
		if prev != t {
			t.Budget().Merge(*prev.Budget())
		}
		m.releaseTask(prev.Handle(), events.Completed)
	}

	evicted, displaced, err := m.novel.Put(t)
	if err != nil {
		m.logger.Error("putting novel task", zap.String("task", t.Key()), zap.Error(err))
		m.removeTask(t, events.Neglected)
		return
	}
	if !displaced {
		return
	}
	if evicted == t {
		m.removeTask(t, events.Ignored)
		return
	}
	m.removeTask(evicted, events.Displaced)
}

// processTask links t into its concept and runs everything that reacts to a
// freshly processed task. The controller's reference to t is dropped at the
// end; t lives on as long as a task link or short-term memory holds it.
func (m *Memory) processTask(ctx context.Context, t *task.Task) {
	defer m.releaseTask(t.Handle(), events.Completed)

	c, ok := m.attention.Conceptualize(t.Term(), *t.Budget())
	if !ok {
		m.logger.Debug("no concept for task", zap.String("task", t.Key()))
		return
	}
	m.emit(events.TaskProcessed{Task: t, Concept: c})

	linked, evicted, err := c.LinkTask(t.Handle(), t.Key(), *t.Budget())
	if err != nil {
		m.reportError(fmt.Errorf("linking %s: %w", t.Key(), err))
	}
	if linked {
		m.tasks.Retain(t.Handle())
	}
	if evicted != nil {
		m.releaseTask(evicted.Target(), events.Completed)
	}
	for _, comp := range t.Term().Components() {
		if err := c.LinkTerm(comp, *t.Budget()); err != nil {
			m.logger.Debug("linking term", zap.String("term", comp.Name()), zap.Error(err))
		}
	}

	if m.direct != nil {
		for _, d := range m.direct.Process(ctx, c, t) {
			m.admitDerived(d, t, events.Derived)
		}
	}

	if t.InductionCandidate() {
		m.induce(ctx, t)
	}
	if t.IsOperationGoal() {
		m.execute(ctx, t)
	}
	if !t.IsInput() {
		m.output(t)
	}
}

// induce pairs an event with everything in short-term memory, then pushes it
// into short-term memory, evicting the oldest entries beyond STMSize.
func (m *Memory) induce(ctx context.Context, t *task.Task) {
	m.emit(events.SucceedingEventInduced{Event: t, Compared: len(m.stm)})

	if m.inducer != nil {
		now := m.clock.time()
		for _, prev := range m.stm {
			if prev.Term().Equal(t.Term()) {
				continue
			}
			ic := inference.InduceContext{
				Event:    t,
				Previous: prev,
				Stamp:    task.Merge(t.Sentence.Stamp, prev.Sentence.Stamp, m.serials.Next(), now),
				Now:      now,
				Trace:    m.trace,
			}
			ic.Trace.Emit(inference.TracePoint{Stage: inference.StageInduce, Task: t})
			for _, d := range m.inducer.Induce(ctx, ic) {
				m.admitDerived(d, t, events.Derived)
			}
		}
	}

	if m.params.STMSize <= 0 || !m.tasks.Retain(t.Handle()) {
		return
	}
	m.stm = append(m.stm, t)
	for len(m.stm) > m.params.STMSize {
		oldest := m.stm[0]
		m.stm[0] = nil
		m.stm = m.stm[1:]
		m.releaseTask(oldest.Handle(), events.Completed)
	}
}

// execute runs the operator an operation goal names. Unknown operators are
// skipped. The execution itself and any feedback the operator reports come
// back as judgments marked Executed.
func (m *Memory) execute(ctx context.Context, t *task.Task) {
	op := t.Term()
	o, ok := m.operators.Lookup(op.Operator())
	if !ok {
		m.logger.Debug("unknown operator", zap.String("operator", op.Operator()))
		return
	}

	feedback, err := o.Exec(ctx, m, op.Components())
	if err != nil {
		m.reportError(fmt.Errorf("executing %s: %w", o.Name, err))
		return
	}

	now := m.clock.time()
	executed := task.New(task.Sentence{
		Term:        op,
		Punctuation: task.Judgment,
		Truth:       task.NewTruth(1, executedConfidence),
		Stamp:       task.NewStamp(m.serials.Next(), now, now),
	}, *t.Budget())
	executed.SetCause(op)
	executed.SetParent(t.Handle())
	m.addNewTask(executed, events.Executed)

	for _, f := range feedback {
		s := task.Sentence{
			Term:        f.Term,
			Punctuation: task.Judgment,
			Truth:       f.Truth,
			Stamp:       task.NewStamp(m.serials.Next(), now, now),
		}
		fb := task.New(s, task.DefaultBudget(&s))
		fb.SetCause(op)
		fb.SetParent(t.Handle())
		m.addNewTask(fb, events.Executed)
	}
}

// output reports a derived task when it stands out above the noise level set
// by the volume.
func (m *Memory) output(t *task.Task) {
	if t.Budget().Summary() >= 1-float64(m.Volume())/100 {
		m.emit(events.OutputReported{Task: t})
	}
}

// admitDerived validates and stamps a task produced by the engine and queues
// it, or neglects it when its budget is too weak.
func (m *Memory) admitDerived(t, parent *task.Task, reason events.Reason) {
	if t == nil {
		return
	}
	if err := t.Sentence.Validate(); err != nil {
		m.logger.Debug("dropping malformed derivation", zap.Error(err))
		return
	}
	if parent != nil && t.Parent().IsZero() {
		t.SetParent(parent.Handle())
	}
	if !t.Sentence.Stamp.Settled() {
		t.Settle(m.serials.Next(), m.clock.time(), m.params.Duration)
	}
	m.emit(events.TaskDerived{Task: t, Parent: parent})
	m.trace.Emit(inference.TracePoint{Stage: inference.StageDerive, Task: parent, Derived: t})

	if !t.Budget().AboveThreshold(m.params.BudgetThreshold) {
		m.removeTask(t, events.Neglected)
		return
	}
	m.addNewTask(t, reason)
}

// addNewTask queues t, giving the controller a reference to it.
func (m *Memory) addNewTask(t *task.Task, reason events.Reason) {
	if h := t.Handle(); h.IsZero() || !m.tasks.Retain(h) {
		t.SetHandle(m.tasks.Insert(t))
	}

	m.newMu.Lock()
	m.newTasks = append(m.newTasks, t)
	m.newMu.Unlock()

	m.emit(events.TaskAdded{Task: t, Reason: reason})
}

// removeTask drops t from the system for reason, releasing the controller's
// reference if it holds one.
func (m *Memory) removeTask(t *task.Task, reason events.Reason) {
	m.emit(events.TaskRemoved{Task: t, Reason: reason})
	if h := t.Handle(); !h.IsZero() {
		m.tasks.Release(h)
	}
}

// releaseTask drops one reference to the task behind h. The task is removed,
// and reported removed for reason, once nothing refers to it.
func (m *Memory) releaseTask(h arena.Handle, reason events.Reason) {
	if h.IsZero() {
		return
	}
	if t, removed := m.tasks.Release(h); removed {
		m.emit(events.TaskRemoved{Task: t, Reason: reason})
	}
}
