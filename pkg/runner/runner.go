// Package runner drives a memory: it runs frames of cycles, keeps the event
// bus synchronized between cycles and serializes inspection of the memory
// with the cycles themselves.
package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/events"
	"github.com/papercomputeco/reckon/pkg/memory"
)

var (
	// ErrNotRunning is returned by Inspect when no loop is serving requests.
	ErrNotRunning = errors.New("runner: not running")

	// ErrAlreadyRunning is returned by Start when a loop is already active.
	ErrAlreadyRunning = errors.New("runner: already running")
)

// Config configures a Runner.
type Config struct {
	Memory *memory.Memory

	// Source is polled by the memory for input. It may be nil.
	Source memory.TaskSource

	// CyclesPerFrame is the number of cycles per frame. Defaults to 1.
	CyclesPerFrame int

	// FrameInterval is the pause between frames in Start. Zero runs frames
	// back to back.
	FrameInterval time.Duration

	Logger *zap.Logger
}

type inspection struct {
	fn   func(*memory.Memory)
	done chan struct{}
}

// Runner owns the goroutine that calls memory.Cycle. Nothing else may touch
// the memory's bags while it runs; other goroutines go through Inspect.
type Runner struct {
	mem    *memory.Memory
	source memory.TaskSource
	cycles int
	every  time.Duration
	logger *zap.Logger

	frame    atomic.Int64
	requests chan inspection
	running  atomic.Bool
}

// New creates a runner.
func New(c *Config) (*Runner, error) {
	if c.Memory == nil {
		return nil, errors.New("runner: memory is required")
	}
	r := &Runner{
		mem:      c.Memory,
		source:   c.Source,
		cycles:   c.CyclesPerFrame,
		every:    c.FrameInterval,
		logger:   c.Logger,
		requests: make(chan inspection),
	}
	if r.cycles < 1 {
		r.cycles = 1
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r, nil
}

// Frames is the number of frames run so far.
func (r *Runner) Frames() int64 { return r.frame.Load() }

// Frame runs one frame of cycles on the calling goroutine.
func (r *Runner) Frame(ctx context.Context) {
	frame := r.frame.Add(1)
	bus := r.mem.Events()

	bus.Synch()
	bus.Emit(events.FrameStarted{Frame: frame})
	ran := 0
	for range r.cycles {
		if ctx.Err() != nil {
			break
		}
		r.mem.Cycle(ctx, r.source)
		bus.Synch()
		ran++
	}
	bus.Emit(events.FrameEnded{Frame: frame, Cycles: ran})
}

// Run runs n frames, serving inspections between them.
func (r *Runner) Run(ctx context.Context, n int) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Store(false)

	for range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.Frame(ctx)
		r.serve()
	}
	return nil
}

// Start runs frames until ctx is done. Inspections are served between
// frames and while waiting for the next one.
func (r *Runner) Start(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Store(false)

	r.logger.Info("runner started",
		zap.Int("cycles_per_frame", r.cycles),
		zap.Duration("frame_interval", r.every),
	)
	defer r.logger.Info("runner stopped", zap.Int64("frames", r.Frames()))

	var tick <-chan time.Time
	if r.every > 0 {
		t := time.NewTicker(r.every)
		defer t.Stop()
		tick = t.C
	}

	for {
		if tick == nil {
			select {
			case <-ctx.Done():
				return nil
			case req := <-r.requests:
				r.run(req)
			default:
				r.Frame(ctx)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case req := <-r.requests:
			r.run(req)
		case <-tick:
			r.Frame(ctx)
		}
	}
}

// Inspect runs fn against the memory on the runner goroutine, between
// cycles, and waits for it to finish.
func (r *Runner) Inspect(ctx context.Context, fn func(*memory.Memory)) error {
	if !r.running.Load() {
		return ErrNotRunning
	}
	req := inspection{fn: fn, done: make(chan struct{})}
	select {
	case r.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		// fn still runs; it just is not waited for.
		return ctx.Err()
	}
}

func (r *Runner) serve() {
	for {
		select {
		case req := <-r.requests:
			r.run(req)
		default:
			return
		}
	}
}

func (r *Runner) run(req inspection) {
	defer close(req.done)
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("inspection panicked", zap.Any("recover", rec))
		}
	}()
	req.fn(r.mem)
}
