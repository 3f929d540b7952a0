package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/concept"
)

var defaultFireQueueSize uint = 64

// fireJob is one concept to fire. result is written by the worker before it
// signals done.
type fireJob struct {
	ctx     context.Context
	concept *concept.Concept
	result  *fireResult
	done    *sync.WaitGroup
}

// firePoolConfig configures the firing pool.
type firePoolConfig struct {
	// NumWorkers is the number of firing goroutines.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel.
	QueueSize uint

	// Fire does the work for one concept.
	Fire func(ctx context.Context, c *concept.Concept) fireResult

	Logger *zap.Logger
}

// firePool runs concept firings on a fixed set of goroutines. Each job holds
// a concept that the controller has taken out of the concept bag, so no two
// workers ever see the same concept at once.
type firePool struct {
	config *firePoolConfig
	queue  chan fireJob
	wg     sync.WaitGroup
	logger *zap.Logger
}

func newFirePool(c *firePoolConfig) (*firePool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = 1
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultFireQueueSize
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	p := &firePool{
		config: c,
		queue:  make(chan fireJob, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// fireAll fires every concept and waits for all of them. Results are returned
// in the same order as concepts.
func (p *firePool) fireAll(ctx context.Context, concepts []*concept.Concept) []fireResult {
	results := make([]fireResult, len(concepts))

	var done sync.WaitGroup
	done.Add(len(concepts))
	for i, c := range concepts {
		p.queue <- fireJob{ctx: ctx, concept: c, result: &results[i], done: &done}
		p.logger.Debug("concept queued for firing", zap.String("concept", c.Key()))
	}
	done.Wait()

	return results
}

// close stops the workers after the queue drains.
func (p *firePool) close() {
	close(p.queue)
	p.wg.Wait()
}

func (p *firePool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("fire worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.run(job)
	}

	p.logger.Debug("fire worker stopped", zap.Uint("worker_id", id))
}

func (p *firePool) run(job fireJob) {
	defer job.done.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("concept firing panicked",
				zap.String("concept", job.concept.Key()),
				zap.Any("recover", r),
			)
			*job.result = fireResult{err: fmt.Errorf("firing %s panicked: %v", job.concept.Key(), r)}
		}
	}()
	*job.result = p.config.Fire(job.ctx, job.concept)
}
