package runcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/input"
)

type namedReader struct {
	name   string
	r      io.Reader
	closer io.Closer
}

func (n namedReader) close() {
	if n.closer != nil {
		_ = n.closer.Close()
	}
}

// feeder reads every source in order into the queue. Its counters may be
// read while it runs.
type feeder struct {
	sources []namedReader
	queue   *input.Queue
	logger  *zap.Logger

	inputs  atomic.Int64
	skipped atomic.Int64

	done chan struct{}
	err  error
}

func newFeeder(sources []namedReader, q *input.Queue, logger *zap.Logger) *feeder {
	return &feeder{
		sources: sources,
		queue:   q,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

func (f *feeder) run(ctx context.Context) {
	defer close(f.done)
	defer f.queue.Close()

	for i, s := range f.sources {
		if err := f.read(ctx, s); err != nil {
			for _, rest := range f.sources[i+1:] {
				rest.close()
			}
			f.err = err
			return
		}
	}
}

func (f *feeder) read(ctx context.Context, s namedReader) error {
	defer s.close()

	reader := input.NewReader(s.r, f.logger.With(zap.String("input", s.name)))
	base := f.skipped.Load()
	n := 0
	for {
		item, err := reader.Next()
		f.skipped.Store(base + int64(reader.Skipped()))
		if errors.Is(err, io.EOF) {
			f.logger.Debug("input consumed",
				zap.String("input", s.name),
				zap.Int("items", n),
				zap.Int("skipped", reader.Skipped()),
			)
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		if err := f.queue.PushWait(ctx, item); err != nil {
			return err
		}
		f.inputs.Add(1)
		n++
	}
}

// wait blocks until the feeder finishes or the grace period passes.
func (f *feeder) wait(grace time.Duration) error {
	select {
	case <-f.done:
		return f.err
	case <-time.After(grace):
		f.logger.Debug("input still open, not waiting for it")
		return nil
	}
}
