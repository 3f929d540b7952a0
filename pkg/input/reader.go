package input

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/task"
)

const maxLineSize = 1024 * 1024

// errLineTooLong marks a line longer than maxLineSize.
var errLineTooLong = errors.New("line too long")

// Reader decodes line-delimited JSON records. Blank lines and lines starting
// with '#' are skipped; malformed or oversized lines are logged and skipped.
type Reader struct {
	src     *bufio.Reader
	buf     []byte
	logger  *zap.Logger
	line    int
	skipped int
}

// NewReader reads records from r.
func NewReader(r io.Reader, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{src: bufio.NewReaderSize(r, 64*1024), logger: logger}
}

// Next returns the next well-formed item, or io.EOF when the input is
// exhausted.
func (r *Reader) Next() (task.Abstract, error) {
	for {
		raw, err := r.readLine()
		if err != nil {
			return nil, err
		}
		r.line++
		if raw == nil {
			r.skip(errLineTooLong)
			continue
		}
		line := bytes.TrimSpace(raw)
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		item, err := Decode(line)
		if err != nil {
			r.skip(err)
			continue
		}
		return item, nil
	}
}

func (r *Reader) skip(err error) {
	r.skipped++
	r.logger.Warn("skipping malformed input line",
		zap.Int("line", r.line),
		zap.Error(err),
	)
}

// readLine returns the next line including its terminator. A line longer
// than maxLineSize is consumed and reported as a nil slice. The returned
// slice is only valid until the next call.
func (r *Reader) readLine() ([]byte, error) {
	r.buf = r.buf[:0]
	tooLong := false
	for {
		chunk, err := r.src.ReadSlice('\n')
		if !tooLong {
			if len(r.buf)+len(chunk) > maxLineSize {
				tooLong = true
				r.buf = r.buf[:0]
			} else {
				r.buf = append(r.buf, chunk...)
			}
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if tooLong {
				return nil, nil
			}
			if len(r.buf) == 0 {
				return nil, io.EOF
			}
			return r.buf, nil
		case err != nil:
			return nil, err
		}

		if tooLong {
			return nil, nil
		}
		return r.buf, nil
	}
}

// Skipped is the number of malformed lines seen so far.
func (r *Reader) Skipped() int { return r.skipped }

// Feed pushes every record into q until the input ends or ctx is done. It
// returns the number of items queued. A full bounded queue is retried after
// the consumer has made room.
func (r *Reader) Feed(ctx context.Context, q *Queue) (int, error) {
	n := 0
	for {
		item, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := q.PushWait(ctx, item); err != nil {
			return n, err
		}
		n++
	}
}
