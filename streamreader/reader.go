// Package streamreader drains a byte stream into a linequeue.Queue on a
// background goroutine so that callers can poll for lines without ever
// blocking on the stream itself.
package streamreader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/randalmurphal/linekit/linequeue"
)

// DefaultMaxLineSize bounds a single line. A longer line stops delivery
// with an error; the rest of the stream is read and discarded.
const DefaultMaxLineSize = 10 * 1024 * 1024 // 10MB

// Option configures a Reader.
type Option func(*Reader)

// WithMaxLineSize sets the largest line the reader accepts.
func WithMaxLineSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxLineSize = n
		}
	}
}

// WithLogger sets the logger used for lifecycle diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Reader moves complete lines from src to its queue, in order, until the
// stream ends or a stop is requested. A Reader runs at most once.
type Reader struct {
	name  string
	src   io.Reader
	queue *linequeue.Queue

	maxLineSize int
	logger      *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}

	lines atomic.Int64
	err   error // written before done is closed
}

// New creates a Reader for src feeding queue. Call Start to begin reading.
func New(name string, src io.Reader, queue *linequeue.Queue, opts ...Option) *Reader {
	r := &Reader{
		name:        name,
		src:         src,
		queue:       queue,
		maxLineSize: DefaultMaxLineSize,
		logger:      slog.Default(),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the read loop. Cancelling ctx has the same effect as
// RequestStop. Only the first call to Start or Run has any effect.
func (r *Reader) Start(ctx context.Context) *Reader {
	r.startOnce.Do(func() {
		go r.run(ctx)
	})
	return r
}

// Run executes the read loop on the calling goroutine and returns when the
// stream is exhausted or a stop is observed. If the loop was already
// started, Run returns immediately. Most callers want Start.
func (r *Reader) Run(ctx context.Context) {
	r.startOnce.Do(func() {
		r.run(ctx)
	})
}

func (r *Reader) run(ctx context.Context) {
	defer close(r.done)

	scanner := bufio.NewScanner(r.src)
	scanner.Buffer(make([]byte, 0, min(64*1024, r.maxLineSize)), r.maxLineSize)

	for !r.stopRequested(ctx) && scanner.Scan() {
		// The line in flight is dropped once a stop has been requested.
		if r.stopRequested(ctx) {
			break
		}
		r.queue.Push(scanner.Text())
		r.lines.Add(1)
	}

	if err := scanner.Err(); err != nil && !r.expectedReadError(ctx, err) {
		r.err = fmt.Errorf("read %s: %w", r.name, err)
		if errors.Is(err, bufio.ErrTooLong) {
			// Keep the writer from blocking on a full pipe.
			r.discard(ctx)
		}
	}

	r.logger.Debug("stream reader finished",
		slog.String("stream", r.name),
		slog.Int64("lines", r.lines.Load()),
		slog.Bool("stopped", r.stopRequested(ctx)),
		slog.Any("error", r.err))
}

// RequestStop asks the loop to exit before it enqueues another line.
// It is idempotent and does not interrupt a read already in progress.
func (r *Reader) RequestStop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Interrupt requests a stop and, if the source is closable, closes it so a
// pending read returns immediately.
func (r *Reader) Interrupt() error {
	r.RequestStop()
	if c, ok := r.src.(io.Closer); ok {
		if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			return fmt.Errorf("close %s: %w", r.name, err)
		}
	}
	return nil
}

// Done is closed once the read loop has exited.
func (r *Reader) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the read loop exits or ctx is done.
func (r *Reader) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err reports why the loop ended abnormally. End of stream and a stop are
// not errors. Err is only meaningful after Done is closed.
func (r *Reader) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Name returns the diagnostic tag given to New.
func (r *Reader) Name() string {
	return r.name
}

// Lines returns how many lines have been enqueued so far.
func (r *Reader) Lines() int64 {
	return r.lines.Load()
}

func (r *Reader) stopRequested(ctx context.Context) bool {
	select {
	case <-r.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// discard reads and drops the rest of the stream until it ends or a stop
// is requested.
func (r *Reader) discard(ctx context.Context) {
	buf := make([]byte, 32*1024)
	for !r.stopRequested(ctx) {
		if _, err := r.src.Read(buf); err != nil {
			return
		}
	}
}

// expectedReadError reports whether err is the result of the source being
// closed underneath us, which is how an interrupted or torn-down pipe ends.
func (r *Reader) expectedReadError(ctx context.Context, err error) bool {
	if errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	return r.stopRequested(ctx)
}
