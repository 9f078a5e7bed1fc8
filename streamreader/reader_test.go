package streamreader

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/linekit/linequeue"
)

func drain(q *linequeue.Queue) []string {
	var out []string
	for {
		line, ok := q.TryPop()
		if !ok {
			return out
		}
		out = append(out, line)
	}
}

func waitDone(t *testing.T, r *Reader) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("reader %s did not finish", r.Name())
	}
}

func TestReader_SplitsLinesInOrder(t *testing.T) {
	src := strings.NewReader("alpha\n\nbeta\r\ngamma")
	q := linequeue.New()

	r := New("stdout", src, q).Start(context.Background())
	waitDone(t, r)

	assert.Equal(t, []string{"alpha", "", "beta", "gamma"}, drain(q))
	assert.Equal(t, int64(4), r.Lines())
	assert.NoError(t, r.Err())
}

func TestReader_EndOfStreamIsNotAnError(t *testing.T) {
	pr, pw := io.Pipe()
	q := linequeue.New()
	r := New("stderr", pr, q).Start(context.Background())

	_, err := pw.Write([]byte("only\n"))
	require.NoError(t, err)
	require.NoError(t, pw.Close())

	waitDone(t, r)
	assert.Equal(t, []string{"only"}, drain(q))
	assert.NoError(t, r.Err())
}

func TestReader_RequestStop(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	q := linequeue.New()
	r := New("stdout", pr, q).Start(context.Background())

	_, err := pw.Write([]byte("before\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return q.Len() == 1 }, time.Second, 5*time.Millisecond)

	r.RequestStop()
	r.RequestStop()

	// A wake-up line may be read but must not be enqueued.
	go func() { _, _ = pw.Write([]byte("after\n")) }()

	waitDone(t, r)
	assert.Equal(t, []string{"before"}, drain(q))
	assert.NoError(t, r.Err())
}

func TestReader_StopBeforeRunSkipsReading(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	q := linequeue.New()
	r := New("stdout", pr, q)
	r.RequestStop()

	// Run would block forever on the pipe if it read first.
	r.Run(context.Background())

	waitDone(t, r)
	assert.Equal(t, 0, q.Len())
}

func TestReader_ContextCancelStops(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	q := linequeue.New()

	ctx, cancel := context.WithCancel(context.Background())
	r := New("stdout", pr, q).Start(ctx)
	cancel()

	go func() { _, _ = pw.Write([]byte("ignored\n")) }()

	waitDone(t, r)
	assert.Equal(t, 0, q.Len())
}

func TestReader_InterruptUnblocksPendingRead(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	q := linequeue.New()
	r := New("stdout", pr, q).Start(context.Background())

	select {
	case <-r.Done():
		t.Fatal("reader finished without input")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, r.Interrupt())
	waitDone(t, r)
	assert.NoError(t, r.Err())
}

func TestReader_LineTooLong(t *testing.T) {
	src := strings.NewReader(strings.Repeat("x", 256) + "\n")
	q := linequeue.New()

	r := New("stdout", src, q, WithMaxLineSize(32)).Start(context.Background())
	waitDone(t, r)

	require.Error(t, r.Err())
	assert.ErrorIs(t, r.Err(), bufio.ErrTooLong)
	assert.Contains(t, r.Err().Error(), "read stdout")
}

func TestReader_LineTooLongKeepsDraining(t *testing.T) {
	pr, pw := io.Pipe()
	q := linequeue.New()
	r := New("stdout", pr, q, WithMaxLineSize(32)).Start(context.Background())

	// Pipe writes only complete once the reader consumes them.
	written := make(chan error, 1)
	go func() {
		if _, err := pw.Write([]byte(strings.Repeat("x", 256) + "\n")); err != nil {
			written <- err
			return
		}
		for i := 0; i < 100; i++ {
			if _, err := pw.Write([]byte("more output\n")); err != nil {
				written <- err
				return
			}
		}
		written <- pw.Close()
	}()

	select {
	case err := <-written:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("writer blocked after oversized line")
	}

	waitDone(t, r)
	assert.ErrorIs(t, r.Err(), bufio.ErrTooLong)
	assert.Equal(t, 0, q.Len())
}

func TestReader_RunAfterStartIsNoop(t *testing.T) {
	q := linequeue.New()
	r := New("stdout", strings.NewReader("one\n"), q).Start(context.Background())

	assert.NotPanics(t, func() {
		r.Run(context.Background())
		r.Run(context.Background())
	})

	waitDone(t, r)
	assert.Equal(t, []string{"one"}, drain(q))
}

func TestReader_StartIsOnce(t *testing.T) {
	q := linequeue.New()
	r := New("stdout", strings.NewReader("one\n"), q)
	r.Start(context.Background())
	r.Start(context.Background())

	waitDone(t, r)
	assert.Equal(t, []string{"one"}, drain(q))
}

func TestReader_Wait(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := New("stdout", pr, linequeue.New()).Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)

	require.NoError(t, pr.Close())
	assert.NoError(t, r.Wait(context.Background()))
}
