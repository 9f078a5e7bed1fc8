package linequeue

import (
	"sync"
	"time"
)

// Queue is an unbounded FIFO of lines.
type Queue struct {
	mu    sync.Mutex
	lines []string
	head  int

	// ready is closed and replaced on every Push to wake waiters.
	ready chan struct{}
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{ready: make(chan struct{})}
}

// Push appends a line. It never blocks the producer.
func (q *Queue) Push(line string) {
	q.mu.Lock()
	q.lines = append(q.lines, line)
	close(q.ready)
	q.ready = make(chan struct{})
	q.mu.Unlock()
}

// TryPop returns the oldest unretrieved line.
// The boolean is false when the queue is empty; that is not an error.
func (q *Queue) TryPop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// PopWait behaves like TryPop but, when the queue is empty, waits up to
// timeout for a line to be pushed. A timeout <= 0 is a plain TryPop.
// It returns as soon as a line is available, so it never sleeps longer
// than necessary and never longer than timeout.
func (q *Queue) PopWait(timeout time.Duration) (string, bool) {
	q.mu.Lock()
	if line, ok := q.popLocked(); ok || timeout <= 0 {
		q.mu.Unlock()
		return line, ok
	}
	ready := q.ready
	q.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ready:
		case <-timer.C:
			return q.TryPop()
		}

		q.mu.Lock()
		if line, ok := q.popLocked(); ok {
			q.mu.Unlock()
			return line, true
		}
		// Another consumer won the line; keep waiting on the next push.
		ready = q.ready
		q.mu.Unlock()
	}
}

// Len returns the number of lines waiting to be retrieved.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines) - q.head
}

func (q *Queue) popLocked() (string, bool) {
	if q.head >= len(q.lines) {
		return "", false
	}
	line := q.lines[q.head]
	q.lines[q.head] = ""
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head == len(q.lines) {
		q.lines = q.lines[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 > len(q.lines) {
		n := copy(q.lines, q.lines[q.head:])
		q.lines = q.lines[:n]
		q.head = 0
	}
	return line, true
}
