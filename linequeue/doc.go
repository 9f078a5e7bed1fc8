// Package linequeue provides an unbounded FIFO queue of text lines that
// hands lines from a single producer goroutine to a consumer.
//
// Push never blocks and never fails. TryPop never blocks: it returns the
// oldest line, or false when nothing has arrived yet. PopWait adds a
// bounded wait for callers that want to give a slow producer a chance to
// catch up:
//
//	q := linequeue.New()
//	q.Push("hello")
//
//	line, ok := q.TryPop()               // "hello", true
//	line, ok = q.PopWait(100 * time.Millisecond) // "", false after 100ms
//
// # Thread Safety
//
// Queue is safe for concurrent use. Lines are retrieved in exactly the
// order they were pushed.
package linequeue
