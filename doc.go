// Package linekit drives long-lived interactive child processes, such as
// a shell or an SDK chroot, through non-blocking line-oriented I/O.
//
// Each subpackage can be used independently:
//
//   - linequeue: unbounded FIFO of lines with non-blocking and timed pops
//   - streamreader: background goroutine draining a stream into a queue
//   - session: spawns the child, polls its stdout/stderr, sends commands
//   - config: YAML/TOML configuration files, JSON Schema and hot reload
//
// # Quick Start
//
//	import "github.com/randalmurphal/linekit/session"
//
//	sess, err := session.Start(ctx, session.WithWorkdir(repo))
//	if err != nil {
//	    return err
//	}
//	defer sess.KillSession()
//
//	_ = sess.SendCommand("echo foo")
//	line, ok := sess.ReadLine(time.Second) // "foo", true
package linekit
