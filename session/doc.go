// Package session supervises a long-lived interactive child process, such
// as a shell, and exposes its output as lines that can be polled without
// ever blocking on the child's pipes.
//
// Each output stream (stdout, stderr) is drained by a streamreader.Reader
// into its own linequeue.Queue. Reads only ever touch the queues, so they
// return within the requested timeout even when the child is silent.
//
// # Basic Usage
//
//	sess, err := session.Start(ctx,
//	    session.WithWorkdir("/path/to/chromiumos"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.KillSession()
//
//	if err := sess.SendCommand("echo foo"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Wait up to a second for the first line, then drain the rest.
//	for _, line := range sess.GetLines(time.Second, true, false) {
//	    fmt.Println(line)
//	}
//
// # Environment Selection
//
// Start asks a Prober whether we already run inside the target
// environment. The default probe looks for "dut-control" on PATH. Inside,
// the plain shell is spawned; outside, the entry command ("cros_sdk") is.
// WithInEnvironment bypasses the probe.
//
// # Teardown
//
// KillSession must be called explicitly. It asks both readers to stop,
// writes harmless echo commands so a blocked reader sees one more line,
// and closes the pipes if a reader is still stuck after StopTimeout. The
// child's whole process group is then killed.
//
// # Thread Safety
//
// Reads and writes are safe to call from different goroutines, but a
// session assumes one logical caller: concurrent readers of the same
// stream split its lines between them.
package session
