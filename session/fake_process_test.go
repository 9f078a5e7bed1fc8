package session

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"
)

// fakeShell implements Process with in-memory pipes. It understands
// "echo X" (to stdout) and "echo X 1>&2" (to stderr), like a shell would,
// and records every line it receives.
type fakeShell struct {
	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	// mute disables echo so blocked readers are never woken by input.
	mute    bool
	killErr error

	mu       sync.Mutex
	received []string

	killOnce sync.Once
	killed   chan struct{}
}

func newFakeShell() *fakeShell {
	f := &fakeShell{killed: make(chan struct{})}
	f.stdinR, f.stdinW = io.Pipe()
	f.stdoutR, f.stdoutW = io.Pipe()
	f.stderrR, f.stderrW = io.Pipe()
	go f.interpret()
	return f
}

func newMuteShell() *fakeShell {
	f := newFakeShell()
	f.mu.Lock()
	f.mute = true
	f.mu.Unlock()
	return f
}

func (f *fakeShell) interpret() {
	scanner := bufio.NewScanner(f.stdinR)
	for scanner.Scan() {
		line := scanner.Text()
		f.mu.Lock()
		f.received = append(f.received, line)
		mute := f.mute
		f.mu.Unlock()

		if mute || !strings.HasPrefix(line, "echo ") {
			continue
		}
		arg := strings.TrimPrefix(line, "echo ")
		switch {
		case strings.HasSuffix(arg, " 1>&2"):
			_, _ = io.WriteString(f.stderrW, strings.TrimSuffix(arg, " 1>&2")+"\n")
		default:
			_, _ = io.WriteString(f.stdoutW, strings.TrimSuffix(arg, " >&1")+"\n")
		}
	}
}

func (f *fakeShell) out(lines ...string) {
	for _, l := range lines {
		_, _ = io.WriteString(f.stdoutW, l)
	}
}

func (f *fakeShell) errOut(lines ...string) {
	for _, l := range lines {
		_, _ = io.WriteString(f.stderrW, l)
	}
}

func (f *fakeShell) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

// exit simulates the child exiting on its own.
func (f *fakeShell) exit() {
	f.killOnce.Do(f.shutdown)
}

func (f *fakeShell) shutdown() {
	_ = f.stdoutW.Close()
	_ = f.stderrW.Close()
	_ = f.stdinR.Close()
	close(f.killed)
}

func (f *fakeShell) Stdin() io.WriteCloser { return f.stdinW }
func (f *fakeShell) Stdout() io.ReadCloser { return f.stdoutR }
func (f *fakeShell) Stderr() io.ReadCloser { return f.stderrR }
func (f *fakeShell) PID() int              { return 4242 }

func (f *fakeShell) Kill() error {
	if f.killErr != nil {
		return f.killErr
	}
	f.killOnce.Do(f.shutdown)
	return nil
}

func (f *fakeShell) Wait() error {
	<-f.killed
	return errors.New("signal: killed")
}

// deafShell never reads stdin and never writes output, like a child
// wedged in a long computation. Kill ends its output streams but leaves
// stdin unread.
type deafShell struct {
	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	killOnce sync.Once
	killed   chan struct{}
}

func newDeafShell() *deafShell {
	d := &deafShell{killed: make(chan struct{})}
	d.stdinR, d.stdinW = io.Pipe()
	d.stdoutR, d.stdoutW = io.Pipe()
	d.stderrR, d.stderrW = io.Pipe()
	return d
}

func (d *deafShell) Stdin() io.WriteCloser { return d.stdinW }
func (d *deafShell) Stdout() io.ReadCloser { return d.stdoutR }
func (d *deafShell) Stderr() io.ReadCloser { return d.stderrR }
func (d *deafShell) PID() int              { return 4343 }

func (d *deafShell) Kill() error {
	d.killOnce.Do(func() {
		_ = d.stdoutW.Close()
		_ = d.stderrW.Close()
		close(d.killed)
	})
	return nil
}

func (d *deafShell) Wait() error {
	<-d.killed
	return errors.New("signal: killed")
}
