package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/linekit/linequeue"
	"github.com/randalmurphal/linekit/streamreader"
)

// Session owns one interactive child process and polls its output
// streams through line queues.
type Session struct {
	id     string
	config Config
	logger *slog.Logger
	inEnv  bool

	proc Process

	// Input. writeMu serialises teardown writes with caller writes.
	writeMu sync.Mutex
	stdin   *bufio.Writer

	// Output pipelines
	stdoutQueue  *linequeue.Queue
	stderrQueue  *linequeue.Queue
	stdoutReader *streamreader.Reader
	stderrReader *streamreader.Reader
	cancel       context.CancelFunc

	// State
	status       atomic.Value // Status
	createdAt    time.Time
	lastActivity atomic.Value // time.Time

	// Lifecycle
	exited    chan struct{}
	exitErr   error // written before exited is closed
	closeOnce sync.Once
	closeErr  error
}

// Start probes the environment, spawns the child process and begins
// draining its output.
func Start(ctx context.Context, opts ...Option) (*Session, error) {
	sc := defaultSessionConfig()
	for _, opt := range opts {
		opt(&sc)
	}
	sc.cfg = sc.cfg.WithDefaults()
	if err := sc.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	inEnv := sc.resolveInEnvironment()

	proc, err := sc.spawner.Spawn(ctx, SpawnRequest{Config: sc.cfg, Direct: inEnv})
	if err != nil {
		return nil, fmt.Errorf("spawn session: %w", err)
	}

	s := newSession(proc, sc, inEnv)

	for _, cmd := range sc.cfg.InitCommands {
		if err := s.SendCommand(cmd); err != nil {
			_ = s.KillSession()
			return nil, fmt.Errorf("send init command: %w", err)
		}
	}

	return s, nil
}

// New wraps an already running process. The caller keeps responsibility
// for having chosen how it was spawned.
func New(proc Process, opts ...Option) *Session {
	sc := defaultSessionConfig()
	for _, opt := range opts {
		opt(&sc)
	}
	sc.cfg = sc.cfg.WithDefaults()

	inEnv := false
	if sc.inEnvironment != nil {
		inEnv = *sc.inEnvironment
	}
	return newSession(proc, sc, inEnv)
}

func (sc *sessionConfig) resolveInEnvironment() bool {
	if sc.inEnvironment != nil {
		return *sc.inEnvironment
	}
	prober := sc.prober
	if prober == nil {
		prober = LookPathProber{Binary: sc.cfg.ProbeBinary}
	}
	return prober.InEnvironment()
}

func newSession(proc Process, sc sessionConfig, inEnv bool) *Session {
	id := sc.id
	if id == "" {
		id = uuid.NewString()
	}
	logger := sc.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("session", id))

	// Reader lifetime is tied to teardown, not to any caller context.
	readCtx, cancel := context.WithCancel(context.Background())

	s := &Session{
		id:          id,
		config:      sc.cfg,
		logger:      logger,
		inEnv:       inEnv,
		proc:        proc,
		stdin:       bufio.NewWriter(proc.Stdin()),
		stdoutQueue: linequeue.New(),
		stderrQueue: linequeue.New(),
		cancel:      cancel,
		createdAt:   time.Now(),
		exited:      make(chan struct{}),
	}
	s.status.Store(StatusActive)
	s.lastActivity.Store(time.Now())

	readerOpts := []streamreader.Option{
		streamreader.WithMaxLineSize(sc.cfg.MaxLineSize),
		streamreader.WithLogger(logger),
	}
	s.stdoutReader = streamreader.New("stdout", proc.Stdout(), s.stdoutQueue, readerOpts...).Start(readCtx)
	s.stderrReader = streamreader.New("stderr", proc.Stderr(), s.stderrQueue, readerOpts...).Start(readCtx)

	go s.waitForExit()

	logger.Debug("session started",
		slog.Int("pid", proc.PID()),
		slog.Bool("in_environment", inEnv))

	return s
}

// waitForExit reaps the child once both readers are finished with its
// pipes.
func (s *Session) waitForExit() {
	<-s.stdoutReader.Done()
	<-s.stderrReader.Done()

	s.exitErr = s.proc.Wait()
	s.status.CompareAndSwap(StatusActive, StatusClosed)
	close(s.exited)

	s.logger.Debug("session process exited", slog.Any("exit_error", s.exitErr))
}

// SendCommand writes text as one line to the child and flushes it.
func (s *Session) SendCommand(text string) error {
	return s.Send(text, true)
}

// Send writes text to the child, appending a newline if it has none.
// With flush false the command stays buffered until a later flush.
func (s *Session) Send(text string, flush bool) error {
	if s.Status() != StatusActive {
		return ErrSessionClosed
	}
	return s.write(text, flush)
}

// Flush delivers commands buffered by Send(text, false).
func (s *Session) Flush() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.stdin.Flush(); err != nil {
		return fmt.Errorf("flush commands: %w", err)
	}
	return nil
}

func (s *Session) write(text string, flush bool) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.stdin.WriteString(text); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	if flush {
		if err := s.stdin.Flush(); err != nil {
			return fmt.Errorf("flush command: %w", err)
		}
	}
	s.lastActivity.Store(time.Now())
	return nil
}

// ReadLine returns the next stdout line without its terminator. When no
// line is queued it waits up to timeout for one; a zero timeout never
// waits. The boolean is false when no line is available.
func (s *Session) ReadLine(timeout time.Duration) (string, bool) {
	return s.readFrom(s.stdoutQueue, timeout)
}

// ReadStderrLine is ReadLine for the error stream.
func (s *Session) ReadStderrLine(timeout time.Duration) (string, bool) {
	return s.readFrom(s.stderrQueue, timeout)
}

func (s *Session) readFrom(q *linequeue.Queue, timeout time.Duration) (string, bool) {
	line, ok := q.PopWait(timeout)
	if !ok {
		return "", false
	}
	s.lastActivity.Store(time.Now())
	return line, true
}

// GetLines reads lines until none is available and returns them in order.
// With timeoutOnlyForFirstLine the timeout is spent waiting for the first
// line only and the rest of the burst is drained without waiting;
// otherwise every read may wait up to timeout. The result is never nil.
func (s *Session) GetLines(timeout time.Duration, timeoutOnlyForFirstLine, fromStderr bool) []string {
	read := s.ReadLine
	if fromStderr {
		read = s.ReadStderrLine
	}

	lines := []string{}
	for {
		line, ok := read(timeout)
		if !ok {
			return lines
		}
		lines = append(lines, line)
		if timeoutOnlyForFirstLine {
			timeout = 0
		}
	}
}

// KillSession stops both stream readers and force-terminates the child.
//
// Readers blocked in a read are woken by writing the configured unblock
// commands, which a shell echoes to each stream. Readers still running
// after StopTimeout have their pipes closed under them. Stdin is closed
// after the kill, which releases any write still waiting on the child.
// Failures are reported as a single *TeardownError. Later calls return
// the first call's result.
func (s *Session) KillSession() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.teardown()
	})
	return s.closeErr
}

func (s *Session) teardown() error {
	s.status.Store(StatusClosing)
	s.logger.Debug("killing session")

	s.stdoutReader.RequestStop()
	s.stderrReader.RequestStop()

	// A child that stopped reading stdin, or a caller's Send stuck on a
	// full pipe, blocks these writes until stdin is closed below.
	go s.writeUnblockCommands()

	var errs []error

	for _, r := range []*streamreader.Reader{s.stdoutReader, s.stderrReader} {
		if waitFor(r.Done(), s.config.StopTimeout) {
			continue
		}
		s.logger.Debug("stream reader still blocked, closing pipe", slog.String("stream", r.Name()))
		if err := r.Interrupt(); err != nil {
			errs = append(errs, err)
		}
		if !waitFor(r.Done(), s.config.KillTimeout) {
			errs = append(errs, fmt.Errorf("%s reader did not stop", r.Name()))
		}
	}
	s.cancel()

	if err := s.proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		errs = append(errs, fmt.Errorf("kill process: %w", err))
	}

	if err := s.proc.Stdin().Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		s.logger.Debug("close stdin", slog.Any("error", err))
	}

	if !waitFor(s.exited, s.config.KillTimeout) {
		errs = append(errs, fmt.Errorf("process did not exit after kill"))
	}

	s.status.Store(StatusClosed)

	if len(errs) > 0 {
		err := &TeardownError{SessionID: s.id, Err: errors.Join(errs...)}
		s.logger.Warn("session teardown incomplete", slog.Any("error", err))
		return err
	}
	s.logger.Debug("session killed")
	return nil
}

// writeUnblockCommands sends the wake-up lines a shell echoes to each
// stream. Failures are expected once the child is gone.
func (s *Session) writeUnblockCommands() {
	for _, cmd := range s.config.UnblockCommands {
		if err := s.write(cmd, true); err != nil {
			s.logger.Debug("unblock write failed", slog.Any("error", err))
			return
		}
	}
}

// waitFor reports whether ch closed within d.
func waitFor(ch <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// PID returns the child's OS process ID.
func (s *Session) PID() int {
	return s.proc.PID()
}

// InEnvironment reports whether the plain shell was spawned because we
// were already inside the environment.
func (s *Session) InEnvironment() bool {
	return s.inEnv
}

// Status returns the current session state.
func (s *Session) Status() Status {
	return s.status.Load().(Status)
}

// Done is closed once the child process has exited and been reaped.
func (s *Session) Done() <-chan struct{} {
	return s.exited
}

// ExitErr returns the child's exit error. It is only meaningful after
// Done is closed.
func (s *Session) ExitErr() error {
	select {
	case <-s.exited:
		return s.exitErr
	default:
		return nil
	}
}

// ReaderErrs returns abnormal stream reader terminations, such as an
// oversized line.
func (s *Session) ReaderErrs() error {
	return errors.Join(s.stdoutReader.Err(), s.stderrReader.Err())
}

// LastActivity returns when a command was last sent or a line last read.
func (s *Session) LastActivity() time.Time {
	return s.lastActivity.Load().(time.Time)
}

// Info returns session metadata.
func (s *Session) Info() Info {
	return Info{
		ID:            s.id,
		PID:           s.PID(),
		Status:        s.Status(),
		InEnvironment: s.inEnv,
		WorkDir:       s.config.WorkDir,
		CreatedAt:     s.createdAt,
		LastActivity:  s.LastActivity(),
		StdoutLines:   s.stdoutReader.Lines(),
		StderrLines:   s.stderrReader.Lines(),
	}
}
