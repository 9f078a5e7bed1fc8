package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Process is a running child with one writable and two readable streams.
type Process interface {
	// Stdin returns the child's input stream.
	Stdin() io.WriteCloser

	// Stdout returns the child's output stream.
	Stdout() io.ReadCloser

	// Stderr returns the child's error stream.
	Stderr() io.ReadCloser

	// PID returns the OS process ID, or 0 if unknown.
	PID() int

	// Kill force-terminates the child. Killing an already exited child is
	// not an error.
	Kill() error

	// Wait blocks until the child exits. Callers must finish reading
	// Stdout and Stderr first.
	Wait() error
}

// SpawnRequest tells a Spawner what to start.
type SpawnRequest struct {
	Config Config

	// Direct is true when we are already inside the environment and the
	// plain shell should run; otherwise the entry command is used.
	Direct bool
}

// Command returns the program and arguments selected by Direct.
func (r SpawnRequest) Command() (string, []string) {
	if r.Direct {
		return r.Config.Shell, r.Config.ShellArgs
	}
	return r.Config.EntryCommand, r.Config.EntryArgs
}

// Spawner starts child processes.
type Spawner interface {
	Spawn(ctx context.Context, req SpawnRequest) (Process, error)
}

// SpawnerFunc adapts a function to Spawner.
type SpawnerFunc func(ctx context.Context, req SpawnRequest) (Process, error)

// Spawn implements Spawner.
func (f SpawnerFunc) Spawn(ctx context.Context, req SpawnRequest) (Process, error) {
	return f(ctx, req)
}

// ExecSpawner starts children with os/exec in their own process group.
type ExecSpawner struct{}

var _ Spawner = ExecSpawner{}

// Spawn implements Spawner.
func (ExecSpawner) Spawn(ctx context.Context, req SpawnRequest) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, args := req.Command()
	if name == "" {
		return nil, errors.New("command cannot be empty")
	}

	// The child outlives ctx; teardown is explicit through Kill.
	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = sysProcAttr()
	if req.Config.WorkDir != "" {
		cmd.Dir = req.Config.WorkDir
	}
	if len(req.Config.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range req.Config.Env {
			cmd.Env = setEnvVar(cmd.Env, k, v)
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		_ = stderr.Close()
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

// execProcess implements Process over an exec.Cmd.
type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.ReadCloser { return p.stdout }
func (p *execProcess) Stderr() io.ReadCloser { return p.stderr }

func (p *execProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Kill terminates the whole process group so helpers started by the
// shell do not keep the output pipes open.
func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := killProcessGroup(p.cmd.Process); err != nil {
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("kill pid %d: %w", p.cmd.Process.Pid, err)
		}
	}
	return nil
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

// setEnvVar updates or adds an environment variable.
func setEnvVar(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
