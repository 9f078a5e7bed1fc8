package session

import (
	"fmt"
	"time"
)

// Config describes how a session's child process is spawned and torn down.
// It is loadable from YAML or TOML through the config package.
type Config struct {
	// Shell is the program run when already inside the target environment.
	// Default: "/bin/bash"
	Shell string `json:"shell" yaml:"shell" toml:"shell" jsonschema:"description=Program run when already inside the environment"`

	// ShellArgs are passed to Shell.
	ShellArgs []string `json:"shell_args,omitempty" yaml:"shell_args" toml:"shell_args"`

	// EntryCommand is the program that enters the environment when we are
	// outside it. Default: "cros_sdk"
	EntryCommand string `json:"entry_command" yaml:"entry_command" toml:"entry_command" jsonschema:"description=Program that enters the environment from outside"`

	// EntryArgs are passed to EntryCommand.
	EntryArgs []string `json:"entry_args,omitempty" yaml:"entry_args" toml:"entry_args"`

	// WorkDir is the working directory of the child process.
	WorkDir string `json:"work_dir,omitempty" yaml:"work_dir" toml:"work_dir"`

	// Env adds or overrides environment variables of the child process.
	Env map[string]string `json:"env,omitempty" yaml:"env" toml:"env"`

	// ProbeBinary is looked up on PATH to decide whether we are already
	// inside the environment. Default: "dut-control"
	ProbeBinary string `json:"probe_binary" yaml:"probe_binary" toml:"probe_binary"`

	// InitCommands are sent to the child right after it starts.
	InitCommands []string `json:"init_commands,omitempty" yaml:"init_commands" toml:"init_commands"`

	// UnblockCommands are written on teardown so a child that relays input
	// produces one last line on each output stream.
	// Default: ["echo foo >&1", "echo foo 1>&2"]
	UnblockCommands []string `json:"unblock_commands,omitempty" yaml:"unblock_commands" toml:"unblock_commands"`

	// StopTimeout is how long teardown waits for the stream readers to
	// exit on their own before closing the pipes under them.
	// Default: 2 seconds.
	StopTimeout time.Duration `json:"stop_timeout" yaml:"stop_timeout" toml:"stop_timeout"`

	// KillTimeout bounds each wait after a forced action during teardown.
	// Default: 5 seconds.
	KillTimeout time.Duration `json:"kill_timeout" yaml:"kill_timeout" toml:"kill_timeout"`

	// MaxLineSize is the longest line accepted from the child.
	// Default: 10MB.
	MaxLineSize int `json:"max_line_size" yaml:"max_line_size" toml:"max_line_size"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Shell:           "/bin/bash",
		EntryCommand:    "cros_sdk",
		ProbeBinary:     "dut-control",
		UnblockCommands: []string{"echo foo >&1", "echo foo 1>&2"},
		StopTimeout:     2 * time.Second,
		KillTimeout:     5 * time.Second,
		MaxLineSize:     10 * 1024 * 1024,
	}
}

// WithDefaults returns a copy of the config with defaults applied for unset fields.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()

	if c.Shell == "" {
		c.Shell = defaults.Shell
	}
	if c.EntryCommand == "" {
		c.EntryCommand = defaults.EntryCommand
	}
	if c.ProbeBinary == "" {
		c.ProbeBinary = defaults.ProbeBinary
	}
	if c.UnblockCommands == nil {
		c.UnblockCommands = defaults.UnblockCommands
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = defaults.StopTimeout
	}
	if c.KillTimeout == 0 {
		c.KillTimeout = defaults.KillTimeout
	}
	if c.MaxLineSize == 0 {
		c.MaxLineSize = defaults.MaxLineSize
	}

	return c
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Shell == "" {
		return fmt.Errorf("shell is required")
	}
	if c.EntryCommand == "" {
		return fmt.Errorf("entry_command is required")
	}
	if c.StopTimeout < 0 {
		return fmt.Errorf("stop_timeout must be >= 0")
	}
	if c.KillTimeout < 0 {
		return fmt.Errorf("kill_timeout must be >= 0")
	}
	if c.MaxLineSize < 0 {
		return fmt.Errorf("max_line_size must be >= 0")
	}
	return nil
}
