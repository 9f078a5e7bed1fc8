package session

import (
	"log/slog"
	"time"
)

// Option configures a Session.
type Option func(*sessionConfig)

// sessionConfig holds session configuration.
type sessionConfig struct {
	cfg Config

	id     string
	logger *slog.Logger

	// Collaborators
	prober  Prober
	spawner Spawner

	// inEnvironment overrides the prober when set.
	inEnvironment *bool
}

// defaultSessionConfig returns the default session configuration.
func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		cfg:     DefaultConfig(),
		spawner: ExecSpawner{},
	}
}

// WithConfig replaces the whole spawn configuration. Unset fields fall
// back to defaults.
func WithConfig(cfg Config) Option {
	return func(c *sessionConfig) { c.cfg = cfg }
}

// WithShell sets the program run when already inside the environment.
func WithShell(path string, args ...string) Option {
	return func(c *sessionConfig) {
		c.cfg.Shell = path
		c.cfg.ShellArgs = args
	}
}

// WithEntryCommand sets the program that enters the environment.
func WithEntryCommand(path string, args ...string) Option {
	return func(c *sessionConfig) {
		c.cfg.EntryCommand = path
		c.cfg.EntryArgs = args
	}
}

// WithWorkdir sets the working directory for the child process.
func WithWorkdir(dir string) Option {
	return func(c *sessionConfig) { c.cfg.WorkDir = dir }
}

// WithEnv adds environment variables to the child process.
func WithEnv(env map[string]string) Option {
	return func(c *sessionConfig) {
		if c.cfg.Env == nil {
			c.cfg.Env = make(map[string]string)
		}
		for k, v := range env {
			c.cfg.Env[k] = v
		}
	}
}

// WithProbeBinary sets the utility whose presence on PATH means we are
// already inside the environment.
func WithProbeBinary(name string) Option {
	return func(c *sessionConfig) { c.cfg.ProbeBinary = name }
}

// WithInEnvironment skips the probe and decides directly whether to run
// the shell (true) or the entry command (false).
func WithInEnvironment(in bool) Option {
	return func(c *sessionConfig) { c.inEnvironment = &in }
}

// WithProber sets the environment probe.
func WithProber(p Prober) Option {
	return func(c *sessionConfig) { c.prober = p }
}

// WithSpawner sets how the child process is created.
func WithSpawner(s Spawner) Option {
	return func(c *sessionConfig) { c.spawner = s }
}

// WithInitCommands sets commands sent right after the child starts.
func WithInitCommands(cmds ...string) Option {
	return func(c *sessionConfig) { c.cfg.InitCommands = cmds }
}

// WithUnblockCommands sets the lines written to the child on teardown.
// Pass none to disable the unblock write entirely.
func WithUnblockCommands(cmds ...string) Option {
	return func(c *sessionConfig) {
		if cmds == nil {
			cmds = []string{}
		}
		c.cfg.UnblockCommands = cmds
	}
}

// WithStopTimeout sets how long teardown waits for readers to exit on
// their own.
func WithStopTimeout(d time.Duration) Option {
	return func(c *sessionConfig) { c.cfg.StopTimeout = d }
}

// WithKillTimeout bounds waits after forced teardown actions.
func WithKillTimeout(d time.Duration) Option {
	return func(c *sessionConfig) { c.cfg.KillTimeout = d }
}

// WithMaxLineSize sets the longest accepted output line.
func WithMaxLineSize(n int) Option {
	return func(c *sessionConfig) { c.cfg.MaxLineSize = n }
}

// WithSessionID sets a specific session ID instead of a generated one.
func WithSessionID(id string) Option {
	return func(c *sessionConfig) { c.id = id }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *sessionConfig) { c.logger = logger }
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

// managerConfig holds manager configuration.
type managerConfig struct {
	// Maximum concurrent sessions
	maxSessions int

	// Default session options applied to all sessions
	defaultOpts []Option

	// TTL for idle sessions (0 = no auto-cleanup)
	sessionTTL time.Duration

	// Cleanup interval for expired sessions
	cleanupInterval time.Duration

	logger *slog.Logger
}

// defaultManagerConfig returns the default manager configuration.
func defaultManagerConfig() managerConfig {
	return managerConfig{
		maxSessions:     16,
		sessionTTL:      30 * time.Minute,
		cleanupInterval: 5 * time.Minute,
	}
}

// WithMaxSessions sets the maximum number of concurrent sessions.
func WithMaxSessions(n int) ManagerOption {
	return func(c *managerConfig) { c.maxSessions = n }
}

// WithDefaultSessionOptions sets options applied to all new sessions.
func WithDefaultSessionOptions(opts ...Option) ManagerOption {
	return func(c *managerConfig) { c.defaultOpts = opts }
}

// WithSessionTTL sets the TTL for idle sessions.
// Sessions idle longer than this are killed.
func WithSessionTTL(d time.Duration) ManagerOption {
	return func(c *managerConfig) { c.sessionTTL = d }
}

// WithCleanupInterval sets how often to check for expired sessions.
func WithCleanupInterval(d time.Duration) ManagerOption {
	return func(c *managerConfig) { c.cleanupInterval = d }
}

// WithManagerLogger sets the logger used by the manager.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(c *managerConfig) { c.logger = logger }
}
