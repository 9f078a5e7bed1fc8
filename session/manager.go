package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Manager tracks several sessions by ID and kills those left idle.
//
// Manager is safe for concurrent use. Individual sessions still expect a
// single caller per session.
type Manager struct {
	config     managerConfig
	logger     *slog.Logger
	sessions   map[string]*Session
	mu         sync.RWMutex
	closed     bool
	closedOnce sync.Once
	stopClean  chan struct{}
}

// NewManager creates a new session manager.
func NewManager(opts ...ManagerOption) *Manager {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		config:    cfg,
		logger:    logger,
		sessions:  make(map[string]*Session),
		stopClean: make(chan struct{}),
	}

	// Start cleanup goroutine if TTL is configured
	if cfg.sessionTTL > 0 && cfg.cleanupInterval > 0 {
		go m.cleanupLoop()
	}

	return m
}

// Create starts a new session with the manager's defaults followed by opts.
func (m *Manager) Create(ctx context.Context, opts ...Option) (*Session, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, ErrManagerClosed
	}
	if m.config.maxSessions > 0 && len(m.sessions) >= m.config.maxSessions {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w (%d)", ErrMaxSessions, m.config.maxSessions)
	}
	m.mu.RUnlock()

	allOpts := make([]Option, 0, len(m.config.defaultOpts)+len(opts))
	allOpts = append(allOpts, m.config.defaultOpts...)
	allOpts = append(allOpts, opts...)

	s, err := Start(ctx, allOpts...)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after the spawn, which ran unlocked.
	if m.closed {
		_ = s.KillSession()
		return nil, ErrManagerClosed
	}
	if m.config.maxSessions > 0 && len(m.sessions) >= m.config.maxSessions {
		_ = s.KillSession()
		return nil, fmt.Errorf("%w (%d)", ErrMaxSessions, m.config.maxSessions)
	}

	m.sessions[s.ID()] = s
	go m.watchSession(s)

	m.logger.Debug("session registered", slog.String("session", s.ID()), slog.Int("count", len(m.sessions)))
	return s, nil
}

// watchSession removes a session from the map when its process exits.
func (m *Manager) watchSession(s *Session) {
	<-s.Done()
	m.mu.Lock()
	delete(m.sessions, s.ID())
	m.mu.Unlock()
}

// Get retrieves an active session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok || s.Status() != StatusActive {
		return nil, false
	}
	return s, true
}

// Close kills a specific session.
func (m *Manager) Close(id string) error {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	return s.KillSession()
}

// CloseAll kills every session and rejects further Create calls.
// It returns the last teardown error, if any.
func (m *Manager) CloseAll() error {
	m.closedOnce.Do(func() {
		close(m.stopClean)
	})

	m.mu.Lock()
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var lastErr error
	for _, s := range sessions {
		if err := s.KillSession(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// List returns the IDs of all active sessions.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id, s := range m.sessions {
		if s.Status() == StatusActive {
			ids = append(ids, id)
		}
	}
	return ids
}

// Count returns the number of tracked sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Info returns information about a session.
func (m *Manager) Info(id string) (*Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}

	info := s.Info()
	return &info, true
}

// cleanupLoop periodically kills expired sessions.
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(m.config.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopClean:
			return
		case <-ticker.C:
			m.cleanupExpired()
		}
	}
}

// cleanupExpired kills sessions that have been idle too long.
func (m *Manager) cleanupExpired() {
	m.mu.RLock()
	var expired []*Session
	cutoff := time.Now().Add(-m.config.sessionTTL)

	for _, s := range m.sessions {
		if s.LastActivity().Before(cutoff) {
			expired = append(expired, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range expired {
		m.logger.Debug("killing idle session", slog.String("session", s.ID()))
		if err := s.KillSession(); err != nil {
			m.logger.Warn("idle session teardown failed", slog.String("session", s.ID()), slog.Any("error", err))
		}
	}
}
