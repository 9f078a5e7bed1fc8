package session

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrSessionClosed is returned when writing to a session after teardown
	// or after its child process has exited.
	ErrSessionClosed = errors.New("session closed")

	// ErrManagerClosed is returned by a Manager after CloseAll.
	ErrManagerClosed = errors.New("manager is closed")

	// ErrSessionNotFound is returned for an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrMaxSessions is returned when a Manager is at capacity.
	ErrMaxSessions = errors.New("max sessions reached")
)

// TeardownError collects everything that went wrong while killing a
// session. The stream readers have always been asked to stop by the time
// one is returned.
type TeardownError struct {
	SessionID string
	Err       error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("teardown session %s: %v", e.SessionID, e.Err)
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}
