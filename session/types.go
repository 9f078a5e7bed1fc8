package session

import "time"

// Status is the lifecycle state of a Session.
type Status string

// Session states.
const (
	StatusActive  Status = "active"
	StatusClosing Status = "closing"
	StatusClosed  Status = "closed"
)

// Info is a snapshot of session metadata.
type Info struct {
	ID            string    `json:"id"`
	PID           int       `json:"pid"`
	Status        Status    `json:"status"`
	InEnvironment bool      `json:"in_environment"`
	WorkDir       string    `json:"work_dir,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `json:"last_activity"`
	StdoutLines   int64     `json:"stdout_lines"`
	StderrLines   int64     `json:"stderr_lines"`
}
