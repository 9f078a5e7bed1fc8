package session

import "os/exec"

// Prober decides whether the caller already runs inside the target
// environment.
type Prober interface {
	InEnvironment() bool
}

// LookPathProber reports true when Binary is found on PATH.
type LookPathProber struct {
	Binary string
}

// InEnvironment implements Prober.
func (p LookPathProber) InEnvironment() bool {
	if p.Binary == "" {
		return false
	}
	_, err := exec.LookPath(p.Binary)
	return err == nil
}

// StaticProber always returns its own value.
type StaticProber bool

// InEnvironment implements Prober.
func (p StaticProber) InEnvironment() bool {
	return bool(p)
}
