package app

import "time"

// Session tracks one CLI invocation. Its ID tags every log line the
// invocation writes, and Close logs how it ended.
type Session struct {
	ID      string
	Command string
	Started time.Time
	Status  string // "success" or "error"
}

// NewSession starts a session for command at now.
func NewSession(command string, now time.Time) *Session {
	return &Session{
		ID:      now.UTC().Format("20060102T150405Z"),
		Command: command,
		Started: now,
		Status:  "success",
	}
}

// Fail marks the session as failed.
func (s *Session) Fail() {
	s.Status = "error"
}

// Elapsed is the time since the session started.
func (s *Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.Started)
}
