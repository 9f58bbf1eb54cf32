package model

import "time"

// SessionStatus tracks the lifecycle of a monitored session.
type SessionStatus string

// Session lifecycle states. Active is the only non-terminal state.
const (
	StatusActive     SessionStatus = "active"
	StatusCompleted  SessionStatus = "completed"
	StatusTerminated SessionStatus = "terminated"
)

// Terminal reports whether no further transitions are permitted.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusTerminated
}

// Session is the record of one monitored interview. Counters and the
// final score are mutated only by the session state machine; once the
// status is terminal the record is immutable.
type Session struct {
	ID             string
	CandidateName  string
	CandidateEmail string
	Interviewer    string
	Notes          string
	StartTime      time.Time
	EndTime        *time.Time
	Duration       int // seconds, set at session end
	Status         SessionStatus

	// Running counters, owned by the state machine.
	TotalEvents     int
	FocusLostCount  int
	SuspiciousCount int

	// IntegrityScore is nil until the session ends.
	IntegrityScore *int
}
