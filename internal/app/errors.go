package app

import "errors"

// Sentinel kinds for monitor errors.
var (
	// ErrInvalidKind rejects ingestion with an unknown event kind.
	ErrInvalidKind = errors.New("unknown event kind")

	// ErrInvalidDescription rejects descriptions outside 5-500 chars.
	ErrInvalidDescription = errors.New("description must be between 5 and 500 characters")

	// ErrInvalidTimestamp rejects ingestion without a valid timestamp.
	ErrInvalidTimestamp = errors.New("timestamp is required")

	// ErrInvalidConfidence rejects confidence outside [0,1].
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")

	// ErrInvalidCandidate rejects session starts with a bad candidate.
	ErrInvalidCandidate = errors.New("candidate name must be between 2 and 100 characters")

	// ErrSessionClosed rejects operations against a terminal session.
	ErrSessionClosed = errors.New("session is no longer active")

	// ErrAlreadyEnded rejects a second end request for a session.
	ErrAlreadyEnded = errors.New("session already ended")

	// ErrClockSkew surfaces a negative computed duration.
	ErrClockSkew = errors.New("session end time precedes start time")
)
