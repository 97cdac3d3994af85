package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingIdentity means a session was requested without a user; no
	// provider call is made and the caller should redirect to login.
	ErrMissingIdentity = errors.New("user identity is required")
	// ErrEmptyQuestionSet means the provider returned no questions; the
	// session cannot render and is never started.
	ErrEmptyQuestionSet = errors.New("question set is empty")
	// ErrSessionNotFound is returned when acting on a session that was
	// never started or has been retired.
	ErrSessionNotFound = errors.New("trivia session not found")
	// ErrSessionActive is returned when starting a session while a live
	// one exists for the same user.
	ErrSessionActive = errors.New("trivia session already in progress")
	// ErrNotActive is returned for answer submissions outside the Active phase.
	ErrNotActive = errors.New("session is not accepting answers")
	// ErrGateNotReached is returned for a continue request before the gate.
	ErrGateNotReached = errors.New("session has not reached the gate")
	// ErrMissingHandoff means the results phase was entered without an
	// identity or answer map; fatal to that screen.
	ErrMissingHandoff = errors.New("missing handoff context")
)

// RejectionError is a structured domain-level rejection from the question
// provider, e.g. an active play cooldown. It is reported, not fatal: the
// caller navigates away with the message.
type RejectionError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RejectionError) Error() string {
	return e.Message
}

// NewCooldownRejection builds the rejection for a user still inside the
// play cooldown window.
func NewCooldownRejection(remaining time.Duration) *RejectionError {
	minutes := int(remaining.Minutes())
	return &RejectionError{
		Message:    fmt.Sprintf("Please wait %d more minutes before playing again.", minutes),
		RetryAfter: remaining,
	}
}
