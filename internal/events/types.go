// Package events receives status hints pushed by agent hooks over a unix
// datagram socket. Hints are advisory: a fresh attention hint lets the
// poller surface NeedsInput before the heuristics would, but the classifier
// remains the authority for everything else.
package events

import (
	"fmt"
	"strings"
	"time"
)

const (
	StateWaitingInput    = "waiting_input"
	StateWaitingApproval = "waiting_approval"
	StateRunning         = "running"
	StateCompleted       = "completed"
	StateError           = "error"
	StateIdle            = "idle"
)

// Event is the normalized hook payload. Session is the tmux session name
// the hint applies to.
type Event struct {
	Assistant string    `json:"assistant"`
	State     string    `json:"state"`
	Session   string    `json:"session"`
	TS        time.Time `json:"ts"`
	Message   string    `json:"message,omitempty"`
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Assistant) == "" {
		return fmt.Errorf("assistant is required")
	}
	if !isValidState(e.State) {
		return fmt.Errorf("invalid state %q", e.State)
	}
	if !isValidSession(e.Session) {
		return fmt.Errorf("invalid session %q", e.Session)
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}

// IsAttentionState reports whether the state means a human is needed.
func IsAttentionState(state string) bool {
	return state == StateWaitingInput || state == StateWaitingApproval
}

func isValidState(state string) bool {
	switch state {
	case StateWaitingInput, StateWaitingApproval, StateRunning, StateCompleted, StateError, StateIdle:
		return true
	default:
		return false
	}
}

// isValidSession checks for a plausible tmux session name: non-empty,
// no ':' or '.' (tmux reserves those for target addressing).
func isValidSession(session string) bool {
	session = strings.TrimSpace(session)
	if session == "" {
		return false
	}
	return !strings.ContainsAny(session, ":.")
}
