// Package model holds the session entity, the status taxonomy, and small
// pure helpers shared across the engine and the presentation layer.
package model

import "fmt"

// Status classifies a tracked session.
type Status int

const (
	// StatusNeedsInput means the agent is waiting on a human answer.
	// Highest priority: it is the most actionable state.
	StatusNeedsInput Status = iota
	// StatusWorking means pane output changed since the last poll.
	StatusWorking
	// StatusReady means output has been quiet past the debounce window
	// after a working phase; the agent is done and idle.
	StatusReady
	// StatusSeen is a Ready session the user has acknowledged.
	// Only reachable via Controller.Acknowledge, never inferred from
	// pane content.
	StatusSeen
)

var statusNames = map[Status]string{
	StatusNeedsInput: "needs_input",
	StatusWorking:    "working",
	StatusReady:      "ready",
	StatusSeen:       "seen",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Priority returns the sort rank for dashboards: NeedsInput first, Seen last.
func (s Status) Priority() int {
	return int(s)
}

// MarshalText implements encoding.TextMarshaler so Status renders as its
// name in JSON output (list command, check command).
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for st, name := range statusNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(text))
}
