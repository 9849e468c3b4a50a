// Package mux provides an abstraction over terminal multiplexers (tmux,
// zellij).
//
// This package is pure transport: it lists sessions, captures pane text,
// and performs lifecycle operations. It never interprets pane content —
// classification lives in internal/classify.
package mux

import (
	"context"
	"errors"
)

// Sentinel errors returned by Multiplexer implementations. Callers match
// with errors.Is; implementations wrap them with call-site detail.
var (
	// ErrUnavailable means the multiplexer server could not be reached
	// at all. The poller skips the whole cycle on this.
	ErrUnavailable = errors.New("multiplexer unavailable")
	// ErrCaptureFailed means a single pane capture failed (session gone,
	// timeout, mid-teardown). Treated as "no data this cycle".
	ErrCaptureFailed = errors.New("pane capture failed")
	// ErrNotFound means the named session does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrAlreadyExists means a session with that name already exists.
	ErrAlreadyExists = errors.New("session already exists")
)

// Multiplexer abstracts terminal multiplexer operations.
// Implementations exist for tmux and (future) zellij.
//
// The multiplexer server is a separate process shared with anything else
// talking to it, so implementations must tolerate benign races: a session
// disappearing between ListSessions and CapturePane is a capture failure,
// not a crash.
type Multiplexer interface {
	// Name returns the multiplexer name (e.g., "tmux").
	Name() string

	// ListSessions returns the names of all live sessions.
	// Fails with ErrUnavailable when the server cannot be reached.
	ListSessions(ctx context.Context) ([]string, error)

	// CapturePane captures the visible content of a session's first pane.
	// Fails with ErrCaptureFailed when the session is gone or the call
	// times out.
	CapturePane(ctx context.Context, session string) (string, error)

	// CreateSession creates a detached session rooted at dir.
	// Fails with ErrAlreadyExists on a name collision.
	CreateSession(ctx context.Context, session, dir string) error

	// KillSession destroys a session. Fails with ErrNotFound when it
	// does not exist (callers may tolerate that as a no-op).
	KillSession(ctx context.Context, session string) error

	// RenameSession renames a session in the multiplexer.
	RenameSession(ctx context.Context, session, newName string) error

	// SendKeys types keys into a session's first pane followed by Enter.
	SendKeys(ctx context.Context, session, keys string) error

	// SwitchClient moves all attached clients to the session. Returns
	// false when no client is attached (the user must attach manually).
	SwitchClient(ctx context.Context, session string) (bool, error)

	// AttachedSession returns the session the attached client is
	// currently viewing, or empty when no client is attached.
	AttachedSession(ctx context.Context) (string, error)
}
