package mux

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Tmux implements the Multiplexer interface for tmux.
type Tmux struct{}

// NewTmux creates a new tmux multiplexer.
func NewTmux() *Tmux {
	return &Tmux{}
}

// Name returns "tmux".
func (t *Tmux) Name() string {
	return "tmux"
}

// ListSessions returns all tmux session names.
// A tmux server with no sessions ("no server running") is not an error —
// it simply means nothing is tracked yet.
func (t *Tmux) ListSessions(ctx context.Context) ([]string, error) {
	out, err := t.run(ctx, "list-sessions", "-F", "#{session_name}")
	if err != nil {
		if isNoServer(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: tmux list-sessions: %v", ErrUnavailable, err)
	}

	var sessions []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			sessions = append(sessions, line)
		}
	}
	return sessions, nil
}

// CapturePane captures the visible content of a session's active pane.
// Uses -p (stdout) and -J (joined, unwraps lines).
func (t *Tmux) CapturePane(ctx context.Context, session string) (string, error) {
	out, err := t.run(ctx, "capture-pane", "-t", session, "-p", "-J")
	if err != nil {
		return "", fmt.Errorf("%w: tmux capture-pane -t %s: %v", ErrCaptureFailed, session, err)
	}
	return out, nil
}

// CreateSession creates a detached session rooted at dir and trims the
// tmux status line down to the session label.
func (t *Tmux) CreateSession(ctx context.Context, session, dir string) error {
	args := []string{"new-session", "-d", "-s", session}
	if dir != "" {
		args = append(args, "-c", dir)
	}
	if _, err := t.run(ctx, args...); err != nil {
		if strings.Contains(err.Error(), "duplicate session") {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, session)
		}
		return fmt.Errorf("tmux new-session -s %s: %w", session, err)
	}

	// Cosmetic options; failures here never fail the create.
	_, _ = t.run(ctx, "set-option", "-t", session, "mouse", "on")
	_, _ = t.run(ctx, "set-option", "-t", session, "status-left", " "+session+" | ")
	_, _ = t.run(ctx, "set-option", "-t", session, "status-right", "")
	return nil
}

// KillSession destroys a session.
func (t *Tmux) KillSession(ctx context.Context, session string) error {
	if _, err := t.run(ctx, "kill-session", "-t", session); err != nil {
		if isMissingSession(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, session)
		}
		return fmt.Errorf("tmux kill-session -t %s: %w", session, err)
	}
	return nil
}

// RenameSession renames a session.
func (t *Tmux) RenameSession(ctx context.Context, session, newName string) error {
	if _, err := t.run(ctx, "rename-session", "-t", session, newName); err != nil {
		if isMissingSession(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, session)
		}
		return fmt.Errorf("tmux rename-session -t %s: %w", session, err)
	}
	return nil
}

// SendKeys types literal keys into the session's active pane, then Enter.
func (t *Tmux) SendKeys(ctx context.Context, session, keys string) error {
	if _, err := t.run(ctx, "send-keys", "-t", session, "-l", keys); err != nil {
		return fmt.Errorf("tmux send-keys -t %s: %w", session, err)
	}
	if _, err := t.run(ctx, "send-keys", "-t", session, "Enter"); err != nil {
		return fmt.Errorf("tmux send-keys -t %s Enter: %w", session, err)
	}
	return nil
}

// SwitchClient moves every attached client to the session. Returns false
// when no client is attached.
func (t *Tmux) SwitchClient(ctx context.Context, session string) (bool, error) {
	out, err := t.run(ctx, "list-clients", "-F", "#{client_tty}")
	if err != nil {
		return false, fmt.Errorf("tmux list-clients: %w", err)
	}

	var clients []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			clients = append(clients, line)
		}
	}
	if len(clients) == 0 {
		return false, nil
	}

	for _, client := range clients {
		if _, err := t.run(ctx, "switch-client", "-c", client, "-t", session); err != nil {
			return false, fmt.Errorf("tmux switch-client -t %s: %w", session, err)
		}
	}
	return true, nil
}

// AttachedSession returns the session of the attached client. tmux errors
// when no client is attached; that is reported as empty, not a failure.
func (t *Tmux) AttachedSession(ctx context.Context) (string, error) {
	out, err := t.run(ctx, "display-message", "-p", "#{client_session}")
	if err != nil {
		return "", nil
	}
	return strings.TrimSpace(out), nil
}

// run executes a tmux command and returns its stdout.
func (t *Tmux) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "tmux", args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}

// isNoServer reports whether err is tmux's "no server running" exit,
// which means zero sessions rather than an unreachable server.
func isNoServer(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no server running") ||
		strings.Contains(msg, "error connecting to") && strings.Contains(msg, "No such file")
}

// isMissingSession reports whether err is tmux's "can't find session" exit.
func isMissingSession(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "can't find session") ||
		strings.Contains(msg, "session not found")
}
