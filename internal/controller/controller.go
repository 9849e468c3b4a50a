// Package controller executes user-initiated session operations, keeping
// the external multiplexer and the registry consistent with each other.
//
// The controller never classifies: the only status change it is allowed
// to make is the Ready -> Seen acknowledgment.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cactusdev/cactus/internal/model"
	"github.com/cactusdev/cactus/internal/mux"
	"github.com/cactusdev/cactus/internal/registry"
)

// Typed failures surfaced to the presentation layer.
var (
	ErrDuplicateName = errors.New("session name already in use")
	ErrNotFound      = errors.New("session not found")
)

// Controller wires user commands to tmux and the registry.
type Controller struct {
	Mux      mux.Multiplexer
	Registry *registry.Registry

	// Prefix is prepended to user-facing names to form session IDs.
	Prefix string

	// AgentCommand is typed into a freshly created session's pane.
	// Empty disables the launch.
	AgentCommand string

	// CallTimeout bounds each external call.
	CallTimeout time.Duration

	Logger *slog.Logger // nil falls back to slog.Default()

	// now is swappable for tests.
	now func() time.Time
}

// CreateResult reports how a created session can be reached.
type CreateResult struct {
	ID       string
	Switched bool // true when attached clients were moved to the session
}

// Create makes a new tracked session named after name (or a random name
// when empty), rooted at dir. The registry entry is written immediately so
// the UI reflects the session without waiting for the next poll.
func (c *Controller) Create(ctx context.Context, name, dir string) (CreateResult, error) {
	if name == "" {
		name = model.RandomName()
	}
	id := c.Prefix + name

	if _, exists := c.Registry.Get(id); exists {
		return CreateResult{}, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	callCtx, cancel := c.callContext(ctx)
	err := c.Mux.CreateSession(callCtx, id, dir)
	cancel()
	if err != nil {
		if errors.Is(err, mux.ErrAlreadyExists) {
			return CreateResult{}, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		// Nothing was created externally; no registry entry may remain.
		return CreateResult{}, fmt.Errorf("create session %s: %w", id, err)
	}

	now := c.nowTime()
	c.Registry.Upsert(model.Session{
		ID:            id,
		DisplayName:   name,
		CreatedAt:     now,
		Status:        model.StatusWorking,
		LastChangedAt: now,
	})

	if c.AgentCommand != "" {
		callCtx, cancel := c.callContext(ctx)
		err := c.Mux.SendKeys(callCtx, id, c.AgentCommand)
		cancel()
		if err != nil {
			// The session exists and is tracked; a failed launch is a
			// warning, not a rollback.
			c.logger().Warn("agent launch failed", "session", id, "err", err)
		}
	}

	switched := c.trySwitch(ctx, id)
	return CreateResult{ID: id, Switched: switched}, nil
}

// Rename updates the display name only; the tmux session name (and thus
// the session ID) is deliberately left alone.
func (c *Controller) Rename(id, displayName string) error {
	if !c.Registry.Rename(id, displayName) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Delete kills the external session and removes the registry entry. The
// entry is removed even when the external kill fails (delete is
// idempotent; a genuinely alive session is re-discovered on the next
// poll), and the mismatch is only worth a warning.
func (c *Controller) Delete(ctx context.Context, id string) error {
	c.switchAwayFrom(ctx, id)

	callCtx, cancel := c.callContext(ctx)
	err := c.Mux.KillSession(callCtx, id)
	cancel()
	if err != nil {
		c.logger().Warn("external removal failed", "session", id, "err", err)
	}
	c.Registry.Remove(id)
	return nil
}

// switchAwayFrom moves attached clients to another tracked session when
// they are viewing the one about to be killed, so the kill does not
// detach the user.
func (c *Controller) switchAwayFrom(ctx context.Context, id string) {
	callCtx, cancel := c.callContext(ctx)
	attached, err := c.Mux.AttachedSession(callCtx)
	cancel()
	if err != nil || attached != id {
		return
	}
	for _, s := range c.Registry.List() {
		if s.ID != id {
			c.trySwitch(ctx, s.ID)
			return
		}
	}
}

// Acknowledge marks a Ready session as Seen. Acknowledging a session that
// is not Ready (or no longer exists) is silently ignored — the user may
// have raced a transition.
func (c *Controller) Acknowledge(id string) {
	c.Registry.Acknowledge(id)
}

// Switch moves attached tmux clients to the session and acknowledges it.
// Returns false when no client is attached; the caller should tell the
// user to attach manually.
func (c *Controller) Switch(ctx context.Context, id string) (bool, error) {
	if _, ok := c.Registry.Get(id); !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	switched := c.trySwitch(ctx, id)
	if switched {
		c.Registry.Acknowledge(id)
	}
	return switched, nil
}

func (c *Controller) trySwitch(ctx context.Context, id string) bool {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	switched, err := c.Mux.SwitchClient(callCtx, id)
	if err != nil {
		c.logger().Warn("switch-client failed", "session", id, "err", err)
		return false
	}
	return switched
}

func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.CallTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func (c *Controller) nowTime() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
