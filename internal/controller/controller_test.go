package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cactusdev/cactus/internal/model"
	"github.com/cactusdev/cactus/internal/mux"
	"github.com/cactusdev/cactus/internal/registry"
)

type stubMux struct {
	created   []string
	killed    []string
	sent      []string
	switched  []string
	createErr error
	killErr   error
	sendErr   error
	switchOK  bool
	switchErr error
	attached  string
}

func (s *stubMux) Name() string                                  { return "stub" }
func (s *stubMux) ListSessions(context.Context) ([]string, error) { return nil, nil }
func (s *stubMux) CapturePane(context.Context, string) (string, error) {
	return "", nil
}

func (s *stubMux) CreateSession(_ context.Context, session, _ string) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, session)
	return nil
}

func (s *stubMux) KillSession(_ context.Context, session string) error {
	if s.killErr != nil {
		return s.killErr
	}
	s.killed = append(s.killed, session)
	return nil
}

func (s *stubMux) RenameSession(context.Context, string, string) error { return nil }

func (s *stubMux) SendKeys(_ context.Context, session, _ string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, session)
	return nil
}

func (s *stubMux) SwitchClient(_ context.Context, session string) (bool, error) {
	if s.switchErr != nil {
		return false, s.switchErr
	}
	if s.switchOK {
		s.switched = append(s.switched, session)
	}
	return s.switchOK, nil
}

func (s *stubMux) AttachedSession(context.Context) (string, error) {
	return s.attached, nil
}

func newTestController(m *stubMux) (*Controller, *registry.Registry) {
	reg := registry.New()
	c := &Controller{
		Mux:          m,
		Registry:     reg,
		Prefix:       "cactus-",
		AgentCommand: "claude",
		now:          func() time.Time { return time.Unix(1000, 0) },
	}
	return c, reg
}

func TestCreateRegistersImmediately(t *testing.T) {
	m := &stubMux{}
	c, reg := newTestController(m)

	res, err := c.Create(context.Background(), "foo", "/tmp")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.ID != "cactus-foo" {
		t.Errorf("ID = %q, want cactus-foo", res.ID)
	}

	s, ok := reg.Get("cactus-foo")
	if !ok {
		t.Fatal("session not in registry after create")
	}
	if s.DisplayName != "foo" {
		t.Errorf("DisplayName = %q, want foo", s.DisplayName)
	}
	if s.Status != model.StatusWorking {
		t.Errorf("Status = %v, want Working", s.Status)
	}
	if len(m.sent) != 1 || m.sent[0] != "cactus-foo" {
		t.Errorf("agent command sent to %v, want [cactus-foo]", m.sent)
	}
}

func TestCreateRandomNameWhenEmpty(t *testing.T) {
	m := &stubMux{}
	c, reg := newTestController(m)

	res, err := c.Create(context.Background(), "", "/tmp")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	s, ok := reg.Get(res.ID)
	if !ok {
		t.Fatal("session not registered")
	}
	if s.DisplayName == "" {
		t.Error("expected generated display name")
	}
}

func TestCreateDuplicateName(t *testing.T) {
	m := &stubMux{}
	c, _ := newTestController(m)

	if _, err := c.Create(context.Background(), "foo", "/tmp"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := c.Create(context.Background(), "foo", "/tmp")
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("err = %v, want ErrDuplicateName", err)
	}
	if len(m.created) != 1 {
		t.Errorf("external create called %d times, want 1", len(m.created))
	}
}

func TestCreateExternalCollision(t *testing.T) {
	m := &stubMux{createErr: mux.ErrAlreadyExists}
	c, reg := newTestController(m)

	_, err := c.Create(context.Background(), "foo", "/tmp")
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("err = %v, want ErrDuplicateName", err)
	}
	if _, ok := reg.Get("cactus-foo"); ok {
		t.Error("registry entry left behind after failed create")
	}
}

func TestCreateExternalFailureLeavesNoEntry(t *testing.T) {
	m := &stubMux{createErr: errors.New("tmux exploded")}
	c, reg := newTestController(m)

	if _, err := c.Create(context.Background(), "foo", "/tmp"); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := reg.Get("cactus-foo"); ok {
		t.Error("registry entry left behind after failed create")
	}
}

func TestCreateAgentLaunchFailureIsNotFatal(t *testing.T) {
	m := &stubMux{sendErr: errors.New("pane gone")}
	c, reg := newTestController(m)

	if _, err := c.Create(context.Background(), "foo", "/tmp"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := reg.Get("cactus-foo"); !ok {
		t.Error("session should remain tracked despite launch failure")
	}
}

func TestRename(t *testing.T) {
	m := &stubMux{}
	c, reg := newTestController(m)
	_, _ = c.Create(context.Background(), "foo", "/tmp")

	if err := c.Rename("cactus-foo", "bar"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	s, _ := reg.Get("cactus-foo")
	if s.DisplayName != "bar" {
		t.Errorf("DisplayName = %q, want bar", s.DisplayName)
	}

	err := c.Rename("cactus-missing", "x")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	m := &stubMux{}
	c, reg := newTestController(m)
	_, _ = c.Create(context.Background(), "foo", "/tmp")

	if err := c.Delete(context.Background(), "cactus-foo"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := reg.Get("cactus-foo"); ok {
		t.Error("entry still present after delete")
	}
	if len(m.killed) != 1 || m.killed[0] != "cactus-foo" {
		t.Errorf("killed = %v, want [cactus-foo]", m.killed)
	}
}

func TestDeleteExternallyGone(t *testing.T) {
	m := &stubMux{}
	c, reg := newTestController(m)
	_, _ = c.Create(context.Background(), "foo", "/tmp")
	m.killErr = mux.ErrNotFound

	if err := c.Delete(context.Background(), "cactus-foo"); err != nil {
		t.Fatalf("Delete should tolerate missing external session: %v", err)
	}
	if _, ok := reg.Get("cactus-foo"); ok {
		t.Error("entry still present after delete")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	m := &stubMux{killErr: mux.ErrNotFound}
	c, _ := newTestController(m)

	if err := c.Delete(context.Background(), "cactus-ghost"); err != nil {
		t.Fatalf("deleting an unknown session should be a no-op: %v", err)
	}
}

func TestDeleteExternalFailureStillRemovesEntry(t *testing.T) {
	m := &stubMux{}
	c, reg := newTestController(m)
	_, _ = c.Create(context.Background(), "foo", "/tmp")
	m.killErr = errors.New("tmux exploded")

	if err := c.Delete(context.Background(), "cactus-foo"); err != nil {
		t.Fatalf("Delete should warn, not fail, on a failed kill: %v", err)
	}
	if _, ok := reg.Get("cactus-foo"); ok {
		t.Error("entry should be removed despite the failed kill")
	}
}

func TestDeleteSwitchesAwayFromAttachedSession(t *testing.T) {
	m := &stubMux{switchOK: true}
	c, reg := newTestController(m)
	_, _ = c.Create(context.Background(), "foo", "/tmp")
	_, _ = c.Create(context.Background(), "bar", "/tmp")
	m.switched = nil
	m.attached = "cactus-foo"

	if err := c.Delete(context.Background(), "cactus-foo"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// The client was viewing the doomed session: it moves to the other
	// tracked one before the kill.
	if len(m.switched) != 1 || m.switched[0] != "cactus-bar" {
		t.Errorf("switched = %v, want [cactus-bar]", m.switched)
	}
	if len(m.killed) != 1 || m.killed[0] != "cactus-foo" {
		t.Errorf("killed = %v, want [cactus-foo]", m.killed)
	}
	if _, ok := reg.Get("cactus-foo"); ok {
		t.Error("entry still present after delete")
	}
}

func TestDeleteDoesNotSwitchWhenAttachedElsewhere(t *testing.T) {
	m := &stubMux{switchOK: true}
	c, _ := newTestController(m)
	_, _ = c.Create(context.Background(), "foo", "/tmp")
	_, _ = c.Create(context.Background(), "bar", "/tmp")
	m.switched = nil
	m.attached = "cactus-bar"

	if err := c.Delete(context.Background(), "cactus-foo"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(m.switched) != 0 {
		t.Errorf("switched = %v, want none", m.switched)
	}
}

func TestAcknowledgeOnlyWhenReady(t *testing.T) {
	m := &stubMux{}
	c, reg := newTestController(m)
	_, _ = c.Create(context.Background(), "foo", "/tmp")

	c.Acknowledge("cactus-foo") // Working: ignored
	s, _ := reg.Get("cactus-foo")
	if s.Status != model.StatusWorking {
		t.Errorf("Status = %v, want Working", s.Status)
	}

	reg.Transition("cactus-foo", model.StatusReady, "fp", false, time.Unix(1010, 0))
	c.Acknowledge("cactus-foo")
	s, _ = reg.Get("cactus-foo")
	if s.Status != model.StatusSeen {
		t.Errorf("Status = %v, want Seen", s.Status)
	}

	c.Acknowledge("cactus-missing") // silent no-op
}

func TestSwitchAcknowledges(t *testing.T) {
	m := &stubMux{switchOK: true}
	c, reg := newTestController(m)
	_, _ = c.Create(context.Background(), "foo", "/tmp")
	reg.Transition("cactus-foo", model.StatusReady, "fp", false, time.Unix(1010, 0))

	switched, err := c.Switch(context.Background(), "cactus-foo")
	if err != nil {
		t.Fatalf("Switch: %v", err)
	}
	if !switched {
		t.Fatal("expected switched=true")
	}
	s, _ := reg.Get("cactus-foo")
	if s.Status != model.StatusSeen {
		t.Errorf("Status = %v, want Seen after switch", s.Status)
	}
}

func TestSwitchNoClient(t *testing.T) {
	m := &stubMux{switchOK: false}
	c, reg := newTestController(m)
	_, _ = c.Create(context.Background(), "foo", "/tmp")
	reg.Transition("cactus-foo", model.StatusReady, "fp", false, time.Unix(1010, 0))

	switched, err := c.Switch(context.Background(), "cactus-foo")
	if err != nil {
		t.Fatalf("Switch: %v", err)
	}
	if switched {
		t.Fatal("expected switched=false without attached clients")
	}
	s, _ := reg.Get("cactus-foo")
	if s.Status != model.StatusReady {
		t.Errorf("Status = %v, want Ready (no ack without switch)", s.Status)
	}
}

func TestSwitchUnknownSession(t *testing.T) {
	m := &stubMux{switchOK: true}
	c, _ := newTestController(m)

	_, err := c.Switch(context.Background(), "cactus-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
