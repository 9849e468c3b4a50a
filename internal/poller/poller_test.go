package poller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cactusdev/cactus/internal/classify"
	"github.com/cactusdev/cactus/internal/events"
	"github.com/cactusdev/cactus/internal/model"
	"github.com/cactusdev/cactus/internal/mux"
	"github.com/cactusdev/cactus/internal/registry"
)

// fakeMux implements mux.Multiplexer with scripted sessions and captures.
type fakeMux struct {
	mu         sync.Mutex
	sessions   []string
	listErr    error
	captures   map[string]string
	captureErr map[string]error

	// captureHook runs inside CapturePane, letting tests interleave
	// registry mutations with an in-flight poll.
	captureHook func(session string)
}

func (f *fakeMux) Name() string { return "fake" }

func (f *fakeMux) ListSessions(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]string, len(f.sessions))
	copy(out, f.sessions)
	return out, nil
}

func (f *fakeMux) CapturePane(_ context.Context, session string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.captureHook != nil {
		f.captureHook(session)
	}
	if err := f.captureErr[session]; err != nil {
		return "", err
	}
	text, ok := f.captures[session]
	if !ok {
		return "", fmt.Errorf("%w: %s", mux.ErrCaptureFailed, session)
	}
	return text, nil
}

func (f *fakeMux) CreateSession(context.Context, string, string) error { return nil }
func (f *fakeMux) KillSession(context.Context, string) error           { return nil }
func (f *fakeMux) RenameSession(context.Context, string, string) error { return nil }
func (f *fakeMux) SendKeys(context.Context, string, string) error      { return nil }
func (f *fakeMux) SwitchClient(context.Context, string) (bool, error)  { return true, nil }
func (f *fakeMux) AttachedSession(context.Context) (string, error)     { return "", nil }

func (f *fakeMux) set(sessions []string, captures map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = sessions
	f.captures = captures
}

// fakeClock hands out a controllable now.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestPoller(m *fakeMux, clock *fakeClock) (*Poller, *registry.Registry) {
	reg := registry.New()
	p := &Poller{
		Mux:            m,
		Registry:       reg,
		Classifier:     classify.New(nil, 4*time.Second, 8),
		Prefix:         "cactus-",
		Interval:       time.Second,
		CaptureTimeout: 500 * time.Millisecond,
		Parallel:       4,
		now:            clock.now,
	}
	return p, reg
}

func TestCycleDiscoversSessions(t *testing.T) {
	m := &fakeMux{}
	m.set([]string{"cactus-fox", "unrelated"}, map[string]string{
		"cactus-fox": "starting up",
	})
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	p, reg := newTestPoller(m, clock)

	p.Cycle(context.Background())

	list := reg.List()
	if len(list) != 1 {
		t.Fatalf("registry has %d sessions, want 1 (prefix-filtered)", len(list))
	}
	s := list[0]
	if s.ID != "cactus-fox" || s.DisplayName != "fox" {
		t.Errorf("discovered session: %+v", s)
	}
	if s.Status != model.StatusWorking {
		t.Errorf("new session status = %v, want working", s.Status)
	}
}

func TestCycleTwoCycleRemovalDebounce(t *testing.T) {
	m := &fakeMux{}
	m.set([]string{"cactus-fox"}, map[string]string{"cactus-fox": "hi"})
	clock := &fakeClock{t: time.Now()}
	p, reg := newTestPoller(m, clock)

	p.Cycle(context.Background())
	if _, ok := reg.Get("cactus-fox"); !ok {
		t.Fatal("session not registered")
	}

	// Session vanishes externally: one absent cycle is not enough.
	m.set(nil, nil)
	p.Cycle(context.Background())
	if _, ok := reg.Get("cactus-fox"); !ok {
		t.Fatal("session removed after a single absent cycle")
	}

	p.Cycle(context.Background())
	if _, ok := reg.Get("cactus-fox"); ok {
		t.Fatal("session still present after two absent cycles")
	}
}

func TestCycleAbsenceCounterResets(t *testing.T) {
	m := &fakeMux{}
	m.set([]string{"cactus-fox"}, map[string]string{"cactus-fox": "hi"})
	clock := &fakeClock{t: time.Now()}
	p, reg := newTestPoller(m, clock)

	p.Cycle(context.Background())

	// Absent once, then back (transient listing flake).
	m.set(nil, nil)
	p.Cycle(context.Background())
	m.set([]string{"cactus-fox"}, map[string]string{"cactus-fox": "hi"})
	p.Cycle(context.Background())

	// Absent once more: counter must have been reset, so no removal.
	m.set(nil, nil)
	p.Cycle(context.Background())
	if _, ok := reg.Get("cactus-fox"); !ok {
		t.Fatal("absence counter was not reset by reappearance")
	}
}

func TestCycleReadyAfterDebounce(t *testing.T) {
	m := &fakeMux{}
	m.set([]string{"cactus-fox"}, map[string]string{"cactus-fox": "$ done"})
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	p, reg := newTestPoller(m, clock)

	// Poll 1: discovery + first capture (fingerprint change -> Working).
	p.Cycle(context.Background())

	// Polls 2-5 at 1s intervals with identical content and a 4s debounce:
	// Working until quiescence reaches 4s on the fifth poll.
	for i := 2; i <= 5; i++ {
		clock.advance(time.Second)
		p.Cycle(context.Background())
		s, _ := reg.Get("cactus-fox")
		if i < 5 && s.Status != model.StatusWorking {
			t.Fatalf("poll %d: status = %v, want working", i, s.Status)
		}
		if i == 5 && s.Status != model.StatusReady {
			t.Fatalf("poll %d: status = %v, want ready", i, s.Status)
		}
	}

	// Further quiet polls stay Ready — no flapping.
	clock.advance(time.Second)
	p.Cycle(context.Background())
	if s, _ := reg.Get("cactus-fox"); s.Status != model.StatusReady {
		t.Errorf("ready session flapped to %v", s.Status)
	}
}

func TestCycleChangeRevertsSeenToWorking(t *testing.T) {
	m := &fakeMux{}
	m.set([]string{"cactus-fox"}, map[string]string{"cactus-fox": "$ done"})
	clock := &fakeClock{t: time.Now()}
	p, reg := newTestPoller(m, clock)

	p.Cycle(context.Background())
	for i := 0; i < 5; i++ {
		clock.advance(time.Second)
		p.Cycle(context.Background())
	}
	if !reg.Acknowledge("cactus-fox") {
		s, _ := reg.Get("cactus-fox")
		t.Fatalf("acknowledge failed, status = %v", s.Status)
	}

	// New output: Seen reverts to Working and acknowledgment clears.
	m.set([]string{"cactus-fox"}, map[string]string{"cactus-fox": "$ done\nnew output"})
	clock.advance(time.Second)
	p.Cycle(context.Background())

	s, _ := reg.Get("cactus-fox")
	if s.Status != model.StatusWorking {
		t.Errorf("status after change = %v, want working", s.Status)
	}
	if s.Acknowledged {
		t.Error("acknowledged flag survived an output change")
	}
}

func TestCycleAckDuringCaptureSticks(t *testing.T) {
	m := &fakeMux{}
	m.set([]string{"cactus-fox"}, map[string]string{"cactus-fox": "$ done"})
	clock := &fakeClock{t: time.Now()}
	p, reg := newTestPoller(m, clock)

	p.Cycle(context.Background())
	for i := 0; i < 5; i++ {
		clock.advance(time.Second)
		p.Cycle(context.Background())
	}
	if s, _ := reg.Get("cactus-fox"); s.Status != model.StatusReady {
		t.Fatalf("setup: status = %v, want ready", s.Status)
	}

	// The user acknowledges while the next capture is in flight. That
	// cycle's result was classified against the pre-ack Ready snapshot;
	// with unchanged output it must not pull the session back to Ready.
	m.captureHook = func(session string) {
		if !reg.Acknowledge(session) {
			t.Errorf("acknowledge during capture failed")
		}
		m.captureHook = nil
	}
	clock.advance(time.Second)
	p.Cycle(context.Background())

	s, _ := reg.Get("cactus-fox")
	if s.Status != model.StatusSeen || !s.Acknowledged {
		t.Errorf("status after ack during cycle = %v (acknowledged=%v), want seen", s.Status, s.Acknowledged)
	}
}

func TestCyclePromptDetection(t *testing.T) {
	m := &fakeMux{}
	m.set([]string{"cactus-fox"}, map[string]string{
		"cactus-fox": "working...\nContinue? (y/n)",
	})
	clock := &fakeClock{t: time.Now()}
	p, reg := newTestPoller(m, clock)

	p.Cycle(context.Background())
	if s, _ := reg.Get("cactus-fox"); s.Status != model.StatusNeedsInput {
		t.Errorf("status = %v, want needs_input", s.Status)
	}
}

func TestCycleCaptureFailureRetainsStatus(t *testing.T) {
	m := &fakeMux{}
	m.set([]string{"cactus-fox"}, map[string]string{"cactus-fox": "$ done"})
	clock := &fakeClock{t: time.Now()}
	p, reg := newTestPoller(m, clock)

	p.Cycle(context.Background())
	for i := 0; i < 5; i++ {
		clock.advance(time.Second)
		p.Cycle(context.Background())
	}
	before, _ := reg.Get("cactus-fox")
	if before.Status != model.StatusReady {
		t.Fatalf("setup: status = %v, want ready", before.Status)
	}

	// Captures start failing: status retained, failures counted.
	m.mu.Lock()
	m.captureErr = map[string]error{
		"cactus-fox": fmt.Errorf("%w: timeout", mux.ErrCaptureFailed),
	}
	m.mu.Unlock()

	for i := 0; i < 3; i++ {
		clock.advance(time.Second)
		p.Cycle(context.Background())
	}
	after, _ := reg.Get("cactus-fox")
	if after.Status != model.StatusReady {
		t.Errorf("status after capture failures = %v, want ready retained", after.Status)
	}
	if !after.View().Stale {
		t.Error("repeated capture failures did not surface staleness")
	}
}

func TestCycleListFailureSkipsCycle(t *testing.T) {
	m := &fakeMux{}
	m.set([]string{"cactus-fox"}, map[string]string{"cactus-fox": "hi"})
	clock := &fakeClock{t: time.Now()}
	p, reg := newTestPoller(m, clock)

	p.Cycle(context.Background())

	// Listing fails twice in a row; nothing may be removed.
	m.mu.Lock()
	m.listErr = errors.New("tmux unreachable")
	m.mu.Unlock()
	p.Cycle(context.Background())
	p.Cycle(context.Background())

	if _, ok := reg.Get("cactus-fox"); !ok {
		t.Fatal("list failure caused session removal")
	}
}

func TestCycleAttentionHintForcesNeedsInput(t *testing.T) {
	m := &fakeMux{}
	m.set([]string{"cactus-fox"}, map[string]string{"cactus-fox": "chugging along"})
	clock := &fakeClock{t: time.Now()}
	p, reg := newTestPoller(m, clock)
	p.Hints = events.NewStore(3 * time.Minute)

	p.Hints.Upsert(events.Event{
		Assistant: "claude",
		State:     events.StateWaitingApproval,
		Session:   "cactus-fox",
		TS:        clock.now(),
	})

	p.Cycle(context.Background())
	if s, _ := reg.Get("cactus-fox"); s.Status != model.StatusNeedsInput {
		t.Errorf("status = %v, want needs_input from hook hint", s.Status)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	m := &fakeMux{}
	m.set(nil, nil)
	clock := &fakeClock{t: time.Now()}
	p, _ := newTestPoller(m, clock)
	p.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}

func TestCycleExcludedSessionsNotTracked(t *testing.T) {
	m := &fakeMux{}
	m.set([]string{"cactus-fox", "cactus-scratch-1"}, map[string]string{
		"cactus-fox":       "hi",
		"cactus-scratch-1": "hi",
	})
	clock := &fakeClock{t: time.Now()}
	p, reg := newTestPoller(m, clock)
	p.Exclude = func(name string) bool {
		return strings.HasPrefix(name, "cactus-scratch-")
	}

	p.Cycle(context.Background())

	if _, ok := reg.Get("cactus-fox"); !ok {
		t.Error("cactus-fox should be tracked")
	}
	if _, ok := reg.Get("cactus-scratch-1"); ok {
		t.Error("excluded session should not be tracked")
	}
}
