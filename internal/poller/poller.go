// Package poller drives the periodic poll cycle: list sessions, reconcile
// the registry against the external world, capture panes, classify, and
// apply transitions.
package poller

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cactusdev/cactus/internal/classify"
	"github.com/cactusdev/cactus/internal/events"
	"github.com/cactusdev/cactus/internal/model"
	"github.com/cactusdev/cactus/internal/mux"
	telem "github.com/cactusdev/cactus/internal/otel"
	"github.com/cactusdev/cactus/internal/registry"
)

var tracer = otel.Tracer("cactus/poller")

// missingCyclesBeforeRemove is how many consecutive cycles a session must
// be absent from the external list before its registry entry is removed.
// The debounce protects against a single flaky list call deleting state.
const missingCyclesBeforeRemove = 2

// Poller owns the background poll loop. Configure the exported fields,
// then call Run (or Cycle for a single synchronous pass).
type Poller struct {
	Mux        mux.Multiplexer
	Registry   *registry.Registry
	Classifier *classify.Classifier

	// Prefix scopes tracking to sessions carrying this name prefix.
	// Empty tracks everything.
	Prefix string

	// Exclude, when set, drops matching session names from tracking even
	// when they carry the prefix.
	Exclude func(name string) bool

	// Interval between cycles. CaptureTimeout bounds each external call
	// and must stay below Interval so a hung tmux server cannot stall
	// the loop past its next tick.
	Interval       time.Duration
	CaptureTimeout time.Duration

	// Parallel bounds concurrent pane captures within one cycle.
	Parallel int

	// Hints holds agent hook events; a fresh attention hint forces
	// NeedsInput ahead of the heuristics. Nil disables.
	Hints *events.Store

	Metrics *telem.Metrics // nil-safe
	Logger  *slog.Logger   // nil falls back to slog.Default()

	// now is swappable for tests.
	now func() time.Time

	mu          sync.Mutex
	missing     map[string]int    // session -> consecutive absent cycles
	lastApplied map[string]uint64 // session -> cycle seq of last applied result
	cycleSeq    uint64
}

// Run polls until ctx is cancelled. The first cycle starts immediately.
// The in-flight cycle finishes (every external call is bounded by
// CaptureTimeout) before Run returns.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger().Info("poller started", "interval", interval, "prefix", p.Prefix)

	p.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger().Info("poller stopped")
			return
		case <-ticker.C:
			p.Cycle(ctx)
		}
	}
}

// Cycle runs one full poll pass. A list failure skips the whole cycle
// (retried on the next tick); per-session capture failures never abort
// the rest of the cycle.
func (p *Poller) Cycle(ctx context.Context) {
	p.mu.Lock()
	if p.missing == nil {
		p.missing = make(map[string]int)
		p.lastApplied = make(map[string]uint64)
	}
	p.cycleSeq++
	seq := p.cycleSeq
	p.mu.Unlock()

	ctx, span := tracer.Start(ctx, "poll_cycle",
		trace.WithAttributes(attribute.Int64("cycle.seq", int64(seq))))
	defer span.End()

	now := p.nowTime()

	listCtx, cancel := context.WithTimeout(ctx, p.captureTimeout())
	names, err := p.Mux.ListSessions(listCtx)
	cancel()
	if err != nil {
		// Transient cycle failure: keep all state, retry next interval.
		p.logger().Warn("session listing failed, skipping cycle", "err", err)
		p.Metrics.RecordCycle(ctx, "skipped")
		span.SetAttributes(attribute.String("cycle.outcome", "skipped"))
		return
	}

	external := make(map[string]bool, len(names))
	for _, name := range names {
		if p.Prefix != "" && !strings.HasPrefix(name, p.Prefix) {
			continue
		}
		if p.Exclude != nil && p.Exclude(name) {
			continue
		}
		external[name] = true
	}

	p.reconcile(ctx, external, now)

	// Capture matched sessions with bounded parallelism. The snapshot of
	// known sessions is taken once; sessions added mid-cycle are picked
	// up next tick.
	known := p.Registry.List()
	parallel := p.Parallel
	if parallel < 1 {
		parallel = 1
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, parallel)
	for _, s := range known {
		if !external[s.ID] {
			continue
		}
		wg.Add(1)
		go func(s model.Session) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			p.pollSession(ctx, s, seq, now)
		}(s)
	}
	wg.Wait()

	p.Metrics.RecordCycle(ctx, "ok")
	span.SetAttributes(
		attribute.String("cycle.outcome", "ok"),
		attribute.Int("sessions.total", len(external)),
	)
}

// reconcile registers externally discovered sessions and removes entries
// whose backing session has been gone for two confirmed cycles.
func (p *Poller) reconcile(ctx context.Context, external map[string]bool, now time.Time) {
	known := p.Registry.List()
	knownIDs := make(map[string]bool, len(known))
	for _, s := range known {
		knownIDs[s.ID] = true
	}

	for name := range external {
		if knownIDs[name] {
			p.mu.Lock()
			delete(p.missing, name)
			p.mu.Unlock()
			continue
		}
		p.Registry.Upsert(model.Session{
			ID:            name,
			DisplayName:   strings.TrimPrefix(name, p.Prefix),
			CreatedAt:     now,
			Status:        model.StatusWorking,
			LastChangedAt: now,
		})
		p.Metrics.RecordSessionAdded(ctx)
		p.logger().Info("tracking new session", "session", name)
	}

	for _, s := range known {
		if external[s.ID] {
			continue
		}
		p.mu.Lock()
		p.missing[s.ID]++
		gone := p.missing[s.ID] >= missingCyclesBeforeRemove
		if gone {
			delete(p.missing, s.ID)
			delete(p.lastApplied, s.ID)
		}
		p.mu.Unlock()

		if gone {
			p.Registry.Remove(s.ID)
			p.Metrics.RecordSessionRemoved(ctx)
			p.logger().Info("session gone, removed", "session", s.ID)
		}
	}
}

// pollSession captures one pane, classifies it, and applies the result
// under the cycle sequence guard.
func (p *Poller) pollSession(ctx context.Context, s model.Session, seq uint64, now time.Time) {
	capCtx, cancel := context.WithTimeout(ctx, p.captureTimeout())
	text, err := p.Mux.CapturePane(capCtx, s.ID)
	cancel()
	if err != nil {
		// No data this cycle: keep the prior status, count the failure
		// so repeated ones surface as staleness.
		p.Registry.RecordCaptureFailure(s.ID)
		p.Metrics.RecordCaptureFailure(ctx)
		p.logger().Warn("pane capture failed", "session", s.ID, "err", err)
		return
	}

	fingerprint := p.Classifier.Fingerprint(text)
	changed := fingerprint != s.LastFingerprint

	var quiescent time.Duration
	if !changed {
		quiescent = now.Sub(s.LastChangedAt)
	}

	status := p.Classifier.Classify(s.Status, changed, quiescent, text)

	// Agent hooks know before the screen does; a live attention hint
	// overrides the heuristics.
	if p.Hints != nil {
		if hint, ok := p.Hints.Lookup(s.ID, now); ok && events.IsAttentionState(hint.State) {
			status = model.StatusNeedsInput
		}
	}

	// Discard out-of-order results: a stale cycle never overwrites a
	// newer one when captures overlap.
	p.mu.Lock()
	if seq < p.lastApplied[s.ID] {
		p.mu.Unlock()
		return
	}
	p.lastApplied[s.ID] = seq
	p.mu.Unlock()

	p.Registry.Transition(s.ID, status, fingerprint, changed, now)
	if status != s.Status {
		p.Metrics.RecordTransition(ctx, status.String())
		p.logger().Debug("status transition",
			"session", s.ID, "from", s.Status.String(), "to", status.String())
	}
}

func (p *Poller) captureTimeout() time.Duration {
	if p.CaptureTimeout > 0 {
		return p.CaptureTimeout
	}
	// Default to half the interval so a hung call never spans ticks.
	if p.Interval > 0 {
		return p.Interval / 2
	}
	return time.Second
}

func (p *Poller) nowTime() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

func (p *Poller) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
