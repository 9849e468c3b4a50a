// Package registry is the in-memory table of tracked sessions: the single
// source of truth shared by the poller, the controller, and the dashboard.
//
// Mutations are serialized behind a single lock; reads hand out copies so
// a reader never observes a partially-updated session.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/cactusdev/cactus/internal/model"
)

// Registry holds all tracked sessions keyed by ID.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{sessions: make(map[string]*model.Session)}
}

// Upsert inserts or replaces the session by ID.
func (r *Registry) Upsert(s model.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dup := s
	r.sessions[s.ID] = &dup
}

// Remove deletes the session. Removing an absent ID is a no-op: removal
// can race between the poller's disappearance path and an explicit delete.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Get returns a snapshot copy of the session.
func (r *Registry) Get(id string) (model.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return model.Session{}, false
	}
	return *s, true
}

// List returns point-in-time copies of all sessions, ordered by CreatedAt
// then ID so the presentation order is deterministic.
func (r *Registry) List() []model.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Views returns the presentation projection of List.
func (r *Registry) Views() []model.View {
	sessions := r.List()
	views := make([]model.View, len(sessions))
	for i, s := range sessions {
		views[i] = s.View()
	}
	return views
}

// Transition applies a classifier result to the session: the current
// status shifts into PreviousStatus, and acknowledgment is cleared when
// the session leaves Ready/Seen because output changed. A transition for
// an unknown ID is a silent no-op (the session was removed concurrently).
//
// fingerprint and changed come from the same poll cycle that produced
// newStatus; when the fingerprint changed, LastChangedAt advances to now.
func (r *Registry) Transition(id string, newStatus model.Status, fingerprint string, changed bool, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return
	}

	// An acknowledgment may land while a capture is in flight: the poll
	// result was then computed against the pre-ack snapshot and would
	// report Ready for a session that is now Seen. Seen is only left on
	// an actual output change (or a fresh input prompt), so an unchanged
	// Ready result must not undo the acknowledgment.
	if !changed && s.Status == model.StatusSeen && newStatus == model.StatusReady {
		s.FailedPolls = 0
		return
	}

	if changed {
		s.LastFingerprint = fingerprint
		if now.After(s.LastChangedAt) {
			s.LastChangedAt = now
		}
		// Output moved on: any prior acknowledgment is void.
		s.Acknowledged = false
	}

	if newStatus != s.Status {
		s.PreviousStatus = s.Status
		s.Status = newStatus
	}
	s.FailedPolls = 0
}

// RecordCaptureFailure counts a failed capture for staleness surfacing.
// The session's status is left untouched: no data is not "working".
func (r *Registry) RecordCaptureFailure(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.FailedPolls++
	}
}

// Acknowledge marks a Ready session as Seen. Returns false without
// changing anything when the session is absent or not Ready — the user
// may simply have raced a transition.
func (r *Registry) Acknowledge(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.Status != model.StatusReady {
		return false
	}
	s.PreviousStatus = s.Status
	s.Status = model.StatusSeen
	s.Acknowledged = true
	return true
}

// Rename updates the display name. Returns false when the ID is unknown.
func (r *Registry) Rename(id, displayName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.DisplayName = displayName
	return true
}
