package events

import (
	"sort"
	"sync"
	"time"
)

// Store keeps the latest hint per session with a TTL so stale hints from
// dead hooks age out instead of pinning a status forever.
type Store struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]Event
}

func NewStore(ttl time.Duration) *Store {
	return &Store{ttl: ttl, data: make(map[string]Event)}
}

func (s *Store) Upsert(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[e.Session] = e
}

// Lookup returns the unexpired hint for a session, if any.
func (s *Store) Lookup(session string, now time.Time) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[session]
	if !ok {
		return Event{}, false
	}
	if s.ttl > 0 && now.Sub(e.TS) > s.ttl {
		delete(s.data, session)
		return Event{}, false
	}
	return e, true
}

func (s *Store) Snapshot(now time.Time) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(now, false)
}

func (s *Store) SnapshotAttention(now time.Time) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(now, true)
}

func (s *Store) snapshotLocked(now time.Time, attentionOnly bool) []Event {
	if s.ttl > 0 {
		for session, e := range s.data {
			if now.Sub(e.TS) > s.ttl {
				delete(s.data, session)
			}
		}
	}
	result := make([]Event, 0, len(s.data))
	for _, e := range s.data {
		if attentionOnly && !IsAttentionState(e.State) {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Session == result[j].Session {
			return result[i].TS.Before(result[j].TS)
		}
		return result[i].Session < result[j].Session
	})
	return result
}
