package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. It is used when no
// database is configured.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  []Session
	roster    []RosterMember
	rosterAt  time.Time
	rogues    []RogueConnection
	nextRogue int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) openIndex(callsign string) int {
	for i := range m.sessions {
		if m.sessions[i].Callsign == callsign && m.sessions[i].Open() {
			return i
		}
	}
	return -1
}

// OpenSession starts a session for the callsign
func (m *MemoryStore) OpenSession(_ context.Context, callsign, cid, name string, at time.Time) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.openIndex(callsign); i >= 0 {
		if m.sessions[i].CID == cid {
			s := m.sessions[i]
			return &s, nil
		}
		ended := at
		m.sessions[i].EndedAt = &ended
	}

	s := Session{ID: uuid.New(), Callsign: callsign, CID: cid, Name: name, StartedAt: at}
	m.sessions = append(m.sessions, s)
	return &s, nil
}

// CloseSession ends the open session for the callsign
func (m *MemoryStore) CloseSession(_ context.Context, callsign string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.openIndex(callsign); i >= 0 {
		ended := at
		m.sessions[i].EndedAt = &ended
	}
	return nil
}

// Sessions returns recent sessions for a callsign
func (m *MemoryStore) Sessions(_ context.Context, callsign string, limit int) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Session
	for _, s := range m.sessions {
		if s.Callsign == callsign {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveRoster replaces the roster snapshot
func (m *MemoryStore) SaveRoster(_ context.Context, members []RosterMember, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roster = append([]RosterMember(nil), members...)
	m.rosterAt = at
	return nil
}

// LoadRoster returns the roster snapshot
func (m *MemoryStore) LoadRoster(_ context.Context) ([]RosterMember, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.roster) == 0 {
		return nil, time.Time{}, ErrNoRoster
	}
	return append([]RosterMember(nil), m.roster...), m.rosterAt, nil
}

// RecordRogue stores a rogue connection
func (m *MemoryStore) RecordRogue(_ context.Context, rc RogueConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRogue++
	rc.ID = m.nextRogue
	m.rogues = append(m.rogues, rc)
	return nil
}

// RecentRogues returns the latest rogue detections, newest first
func (m *MemoryStore) RecentRogues(_ context.Context, limit int) ([]RogueConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]RogueConnection, 0, len(m.rogues))
	for i := len(m.rogues) - 1; i >= 0; i-- {
		out = append(out, m.rogues[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Ping always succeeds
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}
