// Package roster keeps the set of CIDs allowed to control vACC positions.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vattur/sectorbot/internal/database"
	"github.com/vattur/sectorbot/internal/vateud"
)

var ErrEmptyRoster = errors.New("roster has no members")

// Fetcher downloads the current roster
type Fetcher interface {
	Roster(ctx context.Context) (*vateud.Roster, error)
}

// Service holds the current roster in memory and persists snapshots
type Service struct {
	fetcher Fetcher
	store   database.Store
	now     func() time.Time

	mu         sync.RWMutex
	cids       map[string]vateud.MemberKind
	lastUpdate time.Time
	loaded     bool
}

// NewService creates a roster service. It starts unloaded.
func NewService(fetcher Fetcher, store database.Store) *Service {
	return &Service{
		fetcher: fetcher,
		store:   store,
		now:     time.Now,
		cids:    map[string]vateud.MemberKind{},
	}
}

// Refresh downloads the roster, swaps it in and saves a snapshot
func (s *Service) Refresh(ctx context.Context) error {
	r, err := s.fetcher.Roster(ctx)
	if err != nil {
		return fmt.Errorf("fetching roster: %w", err)
	}

	members := r.Members()
	if len(members) == 0 {
		return ErrEmptyRoster
	}

	now := s.now()
	s.replace(members, now)
	slog.Info("Roster updated", "members", len(members), "staff", len(r.Staff), "controllers", len(r.Controllers))

	snapshot := make([]database.RosterMember, len(members))
	for i, m := range members {
		snapshot[i] = database.RosterMember{CID: m.CID, Kind: string(m.Kind)}
	}
	if err := s.store.SaveRoster(ctx, snapshot, now); err != nil {
		slog.Warn("Failed to persist roster snapshot", "error", err)
	}
	return nil
}

// LoadSnapshot restores the last persisted roster
func (s *Service) LoadSnapshot(ctx context.Context) error {
	stored, at, err := s.store.LoadRoster(ctx)
	if err != nil {
		return fmt.Errorf("loading roster snapshot: %w", err)
	}

	members := make([]vateud.Member, len(stored))
	for i, m := range stored {
		members[i] = vateud.Member{CID: m.CID, Kind: vateud.MemberKind(m.Kind)}
	}
	s.replace(members, at)
	slog.Info("Roster restored from snapshot", "members", len(members), "taken_at", at)
	return nil
}

func (s *Service) replace(members []vateud.Member, at time.Time) {
	cids := make(map[string]vateud.MemberKind, len(members))
	for _, m := range members {
		cids[m.CID] = m.Kind
	}

	s.mu.Lock()
	s.cids = cids
	s.lastUpdate = at
	s.loaded = true
	s.mu.Unlock()
}

// Contains reports whether the CID is on the roster
func (s *Service) Contains(cid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cids[cid]
	return ok
}

// Kind returns the roster kind of the CID, if present
func (s *Service) Kind(cid string) (vateud.MemberKind, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.cids[cid]
	return k, ok
}

// Len returns the number of roster CIDs
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cids)
}

// LastUpdate returns when the roster was last replaced
func (s *Service) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// Loaded reports whether a roster has been loaded at least once
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
